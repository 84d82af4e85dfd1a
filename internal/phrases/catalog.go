// Package phrases implements the keyword -> phrase-set catalog that
// chooses the buffer ("initial") and keep-alive filler spoken while the
// upstream LLM is still thinking (spec §4.B).
package phrases

import (
	"math/rand"
	"strings"
	"sync"
)

// Category is one keyword-routed phrase set. The fallback category has
// no keywords and is used when nothing else matches.
type Category struct {
	Name             string
	Keywords         []string
	InitialPhrases   []string
	KeepAlivePhrases []string
}

// catalog defines the keyword -> phrase-set table in priority order: the
// first category whose keyword list substring-matches the input wins.
// Every phrase ends with a literal trailing space, required by the
// downstream TTS so word boundaries stay clean.
var catalog = []Category{
	{
		Name:     "email",
		Keywords: []string{"email", "inbox", "gmail", "mail"},
		InitialPhrases: []string{
			"Checking your inbox... ",
			"Pulling up your emails... ",
			"Let me look at your mail... ",
		},
		KeepAlivePhrases: []string{
			"Still digging through your inbox... ",
			"Almost got your emails... ",
		},
	},
	{
		Name:     "calendar",
		Keywords: []string{"calendar", "schedule", "meeting", "appointment", "event"},
		InitialPhrases: []string{
			"Checking your calendar... ",
			"Pulling up your schedule... ",
		},
		KeepAlivePhrases: []string{
			"Still looking at your calendar... ",
		},
	},
	{
		Name:     "weather",
		Keywords: []string{"weather", "forecast", "temperature", "rain", "sunny"},
		InitialPhrases: []string{
			"Checking the weather... ",
			"Let me look up the forecast... ",
		},
		KeepAlivePhrases: []string{
			"Still pulling up the forecast... ",
		},
	},
	{
		Name:     "messaging",
		Keywords: []string{"text", "message", "sms", "imessage"},
		InitialPhrases: []string{
			"Checking your messages... ",
			"Pulling up your texts... ",
		},
		KeepAlivePhrases: []string{
			"Still going through your messages... ",
		},
	},
	{
		Name:     "tasks",
		Keywords: []string{"task", "todo", "to-do", "reminder"},
		InitialPhrases: []string{
			"Checking your tasks... ",
			"Pulling up your to-do list... ",
		},
		KeepAlivePhrases: []string{
			"Still going through your tasks... ",
		},
	},
	{
		Name:     "health",
		Keywords: []string{"steps", "heart rate", "sleep", "workout", "health"},
		InitialPhrases: []string{
			"Checking your health data... ",
			"Pulling that up... ",
		},
		KeepAlivePhrases: []string{
			"Still crunching your health data... ",
		},
	},
	{
		Name:     "crypto",
		Keywords: []string{"bitcoin", "crypto", "ethereum", "token", "wallet"},
		InitialPhrases: []string{
			"Checking the markets... ",
			"Pulling up prices... ",
		},
		KeepAlivePhrases: []string{
			"Still watching the markets... ",
		},
	},
	{
		Name:     "search",
		Keywords: []string{"search", "google", "look up", "find out"},
		InitialPhrases: []string{
			"Looking that up... ",
			"Searching now... ",
		},
		KeepAlivePhrases: []string{
			"Still searching... ",
		},
	},
	{
		Name:     "code",
		Keywords: []string{"code", "function", "bug", "repo", "deploy"},
		InitialPhrases: []string{
			"Digging into the code... ",
			"Let me take a look... ",
		},
		KeepAlivePhrases: []string{
			"Still digging through the code... ",
		},
	},
	{
		Name:     "notes",
		Keywords: []string{"note", "notes", "notebook"},
		InitialPhrases: []string{
			"Checking your notes... ",
			"Pulling that note up... ",
		},
		KeepAlivePhrases: []string{
			"Still looking through your notes... ",
		},
	},
	{
		Name:     "browser",
		Keywords: []string{"browser", "tab", "website", "webpage"},
		InitialPhrases: []string{
			"Checking your browser... ",
			"Pulling that page up... ",
		},
		KeepAlivePhrases: []string{
			"Still loading that up... ",
		},
	},
	{
		Name:     "memory",
		Keywords: []string{"remember", "recall", "earlier you said"},
		InitialPhrases: []string{
			"Let me recall that... ",
			"Thinking back... ",
		},
		KeepAlivePhrases: []string{
			"Still piecing that together... ",
		},
	},
	{
		Name:     "file",
		Keywords: []string{"file", "document", "pdf", "folder"},
		InitialPhrases: []string{
			"Checking that file... ",
			"Pulling up the document... ",
		},
		KeepAlivePhrases: []string{
			"Still opening that up... ",
		},
	},
	{
		Name:     "music",
		Keywords: []string{"song", "music", "playlist", "spotify", "play"},
		InitialPhrases: []string{
			"Queuing that up... ",
			"Finding that track... ",
		},
		KeepAlivePhrases: []string{
			"Still queuing that up... ",
		},
	},
	{
		Name:     "image",
		Keywords: []string{"photo", "picture", "image", "screenshot"},
		InitialPhrases: []string{
			"Pulling up that image... ",
			"Let me grab that photo... ",
		},
		KeepAlivePhrases: []string{
			"Still pulling that up... ",
		},
	},
	{
		Name:     "voice",
		Keywords: []string{"voice memo", "recording", "voicemail"},
		InitialPhrases: []string{
			"Checking your voicemail... ",
			"Pulling up that recording... ",
		},
		KeepAlivePhrases: []string{
			"Still playing that back... ",
		},
	},
	{
		Name:     "whatsapp",
		Keywords: []string{"whatsapp"},
		InitialPhrases: []string{
			"Checking WhatsApp... ",
		},
		KeepAlivePhrases: []string{
			"Still going through WhatsApp... ",
		},
	},
	{
		Name:     "twitter",
		Keywords: []string{"twitter", "tweet", "x.com"},
		InitialPhrases: []string{
			"Checking your feed... ",
		},
		KeepAlivePhrases: []string{
			"Still scrolling through... ",
		},
	},
	{
		Name:             "fallback",
		Keywords:         nil,
		InitialPhrases:   []string{"One moment... ", "Let me check on that... ", "Give me a second... "},
		KeepAlivePhrases: []string{"Still working on it... ", "Almost there... "},
	},
}

// fallback is always the last entry in catalog; keep a direct handle for
// MatchCategory's default return.
var fallback = catalog[len(catalog)-1]

// MatchCategory lowercases text and returns the first category whose
// keyword list substring-matches it, in catalog priority order. Returns
// the fallback category when nothing matches.
func MatchCategory(text string) Category {
	lower := strings.ToLower(text)
	for _, cat := range catalog {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}
	return fallback
}

// lastInitialIdx is process-global by design (spec §9): the "no repeat
// last" check is a cosmetic nicety, not a per-session correctness
// invariant, and per-session tracking would reduce phrase variety across
// back-to-back turns of the same session.
var (
	lastInitialMu  sync.Mutex
	lastInitialIdx = -1
)

// PickInitial returns a phrase chosen uniformly at random from the
// category's initial phrases, but never the same phrase most recently
// returned by this function — unless the category has only one phrase,
// in which case repetition is unavoidable and allowed.
func PickInitial(cat Category) string {
	phrases := cat.InitialPhrases
	if len(phrases) == 0 {
		return fallback.InitialPhrases[0]
	}
	if len(phrases) == 1 {
		return phrases[0]
	}

	lastInitialMu.Lock()
	defer lastInitialMu.Unlock()

	idx := rand.Intn(len(phrases))
	for idx == lastInitialIdx {
		idx = rand.Intn(len(phrases))
	}
	lastInitialIdx = idx
	return phrases[idx]
}

// PickKeepAlive deterministically round-robins through the category's
// keep-alive phrases using the supplied counter.
func PickKeepAlive(cat Category, counter int) string {
	phrases := cat.KeepAlivePhrases
	if len(phrases) == 0 {
		phrases = fallback.KeepAlivePhrases
	}
	return phrases[counter%len(phrases)]
}
