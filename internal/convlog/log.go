// Package convlog implements the bounded, append-only conversation log
// used for debug inspection (spec §4.H): a ring of per-session messages,
// evicting the oldest session once the session count exceeds a cap.
//
// It is a debug facility only — the turn pipeline never reads from it
// for context, per spec §3's invariant that conversation memory beyond
// this bounded log is out of scope.
package convlog

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxConversations is the cap on concurrently-tracked sessions,
// matching spec §6's MAX_CONVERSATIONS default.
const DefaultMaxConversations = 50

// Message is one entry in a session's conversation log.
type Message struct {
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	TimestampUnix time.Time `json:"timestamp"`
}

// conversation is one session's bounded message history.
type conversation struct {
	Messages  []Message
	StartedAt time.Time
}

// Redactor optionally scrubs PII from content before it is retained.
// Implementations must be fail-open: an error redacting should never
// block appending the (unredacted) message.
type Redactor interface {
	RedactPII(ctx context.Context, text string) (string, error)
}

// Store is the optional durable overflow backing the in-memory ring
// (the Postgres-backed store in store_postgres.go, or a no-op).
type Store interface {
	Append(ctx context.Context, sessionID string, msg Message) error
}

type noopStore struct{}

func (noopStore) Append(context.Context, string, Message) error { return nil }

// Log is the in-memory conversation ring plus optional durable overflow
// and optional PII redaction.
type Log struct {
	mu            sync.Mutex
	conversations map[string]*conversation
	insertOrder   []string // session IDs in first-insertion order, oldest first
	maxSessions   int

	redactor Redactor
	store    Store
}

// New creates an empty log capped at DefaultMaxConversations sessions.
// redactor and store may be nil to disable redaction/persistence
// respectively.
func New(redactor Redactor, store Store) *Log {
	return NewWithCap(DefaultMaxConversations, redactor, store)
}

// NewWithCap creates an empty log capped at maxSessions concurrently
// tracked sessions (MAX_CONVERSATIONS). redactor and store may be nil to
// disable redaction/persistence respectively.
func NewWithCap(maxSessions int, redactor Redactor, store Store) *Log {
	if store == nil {
		store = noopStore{}
	}
	return &Log{
		conversations: make(map[string]*conversation),
		maxSessions:   maxSessions,
		redactor:      redactor,
		store:         store,
	}
}

// Append adds a message to sessionID's history, creating the session
// record if needed and evicting the oldest session if the cap is
// exceeded. Content is redacted (if a redactor is configured) before
// being retained or durably persisted; the caller's original text is
// never mutated.
func (l *Log) Append(ctx context.Context, sessionID, role, content string) {
	retained := content
	if l.redactor != nil {
		if redacted, err := l.redactor.RedactPII(ctx, content); err == nil {
			retained = redacted
		}
	}

	msg := Message{Role: role, Content: retained, TimestampUnix: time.Now()}

	l.mu.Lock()
	conv, ok := l.conversations[sessionID]
	if !ok {
		conv = &conversation{StartedAt: time.Now()}
		l.conversations[sessionID] = conv
		l.insertOrder = append(l.insertOrder, sessionID)

		if len(l.insertOrder) > l.maxSessions {
			oldest := l.insertOrder[0]
			l.insertOrder = l.insertOrder[1:]
			delete(l.conversations, oldest)
		}
	}
	conv.Messages = append(conv.Messages, msg)
	l.mu.Unlock()

	_ = l.store.Append(ctx, sessionID, msg)
}

// SessionSnapshot is one session's exported history, for the
// GET /conversations endpoint.
type SessionSnapshot struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	Messages  []Message `json:"messages"`
}

// Snapshot returns every tracked session's current history.
func (l *Log) Snapshot() []SessionSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]SessionSnapshot, 0, len(l.insertOrder))
	for _, sessionID := range l.insertOrder {
		conv := l.conversations[sessionID]
		messages := make([]Message, len(conv.Messages))
		copy(messages, conv.Messages)
		out = append(out, SessionSnapshot{
			SessionID: sessionID,
			StartedAt: conv.StartedAt,
			Messages:  messages,
		})
	}
	return out
}

// Clear empties the in-memory ring. The durable overflow store, if any,
// is untouched — clearing the debug log is an ops action on the live
// process, not a request to delete history.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conversations = make(map[string]*conversation)
	l.insertOrder = nil
}
