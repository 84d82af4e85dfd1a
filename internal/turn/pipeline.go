// Package turn orchestrates a single conversational turn: it decides
// whether the caller's speech was silence or a real utterance, guards
// against speculative duplicate turns racing each other, fetches the
// upstream completion, and streams it back to the voice platform as SSE,
// filling the gap with a spoken buffer phrase and keep-alive filler while
// the upstream LLM is still composing. Grounded on the teacher's
// VoicePipeline session-handling goroutine/channel style, generalized from
// a persistent websocket session loop to one HTTP request per turn.
package turn

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/saisudhir14/voiceproxy/internal/convlog"
	"github.com/saisudhir14/voiceproxy/internal/dedup"
	"github.com/saisudhir14/voiceproxy/internal/logger"
	"github.com/saisudhir14/voiceproxy/internal/phrases"
	"github.com/saisudhir14/voiceproxy/internal/session"
	"github.com/saisudhir14/voiceproxy/internal/sse"
	"github.com/saisudhir14/voiceproxy/internal/upstream"
)

// Timing is the subset of config the pipeline needs. Kept as an interface
// so tests can supply sub-millisecond values without going through env vars.
type Timing interface {
	Debounce() time.Duration
	KeepAliveInterval() time.Duration
	MinBufferSpeech() time.Duration
}

// Pipeline wires the session coordinator, dedup cache, upstream client and
// conversation log into the turn flow described in spec §4.F.
type Pipeline struct {
	cfg     Timing
	coord   *session.Coordinator
	dedup   *dedup.Cache
	client  *upstream.Client
	convlog *convlog.Log
}

// New builds a Pipeline from its collaborators.
func New(cfg Timing, coord *session.Coordinator, cache *dedup.Cache, client *upstream.Client, log *convlog.Log) *Pipeline {
	return &Pipeline{cfg: cfg, coord: coord, dedup: cache, client: client, convlog: log}
}

// HandleTurn runs one turn to completion. body is the decoded JSON request
// body, kept as a map so the full shape (including fields this proxy does
// not otherwise understand) can be forwarded upstream unchanged.
func (p *Pipeline) HandleTurn(ctx context.Context, w http.ResponseWriter, body map[string]interface{}) {
	turnID := uuid.New().String()
	sessionID := sessionIDOf(body)
	log := logger.WithSessionID(sessionID).With().Str("request_id", turnID).Logger()

	messages := parseMessages(body["messages"])
	userText := strings.TrimSpace(lastUserMessage(messages))

	if isSilence(userText) {
		sw := newStreamWriter(w, turnID)
		sw.write(sse.Encode(turnID, " ", time.Now().Unix()))
		sw.write(sse.Done())
		return
	}

	p.convlog.Append(ctx, sessionID, "user", userText)

	p.coord.AbortInFlight(sessionID)
	p.coord.SupersedePending(sessionID)

	if p.coord.ArmPending(ctx, sessionID, p.cfg.Debounce()) == session.Superseded {
		sw := newStreamWriter(w, turnID)
		sw.write(sse.Encode(turnID, " ", time.Now().Unix()))
		sw.write(sse.Done())
		return
	}

	upstreamBody, err := p.client.PrepareBody(body)
	if err != nil {
		log.Error().Err(err).Msg("failed to prepare upstream body")
		sw := newStreamWriter(w, turnID)
		sw.write(sse.Encode(turnID, "Sorry, something went wrong on my end.", time.Now().Unix()))
		sw.write(sse.Done())
		return
	}

	fp := fingerprint(messages)
	if cached, ok := p.dedup.Lookup(fp); ok {
		sw := newStreamWriter(w, turnID)
		sw.write(sse.Encode(turnID, cached, time.Now().Unix()))
		sw.write(sse.Done())
		return
	}

	sw := newStreamWriter(w, turnID)

	cat := phrases.MatchCategory(userText)
	sw.write(sse.Encode(turnID, phrases.PickInitial(cat), time.Now().Unix()))
	bufferEmittedAt := time.Now()

	turnCtx, cancel := context.WithCancel(ctx)
	token := p.coord.SetInFlight(sessionID, cancel, userText)

	keepAliveDone := make(chan struct{})
	keepAliveExited := make(chan struct{})
	go func() {
		defer close(keepAliveExited)
		runKeepAlive(turnCtx, sw, cat, p.cfg.KeepAliveInterval(), keepAliveDone)
	}()

	finish := func() {
		close(keepAliveDone)
		<-keepAliveExited
		p.coord.ClearInFlight(sessionID, token)
		p.coord.Forget(sessionID)
		cancel()
	}

	events, err := p.client.Stream(turnCtx, upstreamBody)
	if err != nil {
		finish()
		if errors.Is(err, upstream.ErrCancelled) {
			sw.write(sse.Done())
			return
		}
		log.Error().Err(err).Msg("upstream request failed")
		sw.write(sse.Encode(turnID, "Sorry, I'm having trouble reaching that right now.", time.Now().Unix()))
		sw.write(sse.Done())
		return
	}

	var reply strings.Builder
	firstContent := true

	for ev := range events {
		if ev.Err != nil {
			if errors.Is(ev.Err, upstream.ErrCancelled) {
				log.Info().Msg("turn superseded or client disconnected mid-stream")
			} else {
				log.Warn().Err(ev.Err).Msg("upstream stream error")
			}
			break
		}

		if ev.Content != "" {
			if firstContent {
				firstContent = false
				if hold := p.cfg.MinBufferSpeech() - time.Since(bufferEmittedAt); hold > 0 {
					time.Sleep(hold)
				}
			}
			reply.WriteString(ev.Content)
		}

		sw.write("data: " + ev.Raw + "\n\n")
	}

	if reply.Len() > 0 {
		p.dedup.Store(fp, reply.String())
		p.convlog.Append(ctx, sessionID, "assistant", reply.String())
	}

	finish()
	sw.write(sse.Done())
}

func isSilence(userText string) bool {
	if userText == "" || userText == "..." || userText == "…" {
		return true
	}
	return utf8.RuneCountInString(userText) < 3
}

func runKeepAlive(ctx context.Context, sw *streamWriter, cat phrases.Category, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	threshold := interval - time.Second
	counter := 0

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sw.idleSince() < threshold {
				continue
			}
			sw.write(sse.Encode(sw.turnID, phrases.PickKeepAlive(cat, counter), time.Now().Unix()))
			counter++
		}
	}
}
