// Package session implements the per-session coordinator that underlies
// the speculative-turn strategy: every incoming turn first aborts any
// running upstream fetch for its session and supersedes any pending
// debounce timer, so a partial transcript never races a final one onto
// the wire (spec §4.D).
package session

import (
	"context"
	"sync"
	"time"
)

// ArmResult is the outcome of waiting out a debounce window.
type ArmResult int

const (
	// Settled means the debounce elapsed undisturbed; the caller should
	// proceed with its turn.
	Settled ArmResult = iota
	// Superseded means a later request armed over this one before it
	// elapsed; the caller should close out without reaching the LLM.
	Superseded
)

// Token identifies one turn's in-flight handle so a late cleanup from a
// cancelled old turn can't evict a newer turn's handle (spec §7). Each
// call to SetInFlight mints a fresh token; ClearInFlight only clears the
// record if the token it's given still matches.
type Token *int

func newToken() Token {
	v := 0
	return &v
}

type inFlight struct {
	cancel context.CancelFunc
	text   string
	token  Token
}

type pendingTimer struct {
	supersede  context.CancelFunc
	superseded bool
}

// record is one session's coordinator state, guarded by its own mutex so
// operations on different sessions never contend with each other.
type record struct {
	mu       sync.Mutex
	inFlight *inFlight
	pending  *pendingTimer
}

// Coordinator serializes abort/supersede/arm operations per sessionId
// while allowing full parallelism across sessions.
type Coordinator struct {
	mu       sync.Mutex
	sessions map[string]*record
}

// New creates an empty coordinator.
func New() *Coordinator {
	return &Coordinator{sessions: make(map[string]*record)}
}

func (c *Coordinator) recordFor(sessionID string) *record {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.sessions[sessionID]
	if !ok {
		r = &record{}
		c.sessions[sessionID] = r
	}
	return r
}

// AbortInFlight cancels and clears the session's in-flight upstream
// fetch, if any. Safe to call when there is none.
func (c *Coordinator) AbortInFlight(sessionID string) {
	r := c.recordFor(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight != nil {
		r.inFlight.cancel()
		r.inFlight = nil
	}
}

// SupersedePending cancels and clears the session's pending debounce
// timer, if any, marking it superseded so the blocked ArmPending call
// returns Superseded instead of Settled.
func (c *Coordinator) SupersedePending(sessionID string) {
	r := c.recordFor(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending != nil {
		r.pending.superseded = true
		r.pending.supersede()
		r.pending = nil
	}
}

// ArmPending installs a new pending debounce for the session and blocks
// for wait, returning Settled if undisturbed or Superseded if another
// call armed over this one (directly, or via SupersedePending) before
// wait elapsed.
func (c *Coordinator) ArmPending(ctx context.Context, sessionID string, wait time.Duration) ArmResult {
	r := c.recordFor(sessionID)

	waitCtx, cancel := context.WithCancel(ctx)
	p := &pendingTimer{supersede: cancel}

	r.mu.Lock()
	if r.pending != nil {
		// A fresh arm always wins over whatever was pending before — the
		// caller is expected to call SupersedePending first, but this
		// guards the at-most-one-pending invariant even if it didn't.
		r.pending.superseded = true
		r.pending.supersede()
	}
	r.pending = p
	r.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.pending == p {
			r.pending = nil
			return Settled
		}
		return Superseded
	case <-waitCtx.Done():
		return Superseded
	}
}

// SetInFlight registers cancel as the session's in-flight cancellation
// handle for the turn carrying userText, and returns a token the caller
// must present to ClearInFlight.
func (c *Coordinator) SetInFlight(sessionID string, cancel context.CancelFunc, userText string) Token {
	token := newToken()
	r := c.recordFor(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = &inFlight{cancel: cancel, text: userText, token: token}
	return token
}

// ClearInFlight clears the session's in-flight handle only if it is
// still the one identified by token, so a late error from a cancelled
// old turn can't evict a newer turn's handle.
func (c *Coordinator) ClearInFlight(sessionID string, token Token) {
	r := c.recordFor(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight != nil && r.inFlight.token == token {
		r.inFlight = nil
	}
}

// Forget removes the session's record once both inFlight and pending are
// empty, so idle sessions don't accumulate forever. The emptiness check
// and the map delete happen under a single hold of c.mu so a concurrent
// SetInFlight/ArmPending for the same session can't populate the record
// in the gap between the two (it would block on recordFor's c.mu.Lock()
// until Forget is done).
func (c *Coordinator) Forget(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.sessions[sessionID]
	if !ok {
		return
	}

	r.mu.Lock()
	empty := r.inFlight == nil && r.pending == nil
	r.mu.Unlock()

	if empty {
		delete(c.sessions, sessionID)
	}
}
