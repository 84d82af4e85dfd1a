package turn

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saisudhir14/voiceproxy/internal/logger"
)

// streamWriter serializes writes to a turn's SSE response across the main
// pipeline goroutine and the keep-alive goroutine, and tracks the time of
// the last chunk so the keep-alive loop can tell how long the client has
// gone quiet.
type streamWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	turnID  string

	lastChunkAtMs atomic.Int64
}

func newStreamWriter(w http.ResponseWriter, turnID string) *streamWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	sw := &streamWriter{w: w, flusher: flusher, turnID: turnID}
	sw.lastChunkAtMs.Store(time.Now().UnixMilli())
	return sw
}

func (sw *streamWriter) write(payload string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, err := io.WriteString(sw.w, payload); err != nil {
		logger.WithRequestID(sw.turnID).Warn().Err(err).Msg("failed writing SSE chunk")
		return
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	sw.lastChunkAtMs.Store(time.Now().UnixMilli())
}

func (sw *streamWriter) idleSince() time.Duration {
	last := sw.lastChunkAtMs.Load()
	return time.Since(time.UnixMilli(last))
}
