package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saisudhir14/voiceproxy/internal/convlog"
	"github.com/saisudhir14/voiceproxy/internal/dedup"
	"github.com/saisudhir14/voiceproxy/internal/session"
	"github.com/saisudhir14/voiceproxy/internal/turn"
	"github.com/saisudhir14/voiceproxy/internal/upstream"
)

type noopTiming struct{}

func (noopTiming) Debounce() time.Duration          { return time.Millisecond }
func (noopTiming) KeepAliveInterval() time.Duration { return time.Second }
func (noopTiming) MinBufferSpeech() time.Duration   { return time.Millisecond }

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	client := upstream.NewClient(upstream.Config{URL: "http://127.0.0.1:0"})
	log := convlog.New(nil, nil)
	pipeline := turn.New(noopTiming{}, session.New(), dedup.New(), client, log)
	return NewHandlers(pipeline, log, "")
}

func TestHealth_ReportsOK(t *testing.T) {
	h := newTestHandlers(t)
	router := NewRouter(h, []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
}

func TestListConversations_ReturnsSnapshot(t *testing.T) {
	log := convlog.New(nil, nil)
	log.Append(context.Background(), "s1", "user", "hi")

	h := NewHandlers(nil, log, "")
	router := NewRouter(h, []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "s1")
}

func TestClearConversations_RequiresAuthWhenConfigured(t *testing.T) {
	log := convlog.New(nil, nil)
	h := NewHandlers(nil, log, "a-secret")
	router := NewRouter(h, []string{"*"})

	req := httptest.NewRequest(http.MethodDelete, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClearConversations_SucceedsWithoutAuthWhenNotConfigured(t *testing.T) {
	log := convlog.New(nil, nil)
	log.Append(context.Background(), "s1", "user", "hi")

	h := NewHandlers(nil, log, "")
	router := NewRouter(h, []string{"*"})

	req := httptest.NewRequest(http.MethodDelete, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, log.Snapshot())
}
