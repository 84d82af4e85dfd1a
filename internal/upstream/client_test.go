package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		URL:         url,
		Token:       "test-token",
		Agent:       "main",
		ModelPrefix: "agent",
		HeaderName:  "x-gateway-agent-id",
	})
}

func TestPrepareBody_RewritesModelAndStripsVendorField(t *testing.T) {
	c := newTestClient("http://example.invalid")

	raw := map[string]interface{}{
		"model":                 "gpt-4",
		"elevenlabs_extra_body": map[string]interface{}{"foo": "bar"},
		"messages": []interface{}{
			map[string]interface{}{"role": "system", "content": "be terse"},
			map[string]interface{}{"role": "user", "content": "what's the weather"},
		},
	}

	out, err := c.PrepareBody(raw)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &body))

	assert.Equal(t, "agent:main", body["model"])
	assert.Equal(t, true, body["stream"])
	_, hasVendorField := body["elevenlabs_extra_body"]
	assert.False(t, hasVendorField)

	messages := body["messages"].([]interface{})
	last := messages[len(messages)-1].(map[string]interface{})
	assert.Contains(t, last["content"], "what's the weather")
	assert.Contains(t, last["content"], VoiceHint)
}

func TestPrepareBody_DoesNotMutateCallerMap(t *testing.T) {
	c := newTestClient("http://example.invalid")

	userMsg := map[string]interface{}{"role": "user", "content": "hello"}
	raw := map[string]interface{}{
		"model":    "gpt-4",
		"messages": []interface{}{userMsg},
	}

	_, err := c.PrepareBody(raw)
	require.NoError(t, err)

	assert.Equal(t, "hello", userMsg["content"], "original message map must be untouched")
	assert.Equal(t, "gpt-4", raw["model"], "original body map must be untouched")
}

func TestStream_ForwardsContentDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "main", r.Header.Get("x-gateway-agent-id"))

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)

		w.Write([]byte("data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"hi\"},\"finish_reason\":null}]}\n\n"))
		flusher.Flush()
		w.Write([]byte("data: [DONE]\n\n"))
		flusher.Flush()
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	events, err := c.Stream(context.Background(), []byte(`{}`))
	require.NoError(t, err)

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}

	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Content)
	assert.NoError(t, got[0].Err)
}

func TestStream_NonSuccessStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Stream(context.Background(), []byte(`{}`))
	assert.Error(t, err)
}
