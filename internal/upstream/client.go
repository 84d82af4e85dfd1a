// Package upstream issues the cancellable streaming request to the LLM
// gateway and decodes its chunked SSE response into content deltas
// (spec §4.E). It is grounded on the teacher's
// internal/voice/llm/client.go provider clients, generalized from two
// hardcoded vendors to one configurable OpenAI-compatible gateway.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/saisudhir14/voiceproxy/internal/logger"
	"github.com/saisudhir14/voiceproxy/internal/sse"
)

// ErrCancelled is the distinct sentinel raised when the session
// coordinator aborted the fetch, as opposed to a genuine transport
// failure. Callers must treat it as expected and silent (spec §7).
var ErrCancelled = errors.New("upstream: request cancelled")

// VoiceHint is appended to the last user message's content to steer the
// LLM toward concise, filler-free replies suitable for a live voice call.
const VoiceHint = " [Voice call — keep your reply to 3-4 sentences, no opener filler, talk naturally.]"

const vendorExtraBodyField = "elevenlabs_extra_body"

// Config holds the gateway connection settings (spec §6 env vars).
type Config struct {
	URL         string
	Token       string
	Agent       string
	ModelPrefix string // rewritten model becomes "<ModelPrefix>:<Agent>"
	HeaderName  string // agent-id header name, e.g. "x-gateway-agent-id"
}

// Client issues cancellable streaming chat-completions requests to the
// upstream LLM gateway.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a Client against cfg. The underlying http.Client has
// no timeout: the upstream may legitimately block for many seconds
// running tools, and cancellation is carried entirely by ctx (spec §5).
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, httpClient: &http.Client{}}
}

// Event is one decoded item from the upstream stream: either a content
// delta (possibly empty, for opaque pass-through chunks), or a terminal
// error.
type Event struct {
	Raw     string // the untouched payload body, forwarded to the client verbatim
	Content string // extracted delta content, "" if this payload carries none
	Err     error  // set on the final Event before the channel closes
}

// PrepareBody applies the request transformations in spec §4.E to the
// caller's raw chat-completions JSON body: strips the vendor extension
// field, rewrites model to "<prefix>:<agent>", forces stream=true, and
// appends VoiceHint to the last user message's content. It mutates a
// copy, never the caller's decoded map, so the turn pipeline can keep
// reading the original messages (e.g. for phrase-catalog matching)
// concurrently with the upstream fetch (spec §9 open question ii).
func (c *Client) PrepareBody(raw map[string]interface{}) ([]byte, error) {
	body := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		body[k] = v
	}
	delete(body, vendorExtraBodyField)
	body["model"] = fmt.Sprintf("%s:%s", c.cfg.ModelPrefix, c.cfg.Agent)
	body["stream"] = true

	rawMessages, _ := raw["messages"].([]interface{})
	messages := make([]interface{}, len(rawMessages))
	copy(messages, rawMessages)

	for i := len(messages) - 1; i >= 0; i-- {
		msg, ok := messages[i].(map[string]interface{})
		if !ok || msg["role"] != "user" {
			continue
		}
		patched := make(map[string]interface{}, len(msg))
		for k, v := range msg {
			patched[k] = v
		}
		content, _ := msg["content"].(string)
		patched["content"] = content + VoiceHint
		messages[i] = patched
		break
	}
	body["messages"] = messages

	return json.Marshal(body)
}

// Stream issues the POST and returns a channel of decoded events. A
// failure before any byte is read (connection refused, non-2xx status)
// is returned directly; everything after that point — including
// cancellation and transport failure mid-stream — is reported as the
// final Event on the channel, which is then closed.
func (c *Client) Stream(ctx context.Context, body []byte) (<-chan Event, error) {
	log := logger.WithComponent("upstream")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set(c.cfg.HeaderName, c.cfg.Agent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("upstream: request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("upstream: gateway returned %s: %s", resp.Status, string(respBody))
	}

	events := make(chan Event, 32)
	go streamLoop(ctx, resp.Body, events, log)
	return events, nil
}

func streamLoop(ctx context.Context, body io.ReadCloser, events chan<- Event, log zerolog.Logger) {
	defer close(events)
	defer body.Close()

	dec := sse.NewDecoder(body)
	for {
		payload, err := dec.Next()
		if err != nil {
			if ctx.Err() != nil {
				events <- Event{Err: ErrCancelled}
			} else if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Msg("upstream stream ended")
				events <- Event{Err: fmt.Errorf("upstream: stream read failed: %w", err)}
			}
			return
		}

		content, _ := sse.ParseChunk(payload)

		select {
		case events <- Event{Raw: payload, Content: content}:
		case <-ctx.Done():
			events <- Event{Err: ErrCancelled}
			return
		}
	}
}
