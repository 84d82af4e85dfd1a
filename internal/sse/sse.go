// Package sse implements the server-sent-event framing used by the
// streaming chat-completions contract (spec §4.A): encoding content
// deltas as "data: {...}\n\n" chunks and decoding an incoming byte
// stream back into raw payloads.
package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const doneSentinel = "[DONE]"

// Chunk is the wire shape of a single streamed chat-completion chunk.
type Chunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Choices []Choice `json:"choices"`
}

// Choice is the single-choice payload every chunk carries.
type Choice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta carries the content fragment for one chunk.
type Delta struct {
	Content string `json:"content"`
}

// Encode renders one content delta as a "data: {...}\n\n" frame.
func Encode(id, content string, createdUnixSec int64) string {
	chunk := Chunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: createdUnixSec,
		Choices: []Choice{{Index: 0, Delta: Delta{Content: content}, FinishReason: nil}},
	}
	body, err := json.Marshal(chunk)
	if err != nil {
		// Chunk's shape is fixed and content is always a Go string;
		// marshalling cannot fail for this type.
		panic(fmt.Sprintf("sse: encode chunk: %v", err))
	}
	return "data: " + string(body) + "\n\n"
}

// Done renders the terminal [DONE] frame.
func Done() string {
	return "data: " + doneSentinel + "\n\n"
}

// ParseChunk attempts to decode a raw "data: " payload as a Chunk and
// returns its first choice's delta content. Malformed payloads are not
// an error the caller should act on beyond treating content as absent —
// the payload itself is still forwarded verbatim by whoever decoded it.
func ParseChunk(payload string) (content string, ok bool) {
	var chunk Chunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, true
}

// Decoder splits an incoming SSE byte stream into "data: " payloads,
// buffering partial trailing lines across reads and swallowing the
// terminal [DONE] sentinel.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r for line-buffered SSE decoding.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next "data: " payload with the prefix stripped, or
// io.EOF (or the underlying read error) once the stream ends. [DONE]
// lines, blank lines, and any SSE field other than "data:" (event ids,
// retry directives, comments) are skipped rather than returned. A
// malformed JSON body on a "data: " line is still returned — only
// ParseChunk cares whether it parses.
func (d *Decoder) Next() (string, error) {
	for {
		line, err := d.r.ReadString('\n')
		trimmed := strings.TrimSpace(line)

		if trimmed != "" {
			if payload, ok := strings.CutPrefix(trimmed, "data: "); ok && payload != doneSentinel {
				return payload, nil
			}
		}

		if err != nil {
			return "", err
		}
	}
}
