package sse

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_ProducesDataFrame(t *testing.T) {
	frame := Encode("turn-1", "hello", 1700000000)
	assert.True(t, strings.HasPrefix(frame, "data: "))
	assert.True(t, strings.HasSuffix(frame, "\n\n"))
	assert.Contains(t, frame, `"content":"hello"`)
	assert.Contains(t, frame, `"id":"turn-1"`)
}

func TestDone_RendersSentinel(t *testing.T) {
	assert.Equal(t, "data: [DONE]\n\n", Done())
}

func TestParseChunk_ExtractsContent(t *testing.T) {
	frame := Encode("turn-1", "hello", 1700000000)
	payload := strings.TrimSuffix(strings.TrimPrefix(frame, "data: "), "\n\n")

	content, ok := ParseChunk(payload)
	require.True(t, ok)
	assert.Equal(t, "hello", content)
}

func TestParseChunk_MalformedPayload(t *testing.T) {
	_, ok := ParseChunk("not json")
	assert.False(t, ok)
}

func TestDecoder_SkipsDoneAndBlankLines(t *testing.T) {
	raw := "data: {\"choices\":[]}\n\n" +
		"\n" +
		"event: ping\n" +
		"data: [DONE]\n\n"

	dec := NewDecoder(strings.NewReader(raw))

	payload, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"choices":[]}`, payload)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_ReturnsFinalLineEvenWithoutTrailingNewline(t *testing.T) {
	raw := "data: {\"a\":1}"
	dec := NewDecoder(strings.NewReader(raw))

	payload, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, payload)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}
