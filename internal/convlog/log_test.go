package convlog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperRedactor struct{}

func (upperRedactor) RedactPII(ctx context.Context, text string) (string, error) {
	return "[redacted]", nil
}

type failingRedactor struct{}

func (failingRedactor) RedactPII(ctx context.Context, text string) (string, error) {
	return "", errors.New("presidio unreachable")
}

type recordingStore struct {
	appended []Message
}

func (s *recordingStore) Append(ctx context.Context, sessionID string, msg Message) error {
	s.appended = append(s.appended, msg)
	return nil
}

func TestAppend_StoresMessageForSession(t *testing.T) {
	log := New(nil, nil)
	log.Append(context.Background(), "s1", "user", "hello there")

	snap := log.Snapshot()
	require.Len(t, snap, 1)
	require.Len(t, snap[0].Messages, 1)
	assert.Equal(t, "hello there", snap[0].Messages[0].Content)
}

func TestAppend_UsesRedactorOutput(t *testing.T) {
	log := New(upperRedactor{}, nil)
	log.Append(context.Background(), "s1", "user", "my ssn is 123-45-6789")

	snap := log.Snapshot()
	assert.Equal(t, "[redacted]", snap[0].Messages[0].Content)
}

func TestAppend_FailOpenOnRedactorError(t *testing.T) {
	log := New(failingRedactor{}, nil)
	log.Append(context.Background(), "s1", "user", "original text")

	snap := log.Snapshot()
	assert.Equal(t, "original text", snap[0].Messages[0].Content, "a redactor error must not drop the message")
}

func TestAppend_PersistsToStore(t *testing.T) {
	store := &recordingStore{}
	log := New(nil, store)
	log.Append(context.Background(), "s1", "user", "hello")

	require.Len(t, store.appended, 1)
	assert.Equal(t, "hello", store.appended[0].Content)
}

func TestAppend_EvictsOldestSessionOverCap(t *testing.T) {
	log := New(nil, nil)
	for i := 0; i < DefaultMaxConversations+1; i++ {
		log.Append(context.Background(), fmt.Sprintf("session-%d", i), "user", "hi")
	}

	snap := log.Snapshot()
	assert.Len(t, snap, DefaultMaxConversations)

	for _, s := range snap {
		assert.NotEqual(t, "session-0", s.SessionID, "the oldest session should have been evicted")
	}
}

func TestClear_EmptiesInMemoryRingOnly(t *testing.T) {
	log := New(nil, nil)
	log.Append(context.Background(), "s1", "user", "hi")
	log.Clear()

	assert.Empty(t, log.Snapshot())
}

func TestNewWithCap_HonorsConfiguredLimit(t *testing.T) {
	log := NewWithCap(2, nil, nil)
	log.Append(context.Background(), "s1", "user", "hi")
	log.Append(context.Background(), "s2", "user", "hi")
	log.Append(context.Background(), "s3", "user", "hi")

	snap := log.Snapshot()
	assert.Len(t, snap, 2, "MAX_CONVERSATIONS should be honored, not the package default")
}
