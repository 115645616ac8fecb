package uploaderr

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Retryable(t *testing.T) {
	e := New(CodeNetworkError, true, "boom", nil)
	assert.True(t, e.Retryable())

	e2 := New(CodeAuthFailed, false, "nope", nil)
	assert.False(t, e2.Retryable())
}

func TestError_Error_ChunkScoped(t *testing.T) {
	e := New(CodeChunkUploadFailed, true, "failed", nil).WithChunk(3)
	assert.Contains(t, e.Error(), "chunk 3")
	require.NotNil(t, e.ChunkIndex)
	assert.Equal(t, 3, *e.ChunkIndex)
}

func TestError_WithChunk_DoesNotMutateOriginal(t *testing.T) {
	base := New(CodeChunkUploadFailed, true, "failed", nil)
	scoped := base.WithChunk(7)

	assert.Nil(t, base.ChunkIndex)
	require.NotNil(t, scoped.ChunkIndex)
	assert.Equal(t, 7, *scoped.ChunkIndex)
}

func TestNewAt_PinsTimestamp(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewAt(CodeTimeout, true, "slow", nil, ts)
	assert.Equal(t, ts, e.Timestamp)
}

func TestClassify_NetworkAndTimeoutRetryFast(t *testing.T) {
	for _, code := range []Code{CodeNetworkError, CodeTimeout, CodeChunkNetworkError, CodeChunkTimeout} {
		r := Classify(New(code, true, "x", nil))
		assert.Equal(t, ActionRetry, r.Action)
		assert.Equal(t, networkRetryDelay, r.Delay)
	}
}

func TestClassify_AuthFailuresAbort(t *testing.T) {
	for _, code := range []Code{CodeAuthFailed, CodeAuthParseError} {
		r := Classify(New(code, false, "x", nil))
		assert.Equal(t, ActionAbort, r.Action)
	}
}

func TestClassify_SessionNotFoundResumes(t *testing.T) {
	r := Classify(New(CodeSessionNotFound, false, "gone", nil))
	assert.Equal(t, ActionResume, r.Action)
}

func TestClassify_OtherRetryableUsesDefaultDelay(t *testing.T) {
	r := Classify(New(CodeResumeFailed, true, "x", nil))
	assert.Equal(t, ActionRetry, r.Action)
	assert.Equal(t, defaultRetryDelay, r.Delay)
}

func TestClassify_NonRetryableAborts(t *testing.T) {
	r := Classify(New(CodeConfigError, false, "x", nil))
	assert.Equal(t, ActionAbort, r.Action)
}

func TestClassify_NonUploadErrorAborts(t *testing.T) {
	r := Classify(errors.New("plain error"))
	assert.Equal(t, ActionAbort, r.Action)
}
