package bandwidth

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NonPositiveIsUnlimited(t *testing.T) {
	assert.Nil(t, New(0))
	assert.Nil(t, New(-1))
}

func TestWrapReader_NilLimiterPassesThrough(t *testing.T) {
	var l *Limiter
	r := l.WrapReader(context.Background(), strings.NewReader("hello"))

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWrapReader_LimitsThroughput(t *testing.T) {
	l := New(10) // 10 bytes/sec, burst 20
	payload := strings.Repeat("x", 30)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	r := l.WrapReader(ctx, strings.NewReader(payload))
	data, err := io.ReadAll(r)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond)
}

func TestWrapReader_RespectsContextCancellation(t *testing.T) {
	l := New(1) // 1 byte/sec, small burst
	ctx, cancel := context.WithCancel(context.Background())

	r := l.WrapReader(ctx, strings.NewReader(strings.Repeat("x", 1000)))

	buf := make([]byte, 2)
	_, _ = r.Read(buf) // consume initial burst

	cancel()

	_, err := r.Read(buf)
	require.Error(t, err)
}
