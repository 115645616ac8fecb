package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_EmitsOnInterval(t *testing.T) {
	var count int
	acct := New("sess-1", 100, 1, func(Info) { count++ }, nil)

	p := StartPoller(context.Background(), acct, 10*time.Millisecond)
	time.Sleep(55 * time.Millisecond)
	p.Stop()

	assert.GreaterOrEqual(t, count, 3)
}

func TestPoller_StopsAtCompletion(t *testing.T) {
	acct := New("sess-1", 100, 1, nil, nil)
	acct.RecordChunk(100, time.Now())

	p := StartPoller(context.Background(), acct, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	select {
	case <-p.done:
	default:
		t.Fatal("poller did not stop itself once percentage reached 100")
	}

	p.Stop() // idempotent
}

func TestPoller_StopIsSafeToCallTwice(t *testing.T) {
	acct := New("sess-1", 100, 1, nil, nil)
	p := StartPoller(context.Background(), acct, time.Hour)

	require.NotPanics(t, func() {
		p.Stop()
		p.Stop()
	})
}
