package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordChunk_UpdatesAccounting(t *testing.T) {
	var events []Info
	acct := New("sess-1", 1000, 10, func(i Info) { events = append(events, i) }, nil)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	acct.lastUpdate = start

	info := acct.RecordChunk(100, start.Add(time.Second))

	assert.Equal(t, int64(100), info.BytesUploaded)
	assert.Equal(t, 1, info.ChunksCompleted)
	assert.InDelta(t, 10.0, info.Percentage, 0.01)
	require.Len(t, events, 1)
}

func TestRecordChunk_SpeedIsSmoothedAcrossSamples(t *testing.T) {
	acct := New("sess-1", 1000, 10, nil, nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	acct.lastUpdate = start

	info1 := acct.RecordChunk(100, start.Add(time.Second))   // 100 B/s
	info2 := acct.RecordChunk(200, start.Add(2*time.Second)) // 200 B/s

	assert.Greater(t, info2.SpeedBytesPerSec, 0.0)
	assert.NotEqual(t, info1.SpeedBytesPerSec, info2.SpeedBytesPerSec)
}

func TestSnapshot_DoesNotMutateState(t *testing.T) {
	acct := New("sess-1", 1000, 10, nil, nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	acct.lastUpdate = start

	acct.RecordChunk(100, start.Add(time.Second))

	before := acct.Snapshot(nil)
	after := acct.Snapshot(nil)

	assert.Equal(t, before.BytesUploaded, after.BytesUploaded)
	assert.Equal(t, before.ChunksCompleted, after.ChunksCompleted)
}

func TestSnapshot_CurrentChunkPointer(t *testing.T) {
	acct := New("sess-1", 1000, 10, nil, nil)
	idx := 3
	info := acct.Snapshot(&idx)

	require.NotNil(t, info.CurrentChunk)
	assert.Equal(t, 3, *info.CurrentChunk)
}

func TestInfo_String(t *testing.T) {
	info := Info{BytesUploaded: 500, BytesTotal: 1000, Percentage: 50, SpeedBytesPerSec: 100, ETASeconds: 5}
	s := info.String()
	assert.Contains(t, s, "50")
}

func TestEmitPolled_PushesWithoutMutatingCounters(t *testing.T) {
	var events []Info
	acct := New("sess-1", 1000, 10, func(i Info) { events = append(events, i) }, nil)

	acct.EmitPolled(nil)
	require.Len(t, events, 1)
	assert.Equal(t, int64(0), events[0].BytesUploaded)
}
