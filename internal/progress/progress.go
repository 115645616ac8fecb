// Package progress tracks bytes uploaded, smoothed speed, ETA, and
// percentage for a single in-progress upload, and pushes events to a
// caller-supplied sink after every chunk completion and on polled updates.
package progress

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Info is one point-in-time snapshot of upload progress. Sunk instances are
// values, not pointers, so a sink cannot observe (or corrupt) the
// accountant's internal state.
type Info struct {
	SessionID       string
	BytesUploaded   int64
	BytesTotal      int64
	Percentage      float64
	ChunksCompleted int
	ChunksTotal     int
	CurrentChunk    *int
	SpeedBytesPerSec float64
	ETASeconds      float64
	StartedAt       time.Time
	LastUpdate      time.Time
}

// String renders a human-readable one-line summary, used by the CLI's
// interactive (terminal) live progress line.
func (i Info) String() string {
	return humanize.Bytes(uint64(i.BytesUploaded)) + "/" + humanize.Bytes(uint64(i.BytesTotal)) +
		" (" + humanize.FormatFloat("#.##", i.Percentage) + "%) @ " +
		humanize.Bytes(uint64(i.SpeedBytesPerSec)) + "/s, eta " +
		time.Duration(i.ETASeconds*float64(time.Second)).Round(time.Second).String()
}

// Sink receives pushed progress events. Implementations that are installed
// from multiple places (e.g. both a CLI printer and a metrics exporter) must
// be reentrancy-safe themselves — the accountant makes no locking guarantee
// beyond not calling a sink concurrently with itself.
type Sink func(Info)

// Accountant computes and emits progress events. It holds no reference to
// session or chunk state beyond what it needs to compute Info — the
// orchestrator remains the owner of the session record.
type Accountant struct {
	mu sync.Mutex

	sessionID  string
	bytesTotal int64
	chunksTotal int
	startedAt  time.Time

	bytesUploaded   int64
	chunksCompleted int
	lastUpdate      time.Time

	speed speedRing

	sink   Sink
	logger *slog.Logger
}

// New creates an Accountant for a session of the given total size and chunk
// count. sink may be nil, in which case events are computed but discarded.
func New(sessionID string, bytesTotal int64, chunksTotal int, sink Sink, logger *slog.Logger) *Accountant {
	if logger == nil {
		logger = slog.Default()
	}

	now := time.Now()

	return &Accountant{
		sessionID:   sessionID,
		bytesTotal:  bytesTotal,
		chunksTotal: chunksTotal,
		startedAt:   now,
		lastUpdate:  now,
		sink:        sink,
		logger:      logger,
	}
}

// RecordChunk updates accounting for one completed chunk of chunkSize bytes
// and emits the resulting Info to the sink. now is supplied by the caller
// (the orchestrator's run clock) rather than taken via time.Now() here, so
// tests can drive the smoothed-speed window deterministically.
func (a *Accountant) RecordChunk(chunkSize int64, now time.Time) Info {
	a.mu.Lock()
	defer a.mu.Unlock()

	elapsed := now.Sub(a.lastUpdate).Seconds()
	if elapsed > 0 {
		a.speed.add(float64(chunkSize) / elapsed)
	}

	a.bytesUploaded += chunkSize
	a.chunksCompleted++
	a.lastUpdate = now

	info := a.snapshotLocked(nil)
	a.emit(info)

	return info
}

// Snapshot returns the current progress without recording a new chunk. Used
// by a periodic poller (see Poller) to emit updates between chunk
// completions.
func (a *Accountant) Snapshot(currentChunk *int) Info {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.snapshotLocked(currentChunk)
}

func (a *Accountant) snapshotLocked(currentChunk *int) Info {
	var percentage float64
	if a.bytesTotal > 0 {
		percentage = 100 * float64(a.bytesUploaded) / float64(a.bytesTotal)
	}

	speed := a.speed.mean()

	var eta float64
	if speed > 0 {
		eta = float64(a.bytesTotal-a.bytesUploaded) / speed
	}

	return Info{
		SessionID:        a.sessionID,
		BytesUploaded:    a.bytesUploaded,
		BytesTotal:       a.bytesTotal,
		Percentage:       percentage,
		ChunksCompleted:  a.chunksCompleted,
		ChunksTotal:      a.chunksTotal,
		CurrentChunk:     currentChunk,
		SpeedBytesPerSec: speed,
		ETASeconds:       eta,
		StartedAt:        a.startedAt,
		LastUpdate:       a.lastUpdate,
	}
}

func (a *Accountant) emit(info Info) {
	if a.sink == nil {
		return
	}

	a.sink(info)
}

// EmitPolled computes and pushes a Snapshot to the sink, returning it so the
// caller can act on it (see Poller, which stops itself once Percentage
// reaches 100). Distinct from RecordChunk: it does not mutate accounting
// state.
func (a *Accountant) EmitPolled(currentChunk *int) Info {
	a.mu.Lock()
	defer a.mu.Unlock()

	info := a.snapshotLocked(currentChunk)
	a.emit(info)

	return info
}
