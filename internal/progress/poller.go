package progress

import (
	"context"
	"time"
)

// DefaultPollInterval is the default rate at which Poller emits progress
// snapshots between chunk completions (1 Hz per architecture §4.7).
const DefaultPollInterval = 1 * time.Second

// Poller is an explicit task scheduled by the orchestrator — not a shared
// interval timer — that periodically emits a progress snapshot until the
// upload reaches 100% or the caller stops it. Each upload run owns exactly
// one Poller; it is never shared across runs.
type Poller struct {
	accountant *Accountant
	interval   time.Duration
	cancel     context.CancelFunc
	done       chan struct{}
}

// StartPoller launches a Poller against acct at the given interval (0 = use
// DefaultPollInterval). The poller stops itself automatically once
// percentage reaches 100; the orchestrator should also call Stop on any
// terminal status (including failure/cancellation) to avoid a leaked
// goroutine.
func StartPoller(ctx context.Context, acct *Accountant, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{accountant: acct, interval: interval, cancel: cancel, done: make(chan struct{})}

	go p.run(ctx)

	return p
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if info := p.accountant.EmitPolled(nil); info.Percentage >= 100 {
				return
			}
		}
	}
}

// Stop halts the poller and waits for its goroutine to exit. Safe to call
// multiple times.
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}
