// Package bandwidth provides a shared rate limiter for chunk upload bodies,
// so a configured bytes/sec cap applies across the whole upload rather than
// per chunk.
package bandwidth

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// burstMultiplier controls the token bucket burst size relative to the
// per-second rate, allowing short idle periods (e.g. digest computation) to
// bank tokens spendable on the next chunk read.
const burstMultiplier = 2

// Limiter rate-limits reads from chunk bodies.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter capped at bytesPerSec. A non-positive bytesPerSec
// means unlimited — New returns nil, and nil-safe wrappers below pass reads
// through unchanged.
func New(bytesPerSec int64) *Limiter {
	if bytesPerSec <= 0 {
		return nil
	}

	burst := int(bytesPerSec) * burstMultiplier

	return &Limiter{limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst)}
}

// WrapReader returns a rate-limited io.Reader. If l is nil, r is returned
// unchanged.
func (l *Limiter) WrapReader(ctx context.Context, r io.Reader) io.Reader {
	if l == nil {
		return r
	}

	return &limitedReader{r: r, limiter: l.limiter, ctx: ctx}
}

type limitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	n, err := lr.r.Read(p)
	if n > 0 {
		if waitErr := waitN(lr.limiter, lr.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

// waitN splits a large token request into burst-sized chunks, since
// rate.Limiter.WaitN rejects requests exceeding the burst size.
func waitN(limiter *rate.Limiter, ctx context.Context, n int) error {
	burst := limiter.Burst()

	for n > 0 {
		take := n
		if take > burst {
			take = burst
		}

		if err := limiter.WaitN(ctx, take); err != nil {
			return err
		}

		n -= take
	}

	return nil
}
