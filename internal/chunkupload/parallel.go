package chunkupload

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/resumable/uploadkit/internal/authheader"
	"github.com/resumable/uploadkit/internal/session"
)

// UploadRange uploads every chunk in indices against rec, bounded to at most
// concurrency simultaneous in-flight requests. This is the optional
// bounded-parallelism mode architecture §4.9 allows as an implementation
// detail — the default upload path (Uploader.Upload called once per index
// from a sequential loop) remains the standard path; this entry point only
// engages when a caller explicitly opts into Options.Parallelism > 1.
//
// Results are returned sorted by chunk index regardless of completion order,
// so a caller folding them into progress/session state sees them in the
// same order the sequential path would produce. A failure on any chunk
// cancels the remaining in-flight chunks and the error propagates as-is —
// callers needing resume-on-partial-failure semantics should fall back to
// the sequential path, which interleaves uploaderr.Classify inspection
// between chunks.
func (u *Uploader) UploadRange(
	ctx context.Context, rec *session.Record, path string, indices []int64,
	maxRetries, concurrency int, cred *authheader.Credential,
) ([]*Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	results := make([]*Result, len(indices))

	for i, idx := range indices {
		i, idx := i, idx

		group.Go(func() error {
			result, err := u.Upload(groupCtx, rec, path, idx, maxRetries, cred)
			if err != nil {
				return err
			}

			results[i] = result

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(a, b int) bool { return results[a].Index < results[b].Index })

	return results, nil
}
