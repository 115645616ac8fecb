// Package chunkupload uploads a single chunk with integrity headers and
// classifies/retries failures per the recovery policy in uploaderr.
package chunkupload

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/resumable/uploadkit/internal/authheader"
	"github.com/resumable/uploadkit/internal/bandwidth"
	"github.com/resumable/uploadkit/internal/chunkio"
	"github.com/resumable/uploadkit/internal/digest"
	"github.com/resumable/uploadkit/internal/httpclient"
	"github.com/resumable/uploadkit/internal/session"
	"github.com/resumable/uploadkit/internal/uploaderr"
)

// Status is the lifecycle state of one chunk.
type Status string

// Chunk lifecycle states per the data model.
const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusVerified   Status = "verified"
)

// Result describes the outcome of uploading one chunk.
type Result struct {
	Index      int64
	Start      int64
	End        int64
	Size       int64
	Status     Status
	Digest     string
	UploadedAt time.Time
	Retries    int
	ErrMessage string
}

// Uploader uploads chunks of a single file against a single session.
type Uploader struct {
	HTTP    *httpclient.Client
	Digest  digest.Algorithm
	Timeout time.Duration

	// Bandwidth, when non-nil, throttles chunk body writes to a configured
	// bytes/sec ceiling shared across the whole upload.
	Bandwidth *bandwidth.Limiter

	// Sleep is called between retry attempts. Defaults to a context-aware
	// time.Sleep; tests override it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New constructs an Uploader whose Sleep waits on the real clock. Sleep must
// stay non-nil: Upload calls it between retry attempts.
func New(client *httpclient.Client, algo digest.Algorithm, timeout time.Duration) *Uploader {
	return &Uploader{HTTP: client, Digest: algo, Timeout: timeout, Sleep: realSleep}
}

func realSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Upload reads the byte range for chunk index from path and PUTs it to the
// session's chunk endpoint, retrying up to maxRetries additional times (so
// maxRetries+1 attempts total) per the recovery policy. If the policy
// returns ActionResume (SessionNotFound), Upload returns that error
// immediately without consuming a retry — re-hydrating the session is the
// orchestrator's job, not this uploader's.
func (u *Uploader) Upload(
	ctx context.Context, rec *session.Record, path string, index int64, maxRetries int, cred *authheader.Credential,
) (*Result, error) {
	start, end, size := chunkio.Range(index, rec.ChunkSize, rec.TotalSize)

	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := u.attempt(ctx, rec, path, index, start, end, size, cred, attempt)
		if err == nil {
			return result, nil
		}

		lastErr = err

		recovery := uploaderr.Classify(err)

		switch recovery.Action {
		case uploaderr.ActionResume:
			return nil, err
		case uploaderr.ActionAbort:
			return nil, err
		case uploaderr.ActionRetry:
			if attempt == maxRetries {
				return nil, uploaderr.New(uploaderr.CodeMaxRetriesExceeded, false,
					fmt.Sprintf("chunk %d: exceeded %d attempts: %v", index, maxRetries+1, err), nil).WithChunk(int(index))
			}

			if sleepErr := u.Sleep(ctx, recovery.Delay); sleepErr != nil {
				return nil, uploaderr.New(uploaderr.CodeCancelled, false,
					fmt.Sprintf("chunk %d: canceled during retry backoff: %v", index, sleepErr), nil).WithChunk(int(index))
			}
		}
	}

	return nil, lastErr
}

func (u *Uploader) attempt(
	ctx context.Context, rec *session.Record, path string, index, start, end, size int64,
	cred *authheader.Credential, attempt int,
) (*Result, error) {
	buf, err := chunkio.Read(path, index, rec.ChunkSize, rec.TotalSize)
	if err != nil {
		return nil, err
	}

	chunkDigest, err := u.Digest.Bytes(buf)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/chunks/%d", rec.Endpoint, rec.SessionID, index)

	headers := authheader.Resolve(ctx, rec, cred)
	headers.Set("Content-Type", "application/octet-stream")
	headers.Set("Content-Length", fmt.Sprintf("%d", size))
	headers.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, rec.TotalSize))
	headers.Set("X-Chunk-Checksum", chunkDigest)

	bodyReader := u.Bandwidth.WrapReader(ctx, bytes.NewReader(buf))

	resp, err := u.HTTP.Do(ctx, httpclient.Request{
		Method: http.MethodPut, URL: url, Headers: headers,
		BodyReader: bodyReader, ContentLength: size, Timeout: u.Timeout,
	})
	if err != nil {
		ue, ok := err.(*uploaderr.Error)
		if !ok {
			return nil, err
		}

		switch ue.Code {
		case uploaderr.CodeNetworkError:
			return nil, uploaderr.New(uploaderr.CodeChunkNetworkError, true, ue.Message, ue.Details).WithChunk(int(index))
		case uploaderr.CodeTimeout:
			return nil, uploaderr.New(uploaderr.CodeChunkTimeout, true, ue.Message, ue.Details).WithChunk(int(index))
		default:
			return nil, err
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, uploaderr.New(uploaderr.CodeSessionNotFound, false,
			fmt.Sprintf("chunk %d: session %s not found", index, rec.SessionID), nil).WithChunk(int(index))
	}

	if !resp.OK() {
		return nil, uploaderr.New(uploaderr.CodeChunkUploadFailed, true,
			fmt.Sprintf("chunk %d: HTTP %d", index, resp.StatusCode),
			map[string]any{"chunkIndex": index, "statusCode": resp.StatusCode, "body": string(resp.Body)}).WithChunk(int(index))
	}

	return &Result{
		Index:      index,
		Start:      start,
		End:        end,
		Size:       size,
		Status:     StatusCompleted,
		Digest:     chunkDigest,
		UploadedAt: time.Now(),
		Retries:    attempt,
	}, nil
}
