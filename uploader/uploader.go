// Package uploader is the public facade for uploadkit: a single Run call
// drives a file through session creation (or resumption), chunked upload
// with bounded retries, progress accounting, and completion verification.
package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/resumable/uploadkit/internal/authheader"
	"github.com/resumable/uploadkit/internal/bandwidth"
	"github.com/resumable/uploadkit/internal/chunkio"
	"github.com/resumable/uploadkit/internal/chunkupload"
	"github.com/resumable/uploadkit/internal/digest"
	"github.com/resumable/uploadkit/internal/httpclient"
	"github.com/resumable/uploadkit/internal/progress"
	"github.com/resumable/uploadkit/internal/session"
	"github.com/resumable/uploadkit/internal/sessionstore"
	"github.com/resumable/uploadkit/internal/uploaderr"
	"github.com/resumable/uploadkit/internal/verify"
)

// Status is the terminal (or current) state of an upload run.
type Status string

// Run lifecycle states per the data model.
const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusVerifying  Status = "verifying"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Request describes one upload invocation: the local file, the remote
// session endpoint, and the options governing chunking, retries, and auth.
type Request struct {
	LocalPath string
	Endpoint  string
	MimeType  string

	Options Options
}

// Options configures a run. Zero values fall back to the architecture §6
// defaults applied by resolveOptions.
type Options struct {
	ChunkSize         int64
	MaxRetries        int
	Timeout           time.Duration
	ChecksumAlgorithm digest.Algorithm
	BandwidthLimit    int64 // bytes/sec, 0 = unlimited
	ProgressInterval  time.Duration
	Credential        *authheader.Credential
	Sink              progress.Sink

	// ExtraHeaders, when set, is sent on every request this run issues
	// (session creation/resume, chunk PUTs, verification), in addition to
	// auth and content headers.
	ExtraHeaders http.Header

	// Store, when non-nil, is consulted before create_session when no
	// SessionID is given (an unexpired cached record is used instead of
	// creating a new session), saved after every chunk, and its row is
	// deleted on completion. A nil Store disables local session
	// persistence entirely.
	Store *sessionstore.Store

	// SessionID, when set, tells Run to resume an existing session instead
	// of creating a new one.
	SessionID string

	// Parallelism, when greater than 1, uploads chunks concurrently via
	// chunkupload.Uploader.UploadRange instead of the default sequential
	// loop. A mid-run SessionNotFound in parallel mode aborts the whole
	// batch rather than resuming mid-batch; the sequential path is the one
	// that resumes cleanly chunk-by-chunk.
	Parallelism int

	Logger *slog.Logger
}

// Result is the outcome of a completed (or failed) Run.
type Result struct {
	Session     *session.Record
	Status      Status
	Progress    progress.Info
	Chunks      []*chunkupload.Result
	Errors      []error
	Verification *verify.Result
	// FinalURL is the location of the completed upload on success, per
	// architecture §4.9 (session.endpoint once every chunk has landed).
	FinalURL    string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

const (
	defaultChunkSize  = 5 * 1024 * 1024
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
)

func resolveOptions(o Options) Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}

	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}

	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}

	if o.ChecksumAlgorithm == "" {
		o.ChecksumAlgorithm = digest.SHA256
	}

	if o.ProgressInterval <= 0 {
		o.ProgressInterval = progress.DefaultPollInterval
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}

// Run drives req through the full upload state machine and returns a
// Result describing every chunk outcome, the final verification, and the
// terminal status. Run never panics on caller input; all failures surface
// through the returned error and Result.Status.
func Run(ctx context.Context, req Request) (*Result, error) {
	opts := resolveOptions(req.Options)
	started := time.Now()

	result := &Result{StartedAt: started, Status: StatusPending}

	info, err := os.Stat(req.LocalPath)
	if err != nil {
		return failWith(result, uploaderr.New(uploaderr.CodeIoError, false,
			fmt.Sprintf("stat %s: %v", req.LocalPath, err), nil))
	}

	httpClient := httpclient.New(nil, opts.Logger)
	httpClient.ExtraHeaders = opts.ExtraHeaders
	sessionMgr := session.NewManager(httpClient, opts.Timeout)

	fileDigest, err := opts.ChecksumAlgorithm.File(req.LocalPath)
	if err != nil {
		return failWith(result, err)
	}

	rec, err := acquireSession(ctx, sessionMgr, req, opts, info, fileDigest)
	if err != nil {
		return failWith(result, err)
	}

	result.Session = rec
	result.Status = StatusUploading

	bw := bandwidth.New(opts.BandwidthLimit)
	chunkUploader := chunkupload.New(httpClient, opts.ChecksumAlgorithm, opts.Timeout)
	chunkUploader.Bandwidth = bw

	acct := progress.New(rec.SessionID, rec.TotalSize, int(rec.TotalChunks), opts.Sink, opts.Logger)
	poller := progress.StartPoller(ctx, acct, opts.ProgressInterval)
	defer poller.Stop()

	// rec.Uploaded is a byte count, not a file size — chunkio.TotalChunks'
	// "empty ⇒ 1 chunk" rule does not apply here; a fresh session always has
	// Uploaded == 0 and must start at chunk index 0.
	startChunk := rec.Uploaded / rec.ChunkSize

	if opts.Parallelism > 1 {
		return runParallel(ctx, chunkUploader, rec, req, opts, acct, startChunk, result)
	}

	for idx := startChunk; idx < rec.TotalChunks; idx++ {
		select {
		case <-ctx.Done():
			return failWith(result, uploaderr.New(uploaderr.CodeCancelled, false, "upload cancelled", nil))
		default:
		}

		chunkResult, err := chunkUploader.Upload(ctx, rec, req.LocalPath, idx, opts.MaxRetries, opts.Credential)
		if err != nil {
			recovery := uploaderr.Classify(err)
			if recovery.Action == uploaderr.ActionResume {
				rec, err = resumeSession(ctx, sessionMgr, opts, rec)
				if err != nil {
					return failWith(result, err)
				}

				result.Session = rec
				idx = rec.Uploaded/rec.ChunkSize - 1

				continue
			}

			return failWith(result, err)
		}

		result.Chunks = append(result.Chunks, chunkResult)
		rec.Uploaded += chunkResult.Size

		_, _, size := chunkio.Range(idx, rec.ChunkSize, rec.TotalSize)
		result.Progress = acct.RecordChunk(size, time.Now())

		persistSession(ctx, opts, req, rec)
	}

	return finalize(ctx, httpClient, req, opts, rec, result)
}

// runParallel uploads every remaining chunk concurrently via
// chunkupload.Uploader.UploadRange, then verifies exactly as the sequential
// path does. It does not attempt a mid-batch resume: a SessionNotFound
// anywhere in the batch fails the whole run, since re-entering the session
// mid-flight while other chunk uploads are still in-flight against the old
// session would race.
func runParallel(
	ctx context.Context, chunkUploader *chunkupload.Uploader, rec *session.Record, req Request,
	opts Options, acct *progress.Accountant, startChunk int64, result *Result,
) (*Result, error) {
	indices := make([]int64, 0, rec.TotalChunks-startChunk)
	for idx := startChunk; idx < rec.TotalChunks; idx++ {
		indices = append(indices, idx)
	}

	chunkResults, err := chunkUploader.UploadRange(ctx, rec, req.LocalPath, indices, opts.MaxRetries, opts.Parallelism, opts.Credential)
	if err != nil {
		return failWith(result, err)
	}

	now := time.Now()

	for _, chunkResult := range chunkResults {
		result.Chunks = append(result.Chunks, chunkResult)
		rec.Uploaded += chunkResult.Size
		result.Progress = acct.RecordChunk(chunkResult.Size, now)
	}

	persistSession(ctx, opts, req, rec)

	httpClient := chunkUploader.HTTP

	return finalize(ctx, httpClient, req, opts, rec, result)
}

// finalize runs completion verification and sets the terminal status,
// shared by both the sequential and parallel upload paths. Per architecture
// §4.9, status becomes completed once every chunk has landed regardless of
// verification outcome — a failed verification is surfaced through
// Result.Verification.Verified and an appended VerificationFailed error, not
// a failed run.
func finalize(
	ctx context.Context, httpClient *httpclient.Client, req Request, opts Options, rec *session.Record, result *Result,
) (*Result, error) {
	result.Status = StatusVerifying

	url := finalURL(rec)

	verifier := verify.New(httpClient, opts.ChecksumAlgorithm, opts.Timeout)
	result.Verification = verifier.Verify(ctx, url, req.LocalPath, opts.Credential)

	if !result.Verification.Verified {
		result.Errors = append(result.Errors, uploaderr.New(uploaderr.CodeVerificationFailed, false,
			fmt.Sprintf("verification failed: %v", result.Verification.Issues), nil))
	}

	result.Status = StatusCompleted
	result.FinalURL = rec.Endpoint
	discardSession(ctx, opts, req)

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	return result, nil
}

// acquireSession resolves the session for a run. An explicit
// Options.SessionID is resumed through resume_session, without consulting
// the local store. Otherwise an unexpired record cached in the local store
// is used as-is, and when there is none a fresh create_session is issued;
// this path never calls resume_session.
func acquireSession(
	ctx context.Context, mgr *session.Manager, req Request, opts Options, info os.FileInfo, fileDigest string,
) (*session.Record, error) {
	if opts.SessionID != "" {
		return resumeSession(ctx, mgr, opts, &session.Record{SessionID: opts.SessionID, Endpoint: req.Endpoint})
	}

	if opts.Store != nil {
		key := sessionstore.Key(req.Endpoint, req.LocalPath)

		cached, err := opts.Store.Load(ctx, key)
		if err == nil && cached != nil && !cached.Expired(time.Now()) {
			return cached, nil
		}
	}

	chunkSize, err := resolveChunkSize(opts)
	if err != nil {
		return nil, err
	}

	return mgr.Create(ctx, req.Endpoint, session.FileInfo{
		Name: info.Name(), Size: info.Size(), MimeType: req.MimeType,
	}, fileDigest, chunkSize, opts.Credential)
}

func resolveChunkSize(opts Options) (int64, error) {
	if opts.ChunkSize > 0 {
		return opts.ChunkSize, nil
	}

	return defaultChunkSize, nil
}

// resumeSession re-hydrates rec from the server, per the §9 precedence: the
// session-issued token, when rec has one, authenticates the resume call in
// place of the caller's credential. SessionNotFound here is terminal — re-creating a brand new session after
// losing server-side state is a caller decision, not this function's.
func resumeSession(ctx context.Context, mgr *session.Manager, opts Options, rec *session.Record) (*session.Record, error) {
	cred := opts.Credential
	if rec.Token != "" {
		cred = &authheader.Credential{Kind: authheader.KindBearer, Value: rec.Token}
	}

	return mgr.Resume(ctx, rec.SessionID, rec.Endpoint, cred)
}

func persistSession(ctx context.Context, opts Options, req Request, rec *session.Record) {
	if opts.Store == nil {
		return
	}

	key := sessionstore.Key(req.Endpoint, req.LocalPath)
	if err := opts.Store.Save(ctx, key, rec); err != nil {
		opts.Logger.Warn("persisting session state failed", slog.String("error", err.Error()))
	}
}

func discardSession(ctx context.Context, opts Options, req Request) {
	if opts.Store == nil {
		return
	}

	key := sessionstore.Key(req.Endpoint, req.LocalPath)
	if err := opts.Store.Delete(ctx, key); err != nil {
		opts.Logger.Warn("discarding completed session state failed", slog.String("error", err.Error()))
	}
}

func finalURL(rec *session.Record) string {
	if rec.ResumeURL != "" {
		return rec.ResumeURL
	}

	return rec.Endpoint + "/" + rec.SessionID
}

func failWith(result *Result, err error) (*Result, error) {
	result.Status = StatusFailed
	result.Errors = append(result.Errors, err)
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	return result, err
}
