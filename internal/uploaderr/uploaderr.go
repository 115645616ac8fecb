// Package uploaderr defines the stable error taxonomy shared by every stage
// of the upload pipeline, plus the recovery policy that maps an error code to
// {retry(delay), resume, abort}.
package uploaderr

import (
	"fmt"
	"time"
)

// Code is a stable, comparable identifier for a class of upload failure.
type Code string

// Taxonomy per architecture §4.8. Values are the wire-stable strings callers
// may log, report, or branch on.
const (
	CodeNetworkError             Code = "NetworkError"
	CodeTimeout                  Code = "Timeout"
	CodeAuthFailed                Code = "AuthFailed"
	CodeAuthParseError            Code = "AuthParseError"
	CodeAuthNetworkError          Code = "AuthNetworkError"
	CodeParseError                Code = "ParseError"
	CodeConfigError               Code = "ConfigError"
	CodeSessionCreationFailed     Code = "SessionCreationFailed"
	CodeSessionNotFound           Code = "SessionNotFound"
	CodeResumeFailed              Code = "ResumeFailed"
	CodeResumeNetworkError        Code = "ResumeNetworkError"
	CodeResumeTimeout             Code = "ResumeTimeout"
	CodeResumeParseError          Code = "ResumeParseError"
	CodeChunkUploadFailed         Code = "ChunkUploadFailed"
	CodeChunkNetworkError         Code = "ChunkNetworkError"
	CodeChunkTimeout              Code = "ChunkTimeout"
	CodeProgressFetchFailed       Code = "ProgressFetchFailed"
	CodeProgressParseError        Code = "ProgressParseError"
	CodeProgressNetworkError      Code = "ProgressNetworkError"
	CodeVerificationFailed        Code = "VerificationFailed"
	CodeVerificationNetworkError  Code = "VerificationNetworkError"
	CodeMaxRetriesExceeded        Code = "MaxRetriesExceeded"
	CodeOutOfRange                Code = "OutOfRange"
	CodeIoError                   Code = "IoError"
	CodeCancelled                 Code = "Cancelled"
)

// Error is the concrete error type produced by every package in this module.
// It carries enough context for a caller to classify, log, and — via
// Retryable — decide what to do next, without inspecting Details.
type Error struct {
	Code       Code
	Message    string
	ChunkIndex *int // nil when not chunk-scoped
	retryable  bool
	Timestamp  time.Time
	Details    map[string]any
}

// New constructs an Error stamped with time.Now(). Callers that need a
// deterministic timestamp (e.g. tests) use NewAt instead.
func New(code Code, retryable bool, message string, details map[string]any) *Error {
	return NewAt(code, retryable, message, details, time.Now())
}

// NewAt is New with an explicit timestamp, used by tests and by callers that
// already have a consistent clock (e.g. the orchestrator's run-scoped clock).
func NewAt(code Code, retryable bool, message string, details map[string]any, ts time.Time) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		retryable: retryable,
		Timestamp: ts,
		Details:   details,
	}
}

// WithChunk returns a copy of e scoped to the given chunk index.
func (e *Error) WithChunk(index int) *Error {
	cp := *e
	cp.ChunkIndex = &index

	return &cp
}

func (e *Error) Error() string {
	if e.ChunkIndex != nil {
		return fmt.Sprintf("uploadkit: %s (chunk %d): %s", e.Code, *e.ChunkIndex, e.Message)
	}

	return fmt.Sprintf("uploadkit: %s: %s", e.Code, e.Message)
}

// Retryable reports whether this specific error instance may be retried.
// It is a method, not a stored struct field callers can mutate, matching
// the sum-type-with-behavior shape used throughout this module.
func (e *Error) Retryable() bool {
	return e.retryable
}

// Action is the outcome of consulting the recovery policy for a failed
// attempt: retry after Delay, resume the session, or abort entirely.
type Action int

const (
	// ActionAbort terminates the upload; the error propagates to the caller.
	ActionAbort Action = iota
	// ActionRetry re-attempts the same operation after Delay.
	ActionRetry
	// ActionResume re-hydrates the session via the session manager and
	// restarts from the first still-pending chunk.
	ActionResume
)

// Recovery is the result of Classify: what to do, and how long to wait
// before doing it (meaningful only for ActionRetry).
type Recovery struct {
	Action Action
	Delay  time.Duration
}

const (
	networkRetryDelay = 1 * time.Second
	defaultRetryDelay = 2 * time.Second
)

// Classify maps an error to a recovery action per architecture §4.8:
//   - NetworkError, Timeout, ChunkNetworkError, ChunkTimeout -> retry, 1s
//   - AuthFailed, AuthParseError -> abort
//   - SessionNotFound -> resume
//   - any other retryable error -> retry, 2s
//   - any non-retryable error -> abort
func Classify(err error) Recovery {
	ue, ok := err.(*Error)
	if !ok {
		return Recovery{Action: ActionAbort}
	}

	switch ue.Code {
	case CodeNetworkError, CodeTimeout, CodeChunkNetworkError, CodeChunkTimeout:
		return Recovery{Action: ActionRetry, Delay: networkRetryDelay}
	case CodeAuthFailed, CodeAuthParseError:
		return Recovery{Action: ActionAbort}
	case CodeSessionNotFound:
		return Recovery{Action: ActionResume}
	}

	if ue.Retryable() {
		return Recovery{Action: ActionRetry, Delay: defaultRetryDelay}
	}

	return Recovery{Action: ActionAbort}
}
