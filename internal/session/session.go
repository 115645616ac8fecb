// Package session owns the upload session record and the operations that
// create, resume, and poll it against the remote endpoint.
package session

import (
	"time"
)

// Record is the identity of an in-progress upload. It is created by
// Manager.Create on a successful session POST and mutated only through
// Manager/the chunk uploader, orchestrated by the caller — never shared
// mutable state beyond that single owner.
type Record struct {
	SessionID   string
	Endpoint    string
	TotalSize   int64
	ChunkSize   int64
	TotalChunks int64
	Uploaded    int64
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	Digest      string
	Metadata    map[string]any
	Token       string // server-issued auth token, when present
	ResumeURL   string
}

// AuthToken implements authheader.SessionTokenSource so a *Record can be
// passed directly to authheader.Resolve. A nil Record reports no token.
func (r *Record) AuthToken() string {
	if r == nil {
		return ""
	}

	return r.Token
}

// Expired reports whether ExpiresAt is set and in the past, relative to now.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}
