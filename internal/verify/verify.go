// Package verify performs the end-to-end completion check: a HEAD to the
// upload endpoint (or resolved final URL) compared against the locally
// recomputed whole-file digest.
package verify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/resumable/uploadkit/internal/authheader"
	"github.com/resumable/uploadkit/internal/digest"
	"github.com/resumable/uploadkit/internal/httpclient"
)

// Method identifies how a Result was produced.
type Method string

// Supported verification methods. Only checksum is implemented by this
// package; signature/manual are recognized values a caller may set on a
// Result it constructs itself (e.g. a manual override workflow).
const (
	MethodChecksum  Method = "checksum"
	MethodSignature Method = "signature"
	MethodManual    Method = "manual"
)

// Result is the completion verification record.
type Result struct {
	Verified   bool
	Local      string
	Remote     string
	VerifiedAt time.Time
	Method     Method
	Evidence   []string
	Issues     []string
}

// Verifier compares a locally recomputed digest against the server's
// reported digest.
type Verifier struct {
	HTTP    *httpclient.Client
	Digest  digest.Algorithm
	Timeout time.Duration
}

// New constructs a Verifier.
func New(client *httpclient.Client, algo digest.Algorithm, timeout time.Duration) *Verifier {
	return &Verifier{HTTP: client, Digest: algo, Timeout: timeout}
}

// Verify re-streams localPath to recompute its digest, issues a HEAD to url
// with cred's headers, and compares the result against the response's
// X-File-Checksum header. On missing header or transport failure, Verified
// is false, Remote is "unknown", and Issues carries a description — it never
// returns an error, since a failed verification is a recorded outcome, not
// a pipeline failure (architecture §4.10, §7).
func (v *Verifier) Verify(ctx context.Context, url, localPath string, cred *authheader.Credential) *Result {
	local, err := v.Digest.File(localPath)
	if err != nil {
		return &Result{
			Remote: "unknown",
			Method: MethodChecksum,
			Issues: []string{fmt.Sprintf("local digest computation failed: %v", err)},
		}
	}

	resp, err := v.HTTP.Head(ctx, url, authheader.Headers(cred), v.Timeout)
	if err != nil {
		return &Result{
			Local:  local,
			Remote: "unknown",
			Method: MethodChecksum,
			Issues: []string{fmt.Sprintf("verification HEAD request failed: %v", err)},
		}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &Result{
			Local:  local,
			Remote: "unknown",
			Method: MethodChecksum,
			Issues: []string{fmt.Sprintf("verification HEAD returned HTTP %d", resp.StatusCode)},
		}
	}

	remote := resp.Headers.Get("X-File-Checksum")
	if remote == "" {
		return &Result{
			Local:      local,
			Remote:     "unknown",
			Method:     MethodChecksum,
			VerifiedAt: time.Now(),
			Issues:     []string{"server did not report X-File-Checksum"},
		}
	}

	if remote != local {
		return &Result{
			Local:      local,
			Remote:     remote,
			Method:     MethodChecksum,
			VerifiedAt: time.Now(),
			Issues:     []string{fmt.Sprintf("checksum mismatch: local=%s remote=%s", local, remote)},
		}
	}

	return &Result{
		Verified:   true,
		Local:      local,
		Remote:     remote,
		Method:     MethodChecksum,
		VerifiedAt: time.Now(),
		Evidence:   []string{"X-File-Checksum header matches recomputed local digest"},
	}
}
