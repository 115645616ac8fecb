// Package authheader translates a credential record into HTTP headers, and
// resolves precedence between caller-supplied credentials and a
// session-issued token.
package authheader

import (
	"context"
	"encoding/base64"
	"net/http"

	"golang.org/x/oauth2"
)

// Kind identifies the shape of a credential.
type Kind string

// Supported credential kinds.
const (
	KindBasic  Kind = "basic"
	KindBearer Kind = "bearer"
	KindAPIKey Kind = "api-key"
)

// DefaultAPIKeyHeader is used when Credential.HeaderName is empty.
const DefaultAPIKeyHeader = "X-API-Key"

// Credential is a caller-supplied auth record. An empty Kind (or a nil
// *Credential) yields an empty header map — no credentials presented.
type Credential struct {
	Kind       Kind
	Value      string // basic: "user:pass" (pre-colon, not yet base64); bearer: token; api-key: key
	HeaderName string // api-key only; defaults to DefaultAPIKeyHeader

	// TokenSource, when set, overrides Value for KindBearer by pulling a
	// live (refreshable) OAuth2 token instead of a static string. This lets
	// callers plug an oauth2.TokenSource in directly rather than
	// re-implementing refresh logic on top of a static bearer string.
	TokenSource oauth2.TokenSource
}

// Headers returns the header map produced by cred. A nil cred or one with an
// empty Kind returns an empty, non-nil map.
func Headers(cred *Credential) http.Header {
	h := http.Header{}

	if cred == nil || cred.Kind == "" {
		return h
	}

	switch cred.Kind {
	case KindBasic:
		h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(cred.Value)))
	case KindBearer:
		token := cred.Value

		if cred.TokenSource != nil {
			if tok, err := cred.TokenSource.Token(); err == nil {
				token = tok.AccessToken
			}
		}

		h.Set("Authorization", "Bearer "+token)
	case KindAPIKey:
		name := cred.HeaderName
		if name == "" {
			name = DefaultAPIKeyHeader
		}

		h.Set(name, cred.Value)
	}

	return h
}

// SessionTokenSource is satisfied by session.Record: it exposes the
// server-issued auth token from a successful create_session/resume_session
// call, when present.
type SessionTokenSource interface {
	AuthToken() string
}

// Resolve implements the precedence decided for the open question of §9:
// the session-issued token, once present, is used for chunk/progress/resume
// calls; the caller-supplied credential is used only for create_session and
// authenticate. ctx is accepted (and currently unused) so a future
// TokenSource.Token(ctx) migration does not change this signature.
func Resolve(_ context.Context, sess SessionTokenSource, caller *Credential) http.Header {
	if sess != nil {
		if tok := sess.AuthToken(); tok != "" {
			return Headers(&Credential{Kind: KindBearer, Value: tok})
		}
	}

	return Headers(caller)
}
