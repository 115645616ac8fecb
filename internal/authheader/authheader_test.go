package authheader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestHeaders_Nil(t *testing.T) {
	h := Headers(nil)
	assert.Empty(t, h)
}

func TestHeaders_Basic(t *testing.T) {
	h := Headers(&Credential{Kind: KindBasic, Value: "user:pass"})
	assert.Equal(t, "Basic dXNlcjpwYXNz", h.Get("Authorization"))
}

func TestHeaders_Bearer(t *testing.T) {
	h := Headers(&Credential{Kind: KindBearer, Value: "tok123"})
	assert.Equal(t, "Bearer tok123", h.Get("Authorization"))
}

func TestHeaders_BearerWithTokenSource(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "from-source"})
	h := Headers(&Credential{Kind: KindBearer, Value: "ignored", TokenSource: ts})
	assert.Equal(t, "Bearer from-source", h.Get("Authorization"))
}

func TestHeaders_APIKey_DefaultHeaderName(t *testing.T) {
	h := Headers(&Credential{Kind: KindAPIKey, Value: "key-abc"})
	assert.Equal(t, "key-abc", h.Get(DefaultAPIKeyHeader))
}

func TestHeaders_APIKey_CustomHeaderName(t *testing.T) {
	h := Headers(&Credential{Kind: KindAPIKey, Value: "key-abc", HeaderName: "X-Custom-Key"})
	assert.Equal(t, "key-abc", h.Get("X-Custom-Key"))
}

type stubSession struct{ token string }

func (s stubSession) AuthToken() string { return s.token }

func TestResolve_SessionTokenWins(t *testing.T) {
	h := Resolve(context.Background(), stubSession{token: "session-tok"}, &Credential{Kind: KindBasic, Value: "u:p"})
	assert.Equal(t, "Bearer session-tok", h.Get("Authorization"))
}

func TestResolve_FallsBackToCaller(t *testing.T) {
	h := Resolve(context.Background(), stubSession{token: ""}, &Credential{Kind: KindAPIKey, Value: "k"})
	assert.Equal(t, "k", h.Get(DefaultAPIKeyHeader))
}

func TestResolve_NilSession(t *testing.T) {
	h := Resolve(context.Background(), nil, &Credential{Kind: KindBearer, Value: "direct"})
	assert.Equal(t, "Bearer direct", h.Get("Authorization"))
}
