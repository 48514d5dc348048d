package upstream

import "fmt"

// AuthProvider supplies the Authorization header value for an upstream's
// HTTP-streaming or SSE transport. Upstream auth here is limited to
// static bearer tokens; device-code/OAuth flows are out of scope.
type AuthProvider interface {
	GetAuthHeader() (string, error)
}

// BearerTokenAuth implements AuthProvider with a fixed token from config or
// an expanded environment variable.
type BearerTokenAuth struct {
	token string
}

// NewBearerTokenAuth wraps a static token.
func NewBearerTokenAuth(token string) *BearerTokenAuth {
	return &BearerTokenAuth{token: token}
}

func (b *BearerTokenAuth) GetAuthHeader() (string, error) {
	return fmt.Sprintf("Bearer %s", b.token), nil
}
