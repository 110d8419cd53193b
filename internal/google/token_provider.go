package google

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// TokenProvider supplies the live delegated-access grant to API clients.
// The session manager is the production implementation.
type TokenProvider interface {
	// IsReady reports whether a grant is available right now.
	IsReady() bool

	// TokenSource returns a source that refreshes the grant as needed.
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// StaticTokenProvider serves a fixed token. It never refreshes.
type StaticTokenProvider struct {
	Token *oauth2.Token
}

// IsReady reports whether a token is set.
func (p StaticTokenProvider) IsReady() bool {
	return p.Token != nil && p.Token.AccessToken != ""
}

// TokenSource returns a source yielding the fixed token.
func (p StaticTokenProvider) TokenSource(context.Context) (oauth2.TokenSource, error) {
	return oauth2.StaticTokenSource(p.Token), nil
}

// ClientOptions authorizes a Google API service with the provider's grant.
// extra is appended last, so it can override the endpoint.
func ClientOptions(ctx context.Context, provider TokenProvider, extra ...option.ClientOption) ([]option.ClientOption, error) {
	if provider == nil {
		return nil, errors.New("token provider cannot be nil")
	}
	ts, err := provider.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithHTTPClient(NewHTTPClient(ts, nil))}
	return append(opts, extra...), nil
}
