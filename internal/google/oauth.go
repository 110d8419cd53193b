package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// RevokeURL is Google's token revocation endpoint.
const RevokeURL = "https://oauth2.googleapis.com/revoke"

// Endpoint is Google's authorization and token endpoint pair.
var Endpoint = googleoauth.Endpoint

// NewOAuthConfig builds the oauth2 configuration for identity. A zero
// endpoint selects Google's.
func NewOAuthConfig(identity *ApplicationIdentity, scopes []string, endpoint oauth2.Endpoint) *oauth2.Config {
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = Endpoint
	}
	return &oauth2.Config{
		ClientID:     identity.ClientID,
		ClientSecret: identity.ClientSecret,
		RedirectURL:  identity.RedirectURL(),
		Scopes:       scopes,
		Endpoint:     endpoint,
	}
}

// AuthCodeURL builds a consent URL requesting offline access and forcing the
// consent screen, so a refresh token is always issued. An empty state is omitted.
func AuthCodeURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// GenerateState returns a random value for the OAuth state parameter.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RevokeToken asks the authorization server to invalidate token. Google
// revokes the whole grant when given either the access or the refresh token.
func RevokeToken(ctx context.Context, client *http.Client, revokeURL, token string) error {
	if token == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	if revokeURL == "" {
		revokeURL = RevokeURL
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("failed to revoke token: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// apiTransport is shared by every API client so that connections are pooled
// across tool calls. It speaks HTTP/1.1 only.
var apiTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	ForceAttemptHTTP2:     false,
	MaxIdleConns:          32,
	MaxIdleConnsPerHost:   8,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: time.Second,
}

// NewHTTPClient returns a client that authorizes every request with ts.
// Only the authorizing wrapper is built per call; a nil base selects the
// shared API transport.
func NewHTTPClient(ts oauth2.TokenSource, base http.RoundTripper) *http.Client {
	if base == nil {
		base = apiTransport
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: base},
	}
}
