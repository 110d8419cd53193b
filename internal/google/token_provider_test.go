package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

type failingProvider struct{ err error }

func (failingProvider) IsReady() bool { return false }

func (p failingProvider) TokenSource(context.Context) (oauth2.TokenSource, error) {
	return nil, p.err
}

func TestStaticTokenProvider(t *testing.T) {
	assert.False(t, StaticTokenProvider{}.IsReady())
	assert.False(t, StaticTokenProvider{Token: &oauth2.Token{}}.IsReady())

	p := StaticTokenProvider{Token: &oauth2.Token{AccessToken: "abc"}}
	assert.True(t, p.IsReady())
	ts, err := p.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
}

func TestClientOptions(t *testing.T) {
	_, err := ClientOptions(context.Background(), nil)
	assert.Error(t, err)

	sentinel := errors.New("not signed in")
	_, err = ClientOptions(context.Background(), failingProvider{err: sentinel})
	assert.ErrorIs(t, err, sentinel)

	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"jane@example.com"}`))
	}))
	defer srv.Close()

	opts, err := ClientOptions(context.Background(),
		StaticTokenProvider{Token: &oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}},
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	info, err := FetchUserInfo(context.Background(), opts...)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", info.Email)
	assert.Equal(t, "Bearer abc", authHeader)
}
