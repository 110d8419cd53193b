package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/workspace-mcp/internal/google"
)

// fakeMailbox serves a mailbox of n messages in pages of pageSize.
type fakeMailbox struct {
	n        int
	pageSize int

	mu    sync.Mutex
	lists []string
	gets  []string
}

func (f *fakeMailbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	const prefix = "/gmail/v1/users/me/messages"

	switch {
	case r.URL.Path == prefix:
		f.mu.Lock()
		f.lists = append(f.lists, r.URL.RawQuery)
		f.mu.Unlock()

		start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
		size, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))
		size = min(size, f.pageSize)
		end := min(start+size, f.n)

		var msgs []map[string]string
		for i := start; i < end; i++ {
			msgs = append(msgs, map[string]string{"id": fmt.Sprintf("m%d", i), "threadId": "t"})
		}
		resp := map[string]interface{}{"messages": msgs}
		if end < f.n {
			resp["nextPageToken"] = strconv.Itoa(end)
		}
		_ = json.NewEncoder(w).Encode(resp)

	case strings.HasPrefix(r.URL.Path, prefix+"/"):
		id := strings.TrimPrefix(r.URL.Path, prefix+"/")
		f.mu.Lock()
		f.gets = append(f.gets, r.URL.RawQuery)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":           id,
			"threadId":     "t",
			"snippet":      "hello",
			"labelIds":     []string{"INBOX", "UNREAD"},
			"internalDate": "1714986000000",
			"payload": map[string]interface{}{
				"headers": []map[string]string{
					{"name": "Subject", "value": "Subject " + id},
					{"name": "from", "value": "alice@example.com"},
				},
			},
		})

	case r.URL.Path == "/gmail/v1/users/me/profile":
		_, _ = w.Write([]byte(`{"emailAddress":"me@example.com","messagesTotal":42,"threadsTotal":7}`))

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	provider := google.StaticTokenProvider{Token: &oauth2.Token{AccessToken: "test-token"}}
	client, err := NewClient(context.Background(), provider, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return client
}

func TestListMessages(t *testing.T) {
	box := &fakeMailbox{n: 3, pageSize: 100}
	client := newTestClient(t, box)

	msgs, err := client.ListMessages(context.Background(), "in:inbox", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "m0", msgs[0].ID)
	assert.Equal(t, "Subject m0", msgs[0].Subject)
	assert.Equal(t, "alice@example.com", msgs[0].From)
	assert.True(t, msgs[0].Unread)
	assert.Equal(t, int64(1714986000000), msgs[0].Date.UnixMilli())

	require.Len(t, box.lists, 1)
	assert.Contains(t, box.lists[0], "q=in%3Ainbox")
	assert.Contains(t, box.lists[0], "maxResults=10")
	require.Len(t, box.gets, 3)
	assert.Contains(t, box.gets[0], "format=metadata")
	assert.Contains(t, box.gets[0], "metadataHeaders=Subject")
}

func TestListMessagesPaging(t *testing.T) {
	tests := []struct {
		name      string
		mailbox   int
		pageSize  int
		max       int64
		wantCount int
		wantPages int
	}{
		{"single page", 5, 100, 3, 3, 1},
		{"across pages", 7, 3, 7, 7, 3},
		{"stops at limit", 20, 4, 6, 6, 2},
		{"mailbox smaller than limit", 2, 100, 10, 2, 1},
		{"empty mailbox", 0, 100, 5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := &fakeMailbox{n: tt.mailbox, pageSize: tt.pageSize}
			client := newTestClient(t, box)

			msgs, err := client.ListMessages(context.Background(), "", tt.max)
			require.NoError(t, err)
			assert.Len(t, msgs, tt.wantCount)
			assert.Len(t, box.lists, tt.wantPages)
		})
	}
}

func TestListMessagesError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`, http.StatusUnauthorized)
	}))

	_, err := client.ListMessages(context.Background(), "", 5)
	assert.Error(t, err)
}

func TestGetProfile(t *testing.T) {
	client := newTestClient(t, &fakeMailbox{})

	p, err := client.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", p.EmailAddress)
	assert.Equal(t, int64(42), p.MessagesTotal)
	assert.Equal(t, int64(7), p.ThreadsTotal)
}

func TestHeaderValue(t *testing.T) {
	m := &gmail.Message{Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
		{Name: "Subject", Value: "Hi"},
		{Name: "FROM", Value: "bob@example.com"},
	}}}

	assert.Equal(t, "Hi", HeaderValue(m, "Subject"))
	assert.Equal(t, "bob@example.com", HeaderValue(m, "From"))
	assert.Empty(t, HeaderValue(m, "Date"))
	assert.Empty(t, HeaderValue(&gmail.Message{}, "Subject"))
	assert.Empty(t, HeaderValue(nil, "Subject"))
}

func TestNewClientWithoutSession(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	assert.Error(t, err)
}
