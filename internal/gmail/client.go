package gmail

import (
	"context"
	"fmt"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/workspace-mcp/internal/google"
)

const (
	// DefaultMaxResults is used when ListMessages is given no limit.
	DefaultMaxResults = 10

	// maxPageSize is the largest page the Gmail API hands out.
	maxPageSize = 100

	me = "me"
)

var summaryHeaders = []string{"Subject", "From", "Date"}

// Client wraps the Gmail service
type Client struct {
	svc *gmail.Service
}

// NewClient creates a Gmail client authorized by provider.
func NewClient(ctx context.Context, provider google.TokenProvider, opts ...option.ClientOption) (*Client, error) {
	clientOpts, err := google.ClientOptions(ctx, provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("no Google session available: %w", err)
	}

	svc, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// GetProfile returns the mailbox owner's address and counters.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	p, err := c.svc.Users.GetProfile(me).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &Profile{
		EmailAddress:  p.EmailAddress,
		MessagesTotal: p.MessagesTotal,
		ThreadsTotal:  p.ThreadsTotal,
	}, nil
}

// ListMessages lists up to maxResults messages matching the Gmail search
// query q, newest first, with their summary headers.
// It will page through results, making multiple API calls if necessary.
func (c *Client) ListMessages(ctx context.Context, q string, maxResults int64) ([]MessageSummary, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var refs []*gmail.Message
	pageToken := ""
	for int64(len(refs)) < maxResults {
		pageSize := min(maxResults-int64(len(refs)), maxPageSize)

		req := c.svc.Users.Messages.List(me).Context(ctx).MaxResults(pageSize)
		if q != "" {
			req = req.Q(q)
		}
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		refs = append(refs, res.Messages...)

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	if int64(len(refs)) > maxResults {
		refs = refs[:maxResults]
	}

	summaries := make([]MessageSummary, 0, len(refs))
	for _, ref := range refs {
		m, err := c.svc.Users.Messages.Get(me, ref.Id).
			Context(ctx).
			Format("metadata").
			MetadataHeaders(summaryHeaders...).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get message %s: %w", ref.Id, err)
		}
		summaries = append(summaries, toMessageSummary(m))
	}
	return summaries, nil
}

func toMessageSummary(m *gmail.Message) MessageSummary {
	summary := MessageSummary{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		Subject:  HeaderValue(m, "Subject"),
		From:     HeaderValue(m, "From"),
		Labels:   m.LabelIds,
	}
	if m.InternalDate > 0 {
		summary.Date = time.UnixMilli(m.InternalDate).UTC()
	}
	for _, label := range m.LabelIds {
		if label == "UNREAD" {
			summary.Unread = true
		}
	}
	return summary
}
