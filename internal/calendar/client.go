package calendar

import (
	"context"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/workspace-mcp/internal/google"
)

const (
	// PrimaryCalendarID addresses the signed-in user's main calendar.
	PrimaryCalendarID = "primary"

	// DefaultMaxResults is used when ListOptions leaves MaxResults unset.
	DefaultMaxResults = 25
)

// Client wraps the Google Calendar service
type Client struct {
	svc *calendar.Service
}

// NewClient creates a Calendar client authorized by provider.
func NewClient(ctx context.Context, provider google.TokenProvider, opts ...option.ClientOption) (*Client, error) {
	clientOpts, err := google.ClientOptions(ctx, provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("no Google session available: %w", err)
	}

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ListEvents lists single events of a calendar, expanded from recurrences
// and ordered by start time.
func (c *Client) ListEvents(ctx context.Context, opts ListOptions) ([]EventSummary, error) {
	calendarID := opts.CalendarID
	if calendarID == "" {
		calendarID = PrimaryCalendarID
	}
	if !opts.TimeMin.IsZero() && !opts.TimeMax.IsZero() && !opts.TimeMax.After(opts.TimeMin) {
		return nil, fmt.Errorf("time range end %s is not after start %s",
			opts.TimeMax.Format(time.RFC3339), opts.TimeMin.Format(time.RFC3339))
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	call := c.svc.Events.List(calendarID).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(int64(maxResults))

	if !opts.TimeMin.IsZero() {
		call = call.TimeMin(opts.TimeMin.Format(time.RFC3339))
	}
	if !opts.TimeMax.IsZero() {
		call = call.TimeMax(opts.TimeMax.Format(time.RFC3339))
	}
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}
	return summaries, nil
}

// ListCalendars lists all calendars accessible to the user
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	list, err := c.svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	calendars := make([]CalendarInfo, 0, len(list.Items))
	for _, entry := range list.Items {
		calendars = append(calendars, toCalendarInfo(entry))
	}
	return calendars, nil
}
