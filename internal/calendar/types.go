package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// ListOptions selects the events returned by ListEvents.
type ListOptions struct {
	// CalendarID defaults to the primary calendar.
	CalendarID string

	// TimeMin and TimeMax bound the event window; zero means unbounded.
	TimeMin time.Time
	TimeMax time.Time

	// Query is free text matched against summary, description, location
	// and attendees.
	Query string

	MaxResults int
}

// EventSummary represents a simplified calendar event for listing
type EventSummary struct {
	ID        string         `json:"id"`
	Summary   string         `json:"summary"`
	Location  string         `json:"location,omitempty"`
	Start     time.Time      `json:"start"`
	End       time.Time      `json:"end"`
	AllDay    bool           `json:"allDay,omitempty"`
	Organizer string         `json:"organizer,omitempty"`
	Status    string         `json:"status,omitempty"`
	Attendees []AttendeeInfo `json:"attendees,omitempty"`
	MeetLink  string         `json:"meetLink,omitempty"`
	HTMLLink  string         `json:"htmlLink,omitempty"`
}

// AttendeeInfo represents information about an event attendee
type AttendeeInfo struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"responseStatus,omitempty"` // "needsAction", "declined", "tentative", "accepted"
	Optional       bool   `json:"optional,omitempty"`
}

// CalendarInfo represents information about a calendar
type CalendarInfo struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	TimeZone   string `json:"timeZone,omitempty"`
	Primary    bool   `json:"primary,omitempty"`
	AccessRole string `json:"accessRole"` // "owner", "writer", "reader", "freeBusyReader"
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	summary := EventSummary{
		ID:       event.Id,
		Summary:  event.Summary,
		Location: event.Location,
		Status:   event.Status,
		HTMLLink: event.HtmlLink,
	}

	summary.Start, summary.AllDay = parseEventTime(event.Start)
	summary.End, _ = parseEventTime(event.End)

	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}

	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          att.Email,
			ResponseStatus: att.ResponseStatus,
			Optional:       att.Optional,
		})
	}

	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				summary.MeetLink = ep.Uri
				break
			}
		}
	}
	return summary
}

// parseEventTime reads a timed or an all-day boundary. The second result
// is true for all-day events.
func parseEventTime(t *calendar.EventDateTime) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, false
	}
	if t.Date != "" {
		parsed, err := time.Parse(time.DateOnly, t.Date)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	return CalendarInfo{
		ID:         entry.Id,
		Summary:    entry.Summary,
		TimeZone:   entry.TimeZone,
		Primary:    entry.Primary,
		AccessRole: entry.AccessRole,
	}
}
