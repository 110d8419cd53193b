package gmail

import "time"

// MessageSummary is the listing view of a message.
type MessageSummary struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"threadId"`
	Subject  string    `json:"subject"`
	From     string    `json:"from"`
	Date     time.Time `json:"date"`
	Snippet  string    `json:"snippet,omitempty"`
	Labels   []string  `json:"labels,omitempty"`
	Unread   bool      `json:"unread,omitempty"`
}

// Profile describes the signed-in mailbox.
type Profile struct {
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
}
