package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// HeaderValue extracts a header value from a Gmail message.
// Header names compare case-insensitively.
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}
