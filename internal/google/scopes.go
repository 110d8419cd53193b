package google

import (
	"github.com/coreos/go-oidc/v3/oidc"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/people/v1"
	"google.golang.org/api/sheets/v4"
)

// DefaultOAuthScopes is the fixed scope set of every consent flow. openid and
// the email scope let the ID token name the signed-in account.
var DefaultOAuthScopes = []string{
	oidc.ScopeOpenID,
	oauth2api.UserinfoEmailScope,

	drive.DriveScope,
	docs.DocumentsScope,
	sheets.SpreadsheetsScope,
	calendar.CalendarScope,

	gmail.GmailModifyScope,
	gmail.GmailSendScope,
	gmail.GmailSettingsBasicScope,

	people.ContactsReadonlyScope,
	people.ContactsOtherReadonlyScope,
	people.DirectoryReadonlyScope,
}
