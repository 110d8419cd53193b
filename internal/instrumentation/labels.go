package instrumentation

import "strings"

// Google API operation label values.
const (
	OperationList     = "list"
	OperationGet      = "get"
	OperationExchange = "exchange"
	OperationRefresh  = "refresh"
	OperationRevoke   = "revoke"
	OperationUserInfo = "userinfo"
)

// UserDomain reduces an email address to its lower-cased domain, the only
// part of a user identity allowed on a metric label. Input without a domain
// yields StatusUnknown.
func UserDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return StatusUnknown
	}
	return strings.ToLower(email[at+1:])
}
