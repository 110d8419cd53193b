package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultCallbackPort is used for loopback redirect URIs that carry no port.
	DefaultCallbackPort = 3000

	// DefaultRedirectURL is used when the identity file lists no redirect URIs.
	DefaultRedirectURL = "http://localhost:3000/oauth2callback"
)

// ErrIncompleteIdentity is returned when an identity file lacks a client ID or secret.
var ErrIncompleteIdentity = errors.New("application identity is missing client_id or client_secret")

// ApplicationIdentity is the OAuth client registration of this program.
// It is immutable once loaded.
type ApplicationIdentity struct {
	// Kind is "installed" or "web", whichever section the file provided.
	Kind         string
	ClientID     string
	ClientSecret string
	// RedirectURIs always holds at least one entry.
	RedirectURIs []string
}

type clientSecretsFile struct {
	Installed *clientSecretsSection `json:"installed"`
	Web       *clientSecretsSection `json:"web"`
}

type clientSecretsSection struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURIs []string `json:"redirect_uris"`
}

// ParseApplicationIdentity decodes a Google client secrets document.
// The "installed" section takes precedence over "web".
func ParseApplicationIdentity(data []byte) (*ApplicationIdentity, error) {
	var file clientSecretsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse application identity: %w", err)
	}

	section, kind := file.Installed, "installed"
	if section == nil {
		section, kind = file.Web, "web"
	}
	if section == nil {
		return nil, errors.New("application identity has neither an \"installed\" nor a \"web\" section")
	}
	if section.ClientID == "" || section.ClientSecret == "" {
		return nil, ErrIncompleteIdentity
	}

	var redirects []string
	for _, uri := range section.RedirectURIs {
		if uri = strings.TrimSpace(uri); uri != "" {
			redirects = append(redirects, uri)
		}
	}
	if len(redirects) == 0 {
		redirects = []string{DefaultRedirectURL}
	}

	return &ApplicationIdentity{
		Kind:         kind,
		ClientID:     section.ClientID,
		ClientSecret: section.ClientSecret,
		RedirectURIs: redirects,
	}, nil
}

// RedirectURL returns the redirect URI used for consent flows: the first
// registered one, with the default port filled in for port-less loopback hosts.
func (a *ApplicationIdentity) RedirectURL() string {
	if a == nil || len(a.RedirectURIs) == 0 {
		return DefaultRedirectURL
	}
	return NormalizeRedirectURL(a.RedirectURIs[0])
}

// NormalizeRedirectURL adds DefaultCallbackPort to loopback URLs without a port.
// Anything that does not parse is returned unchanged.
func NormalizeRedirectURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	if u.Port() == "" && IsLoopbackHost(u.Hostname()) {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(DefaultCallbackPort))
	}
	return u.String()
}

// IsLoopbackHost reports whether host names the local machine.
func IsLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
