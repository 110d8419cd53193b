package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// SessionState is the persisted delegated-access grant. The JSON layout is
// the token.json format: expiry_date is milliseconds since the Unix epoch.
type SessionState struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiryDate   int64  `json:"expiry_date,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// NewSessionState captures an oauth2 token, including the scope and id_token
// extras returned by the token endpoint.
func NewSessionState(tok *oauth2.Token) *SessionState {
	if tok == nil {
		return nil
	}
	state := &SessionState{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		state.ExpiryDate = tok.Expiry.UnixMilli()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		state.Scope = scope
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		state.IDToken = idToken
	}
	return state
}

// ParseSessionState decodes and validates a token.json document.
func ParseSessionState(data []byte) (*SessionState, error) {
	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse session state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &state, nil
}

// Validate checks that the state can authorize a request or be refreshed.
func (s *SessionState) Validate() error {
	if s.AccessToken == "" && s.RefreshToken == "" {
		return errors.New("session state has neither an access token nor a refresh token")
	}
	return nil
}

// Expiry returns the access token expiry. A zero ExpiryDate yields the zero time.
func (s *SessionState) Expiry() time.Time {
	if s.ExpiryDate == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.ExpiryDate)
}

// Expired reports whether the access token is past its expiry at now.
// An unknown expiry is treated as not expired.
func (s *SessionState) Expired(now time.Time) bool {
	return s.ExpiryDate != 0 && !now.Before(s.Expiry())
}

// Token converts the state into an oauth2 token for use with a TokenSource.
func (s *SessionState) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.Expiry(),
	}
	extra := map[string]interface{}{}
	if s.Scope != "" {
		extra["scope"] = s.Scope
	}
	if s.IDToken != "" {
		extra["id_token"] = s.IDToken
	}
	if len(extra) > 0 {
		tok = tok.WithExtra(extra)
	}
	return tok
}

// Refreshed returns the state after a refresh that produced tok. Google omits
// the refresh token, and sometimes the scope, on refresh; those carry over.
func (s *SessionState) Refreshed(tok *oauth2.Token) *SessionState {
	next := NewSessionState(tok)
	if next == nil {
		return s
	}
	if next.RefreshToken == "" {
		next.RefreshToken = s.RefreshToken
	}
	if next.Scope == "" {
		next.Scope = s.Scope
	}
	if next.IDToken == "" {
		next.IDToken = s.IDToken
	}
	return next
}
