package google

import (
	"context"
	"fmt"

	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// UserInfo is the signed-in user's profile.
type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

// FetchUserInfo queries the userinfo endpoint. Callers pass
// option.WithHTTPClient with an authorized client.
func FetchUserInfo(ctx context.Context, opts ...option.ClientOption) (*UserInfo, error) {
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	user := &UserInfo{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}
	if info.VerifiedEmail != nil {
		user.VerifiedEmail = *info.VerifiedEmail
	}
	return user, nil
}
