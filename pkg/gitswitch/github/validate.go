package github

import (
	"context"
	"fmt"
	"strings"
)

// User is the identity a token belongs to.
type User struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatar_url"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// ValidateToken confirms the token is live and resolves its identity. Any
// non-success status collapses to ErrInvalidToken.
func (c *Client) ValidateToken(ctx context.Context, token string) (*User, error) {
	var user User
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptGitHub).
		SetAuthToken(token).
		SetResult(&user).
		Get(c.apiURL + "/user")
	if err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, ErrInvalidToken
	}
	return &user, nil
}

// TokenScopes reads the granted-scope list from the X-OAuth-Scopes response
// header. A missing header yields an empty set, not an error.
func (c *Client) TokenScopes(ctx context.Context, token string) ([]string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptGitHub).
		SetAuthToken(token).
		Get(c.apiURL + "/user")
	if err != nil {
		return nil, fmt.Errorf("scope request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, ErrInvalidToken
	}
	header := resp.Header().Get("X-OAuth-Scopes")
	if header == "" {
		return nil, nil
	}
	parts := strings.Split(header, ",")
	scopes := make([]string, 0, len(parts))
	for _, part := range parts {
		if scope := strings.TrimSpace(part); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return scopes, nil
}

// CheckOrgSSORequirement reports whether organization SSO authorization may
// be required for the token. The provider exposes no machine-readable signal
// for this, so any non-success membership response is interpreted as "SSO may
// be required"; the result is advisory only.
func (c *Client) CheckOrgSSORequirement(ctx context.Context, token, org string) (bool, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptGitHub).
		SetAuthToken(token).
		Get(c.apiURL + "/orgs/" + org + "/memberships/me")
	if err != nil {
		return false, fmt.Errorf("membership request failed: %w", err)
	}
	return !resp.IsSuccess(), nil
}
