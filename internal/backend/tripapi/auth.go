package tripapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"tripboard/internal/service"
)

// Login exchanges credentials for a user and token pair.
func (c *Client) Login(ctx context.Context, cr service.Credentials) (service.AuthResult, error) {
	var res service.AuthResult
	err := c.call(ctx, request{
		op: "Login", method: http.MethodPost,
		route: "/auth/login/", path: "/auth/login/", body: cr,
	}, &res)
	return res, err
}

// Register creates an account and returns the new user with tokens.
func (c *Client) Register(ctx context.Context, r service.Registration) (service.AuthResult, error) {
	var res service.AuthResult
	err := c.call(ctx, request{
		op: "Register", method: http.MethodPost,
		route: "/auth/register/", path: "/auth/register/", body: r,
	}, &res)
	return res, err
}

// Logout blacklists the refresh token on the server.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.call(ctx, request{
		op: "Logout", method: http.MethodPost,
		route: "/auth/logout/", path: "/auth/logout/",
		body: map[string]string{"refresh": refreshToken}, auth: true,
	}, nil)
}

// Me returns the profile of the signed-in user.
func (c *Client) Me(ctx context.Context) (service.User, error) {
	var res struct {
		User service.User `json:"user"`
	}
	err := c.call(ctx, request{
		op: "Me", method: http.MethodGet,
		route: "/auth/me/", path: "/auth/me/", auth: true,
	}, &res)
	return res.User, err
}

// refresh exchanges a refresh token for a new access token. It uses the
// unauthenticated client so it never recurses into the token source.
func (c *Client) refresh(ctx context.Context, refreshToken string) (service.Tokens, error) {
	var tokens service.Tokens
	err := c.call(ctx, request{
		op: "RefreshToken", method: http.MethodPost,
		route: "/auth/token/refresh/", path: "/auth/token/refresh/",
		body: map[string]string{"refresh": refreshToken},
	}, &tokens)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationRequired) {
			return service.Tokens{}, err
		}
		return service.Tokens{}, fmt.Errorf("refresh token: %w", err)
	}
	if tokens.Access == "" {
		return service.Tokens{}, fmt.Errorf("%w: refresh returned no access token", service.ErrAuthenticationRequired)
	}
	return tokens, nil
}
