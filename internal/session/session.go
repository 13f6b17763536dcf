// Package session holds the signed-in user and their tokens.
//
// A Session is loaded explicitly when the process starts and saved explicitly
// before it exits; nothing in this package keeps global state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"

	"tripboard/internal/service"
)

// ErrNoRefreshToken is returned when an expired session cannot be renewed.
var ErrNoRefreshToken = errors.New("session expired and no refresh token is stored")

// RefreshFunc exchanges a refresh token for a new access token.
// The returned refresh token may be empty when the server does not rotate it.
type RefreshFunc func(ctx context.Context, refreshToken string) (service.Tokens, error)

// Session is the application-scoped authentication state.
type Session struct {
	mu    sync.Mutex
	user  service.User
	token *oauth2.Token
	dirty bool
}

type fileFormat struct {
	User  service.User  `json:"user"`
	Token *oauth2.Token `json:"token,omitempty"`
}

// New returns an empty, unauthenticated session.
func New() *Session {
	return &Session{}
}

// Load reads a session from path. A missing file yields an empty session.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var f fileFormat
	if err := sonic.ConfigStd.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid session file: %w", err)
	}
	return &Session{user: f.User, token: f.Token}, nil
}

// Save writes the session to path with mode 0600, creating the parent
// directory with mode 0700.
func (s *Session) Save(path string) error {
	s.mu.Lock()
	f := fileFormat{User: s.user, Token: s.token}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := sonic.ConfigStd.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Dirty reports whether the session changed since it was loaded or saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SignIn stores the user and the token pair returned by login or register.
func (s *Session) SignIn(user service.User, tokens service.Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.token = newToken(tokens.Access, tokens.Refresh)
	s.dirty = true
}

// Clear drops the user and tokens.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = service.User{}
	s.token = nil
	s.dirty = true
}

// User returns the signed-in user.
func (s *Session) User() service.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Authenticated reports whether an access token is present.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil && s.token.AccessToken != ""
}

// RefreshToken returns the stored refresh token, if any.
func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return ""
	}
	return s.token.RefreshToken
}

// Token returns a copy of the current token, or nil.
func (s *Session) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil
	}
	t := *s.token
	return &t
}

// Expired reports whether the access token's exp claim is in the past.
// Tokens without an exp claim never expire.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil || s.token.Expiry.IsZero() {
		return false
	}
	return !now.Before(s.token.Expiry)
}

// TokenSource returns an oauth2.TokenSource that serves the session's current
// access token and renews it through refresh once it expires. Renewed tokens
// are written back into the session so a later Save persists them.
func (s *Session) TokenSource(ctx context.Context, refresh RefreshFunc) oauth2.TokenSource {
	return &refreshingSource{ctx: ctx, s: s, refresh: refresh}
}

type refreshingSource struct {
	mu      sync.Mutex // serializes refreshes
	ctx     context.Context
	s       *Session
	refresh RefreshFunc
}

func (r *refreshingSource) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tok := r.s.Token(); tok.Valid() {
		return tok, nil
	}
	rt := r.s.RefreshToken()
	if rt == "" || r.refresh == nil {
		return nil, ErrNoRefreshToken
	}
	tokens, err := r.refresh(r.ctx, rt)
	if err != nil {
		return nil, err
	}
	if tokens.Refresh == "" {
		tokens.Refresh = rt
	}
	tok := newToken(tokens.Access, tokens.Refresh)

	r.s.mu.Lock()
	r.s.token = tok
	r.s.dirty = true
	r.s.mu.Unlock()

	t := *tok
	return &t, nil
}

func newToken(access, refresh string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       AccessExpiry(access),
	}
}

// AccessExpiry reads the exp claim of a JWT without verifying its signature.
// Returns the zero time if the token has no readable exp.
func AccessExpiry(access string) time.Time {
	if access == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0)
	case json.Number:
		if n, err := exp.Int64(); err == nil {
			return time.Unix(n, 0)
		}
	}
	return time.Time{}
}
