package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tripboard/internal/service"
	"tripboard/internal/session"
	"tripboard/internal/testutil"
)

func TestLoad_MissingFileIsEmptySession(t *testing.T) {
	s, err := session.Load(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Authenticated() {
		t.Error("expected empty session to be unauthenticated")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	s := session.New()
	s.SignIn(service.User{ID: 7, Email: "ana@example.com"}, service.Tokens{
		Access:  testutil.AccessToken("7", exp),
		Refresh: "refresh-1",
	})
	if !s.Dirty() {
		t.Error("expected session to be dirty after sign in")
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := session.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Authenticated() {
		t.Fatal("expected loaded session to be authenticated")
	}
	if loaded.User().Email != "ana@example.com" {
		t.Errorf("unexpected user %+v", loaded.User())
	}
	if loaded.RefreshToken() != "refresh-1" {
		t.Errorf("unexpected refresh token %q", loaded.RefreshToken())
	}
	if !loaded.Token().Expiry.Equal(exp) {
		t.Errorf("expected expiry %v, got %v", exp, loaded.Token().Expiry)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := session.Load(path); err == nil {
		t.Fatal("expected error for corrupt session")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	s := session.New()
	s.SignIn(service.User{}, service.Tokens{Access: testutil.AccessToken("1", now.Add(-time.Minute))})
	if !s.Expired(now) {
		t.Error("expected token to be expired")
	}

	s.SignIn(service.User{}, service.Tokens{Access: "opaque-token"})
	if s.Expired(now) {
		t.Error("tokens without exp should never expire")
	}
}

func TestTokenSource_RefreshesExpiredToken(t *testing.T) {
	now := time.Now()
	s := session.New()
	s.SignIn(service.User{ID: 1}, service.Tokens{
		Access:  testutil.AccessToken("1", now.Add(-time.Minute)),
		Refresh: "r1",
	})

	fresh := testutil.AccessToken("1", now.Add(time.Hour))
	var gotRefresh string
	ts := s.TokenSource(context.Background(), func(ctx context.Context, rt string) (service.Tokens, error) {
		gotRefresh = rt
		return service.Tokens{Access: fresh}, nil
	})

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if gotRefresh != "r1" {
		t.Errorf("expected refresh with r1, got %q", gotRefresh)
	}
	if tok.AccessToken != fresh {
		t.Error("expected refreshed access token")
	}
	if s.RefreshToken() != "r1" {
		t.Errorf("expected refresh token kept when not rotated, got %q", s.RefreshToken())
	}
	if s.Token().AccessToken != fresh {
		t.Error("expected session to hold the refreshed token")
	}
}

func TestTokenSource_NoRefreshToken(t *testing.T) {
	s := session.New()
	s.SignIn(service.User{}, service.Tokens{Access: testutil.AccessToken("1", time.Now().Add(-time.Minute))})

	_, err := s.TokenSource(context.Background(), nil).Token()
	if !errors.Is(err, session.ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got %v", err)
	}
}

func TestClear(t *testing.T) {
	s := session.New()
	s.SignIn(service.User{ID: 3}, service.Tokens{Access: "a", Refresh: "r"})
	s.Clear()
	if s.Authenticated() {
		t.Error("expected cleared session to be unauthenticated")
	}
	if s.RefreshToken() != "" {
		t.Error("expected refresh token cleared")
	}
}

func TestTokenSource_ServesCurrentTokenWithoutRefresh(t *testing.T) {
	s := session.New()
	ts := s.TokenSource(context.Background(), func(ctx context.Context, rt string) (service.Tokens, error) {
		t.Fatal("refresh should not be called for a valid token")
		return service.Tokens{}, nil
	})

	access := testutil.AccessToken("1", time.Now().Add(time.Hour))
	s.SignIn(service.User{ID: 1}, service.Tokens{Access: access, Refresh: "r"})

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != access {
		t.Error("expected the token signed in after the source was created")
	}
}
