package commands_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"tripboard/internal/backend/tripapi"
	"tripboard/internal/commands"
	"tripboard/internal/exitcode"
	"tripboard/internal/session"
	"tripboard/internal/testutil"
)

// apiEnv returns an environment whose accounts client talks to a fake API.
func apiEnv(t *testing.T, stdin string) (*testutil.FakeAPI, *commands.Env) {
	t.Helper()
	api := testutil.NewFakeAPI(t)
	env := newEnv(t, api.Service)
	logger, _ := test.NewNullLogger()
	env.Accounts = tripapi.New(context.Background(), api.URL(), env.Session, tripapi.WithLogger(logger))
	env.Stdin = strings.NewReader(stdin)
	return api, env
}

func TestLoginCommand(t *testing.T) {
	api, env := apiEnv(t, "secret1\n")
	api.AddUser("ana@example.com", "secret1")

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, env, "--password-stdin", "ana@example.com")

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "Logged in as ana\n" {
		t.Errorf("expected %q, got %q", "Logged in as ana\n", stdout)
	}
	if !env.Session.Authenticated() {
		t.Error("expected session to be signed in")
	}
	if !env.Session.Dirty() {
		t.Error("expected session to need saving")
	}
	if got := env.Session.User().Email; got != "ana@example.com" {
		t.Errorf("expected user %q, got %q", "ana@example.com", got)
	}
}

func TestLoginCommand_BadPassword(t *testing.T) {
	api, env := apiEnv(t, "wrong\n")
	api.AddUser("ana@example.com", "secret1")

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, env, "ana@example.com")

	expectCode(t, exitcode.AuthError, code, stderr)
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: Login failed: Invalid email or password\n" {
		t.Errorf("expected %q, got %q", "error: Login failed: Invalid email or password\n", stderr)
	}
	if env.Session.Authenticated() {
		t.Error("expected session to stay signed out")
	}
}

func TestLoginCommand_InvalidEmail(t *testing.T) {
	api, env := apiEnv(t, "secret1\n")

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, env, "ana")

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: Please enter a valid email address\n" {
		t.Errorf("expected %q, got %q", "error: Please enter a valid email address\n", stderr)
	}
	if n := len(api.Requests()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestLoginCommand_NoPassword(t *testing.T) {
	_, env := apiEnv(t, "")

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, env, "ana@example.com")

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: failed to read password\n" {
		t.Errorf("expected %q, got %q", "error: failed to read password\n", stderr)
	}
}

func TestRegisterCommand(t *testing.T) {
	_, env := apiEnv(t, "secret1\nsecret1\n")

	stdout, stderr, code := runCommand(t, &commands.RegisterCmd{}, env, "--name", "Ana Silva", "ana@example.com")

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "Account created for Ana Silva\n" {
		t.Errorf("expected %q, got %q", "Account created for Ana Silva\n", stdout)
	}
	if u := env.Session.User(); u.Username != "ana" {
		t.Errorf("expected username %q, got %q", "ana", u.Username)
	}
}

func TestRegisterCommand_PasswordMismatch(t *testing.T) {
	api, env := apiEnv(t, "secret1\nsecret2\n")

	_, stderr, code := runCommand(t, &commands.RegisterCmd{}, env, "--name", "Ana Silva", "ana@example.com")

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: Passwords do not match\n" {
		t.Errorf("expected %q, got %q", "error: Passwords do not match\n", stderr)
	}
	if n := len(api.Requests()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestRegisterCommand_EmailTaken(t *testing.T) {
	api, env := apiEnv(t, "secret1\nsecret1\n")
	api.AddUser("ana@example.com", "other1")

	_, stderr, code := runCommand(t, &commands.RegisterCmd{}, env, "--name", "Ana Silva", "ana@example.com")

	expectCode(t, exitcode.UserError, code, stderr)
	if !strings.HasPrefix(stderr, "error: Registration failed: ") {
		t.Errorf("expected registration failure, got %q", stderr)
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	_, env := apiEnv(t, "")

	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, env)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "not logged in\n" {
		t.Errorf("expected %q, got %q", "not logged in\n", stdout)
	}

	env.Config.Quiet = true
	stdout, _, _ = runCommand(t, &commands.LogoutCmd{}, env)
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
}

func TestLogoutCommand(t *testing.T) {
	api, env := apiEnv(t, "")
	u := api.AddUser("ana@example.com", "secret1")
	env.Session.SignIn(u, api.Tokens(u))

	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, env)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "Logged out\n" {
		t.Errorf("expected %q, got %q", "Logged out\n", stdout)
	}
	if env.Session.Authenticated() {
		t.Error("expected session to be cleared")
	}
	if n := len(api.RequestsTo(http.MethodPost, "/api/auth/logout/")); n != 1 {
		t.Errorf("expected 1 logout request, got %d", n)
	}
}

func TestLogoutCommand_ServerFailureStillClears(t *testing.T) {
	api, env := apiEnv(t, "")
	u := api.AddUser("ana@example.com", "secret1")
	env.Session.SignIn(u, api.Tokens(u))
	api.Fail(http.MethodPost, "/api/auth/logout/", http.StatusInternalServerError, `{}`)

	_, stderr, code := runCommand(t, &commands.LogoutCmd{}, env)

	expectCode(t, exitcode.Success, code, stderr)
	if env.Session.Authenticated() {
		t.Error("expected session to be cleared")
	}
}

func TestLogoutCommand_SavedSessionSignedOut(t *testing.T) {
	api, env := apiEnv(t, "")
	u := api.AddUser("ana@example.com", "secret1")
	env.Session.SignIn(u, api.Tokens(u))
	if err := env.Session.Save(env.Config.SessionPath()); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	_, stderr, code := runCommand(t, &commands.LogoutCmd{}, env)
	expectCode(t, exitcode.Success, code, stderr)
	if err := env.Session.Save(env.Config.SessionPath()); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	loaded, err := session.Load(env.Config.SessionPath())
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if loaded.Authenticated() {
		t.Error("expected the saved session to be signed out")
	}
}

func TestWhoamiCommand(t *testing.T) {
	api, env := apiEnv(t, "")
	u := api.AddUser("ana@example.com", "secret1")
	env.Session.SignIn(u, api.Tokens(u))

	stdout, stderr, code := runCommand(t, &commands.WhoamiCmd{}, env)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ana <ana@example.com>\n" {
		t.Errorf("expected %q, got %q", "ana <ana@example.com>\n", stdout)
	}
}
