package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"tripboard/internal/exitcode"
	"tripboard/internal/notify"
	"tripboard/internal/service"
	"tripboard/internal/validate"
)

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// readSecret reads one line from in. When in is a terminal and fromStdin is
// false the user is prompted and the input is not echoed.
func readSecret(in io.Reader, errOut io.Writer, prompt string, fromStdin bool) (string, error) {
	if isTerminal(in, fromStdin) {
		fmt.Fprint(errOut, prompt)
		b, err := term.ReadPassword(int(in.(*os.File).Fd()))
		fmt.Fprintln(errOut)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if in == nil {
		return "", errors.New("no input")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read %s", strings.ToLower(strings.TrimSuffix(prompt, ": ")))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func isTerminal(in io.Reader, fromStdin bool) bool {
	f, ok := in.(*os.File)
	return ok && !fromStdin && term.IsTerminal(int(f.Fd()))
}

// LoginCmd implements the login command.
type LoginCmd struct {
	passwordStdin bool
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in to TripBoard" }
func (c *LoginCmd) Usage() string     { return "tripboard login [--password-stdin] <email>" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.passwordStdin, "password-stdin", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "email required")
	}
	email := strings.TrimSpace(args[0])
	password, err := readSecret(env.Stdin, errOut, "Password: ", c.passwordStdin)
	if err != nil {
		return usage(errOut, "%v", err)
	}

	if err := env.validator().Struct(validate.Login{Email: email, Password: password}); err != nil {
		return fail(errOut, err)
	}

	res, err := env.Accounts.Login(ctx, service.Credentials{Email: email, Password: password})
	if err != nil {
		env.notifier().Notify(notify.Notification{Level: notify.Error, Title: "Login failed", Detail: authDetail(err)})
		return exitcode.FromError(err)
	}
	env.Session.SignIn(res.User, res.Tokens)
	env.success("Logged in as " + res.User.DisplayName())
	return exitcode.Success
}

// authDetail strips the auth sentinel prefix so the server's own message
// is shown, e.g. "Invalid email or password".
func authDetail(err error) string {
	msg := err.Error()
	if errors.Is(err, service.ErrAuthenticationRequired) {
		msg = strings.TrimPrefix(msg, service.ErrAuthenticationRequired.Error()+": ")
	}
	return msg
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	name          string
	passwordStdin bool
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create a TripBoard account" }
func (c *RegisterCmd) Usage() string {
	return "tripboard register --name <full name> [--password-stdin] <email>"
}
func (c *RegisterCmd) NeedsAuth() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.BoolVar(&c.passwordStdin, "password-stdin", false, "")
}

func (c *RegisterCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "email required")
	}
	email := strings.TrimSpace(args[0])

	// Both lines come from the same stream unless prompting on a terminal.
	in := env.Stdin
	if in != nil && !isTerminal(in, c.passwordStdin) {
		in = bufio.NewReader(in)
	}
	password, err := readSecret(in, errOut, "Password: ", c.passwordStdin)
	if err != nil {
		return usage(errOut, "%v", err)
	}
	confirm, err := readSecret(in, errOut, "Confirm password: ", c.passwordStdin)
	if err != nil {
		return usage(errOut, "%v", err)
	}

	form := validate.Register{Name: strings.TrimSpace(c.name), Email: email, Password: password, PasswordConfirm: confirm}
	if err := env.validator().Struct(form); err != nil {
		return fail(errOut, err)
	}

	username, _, _ := strings.Cut(email, "@")
	res, err := env.Accounts.Register(ctx, service.Registration{
		Username:        username,
		Email:           email,
		FullName:        form.Name,
		Password:        password,
		PasswordConfirm: confirm,
	})
	if err != nil {
		env.notifier().Notify(notify.Notification{Level: notify.Error, Title: "Registration failed", Detail: authDetail(err)})
		return exitcode.FromError(err)
	}
	env.Session.SignIn(res.User, res.Tokens)
	env.success("Account created for " + res.User.DisplayName())
	return exitcode.Success
}
