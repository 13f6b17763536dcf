// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	tasks "google.golang.org/api/tasks/v1"

	"tripboard/internal/config"
	"tripboard/internal/exitcode"
	"tripboard/internal/notify"
	"tripboard/internal/reorder"
	"tripboard/internal/service"
	"tripboard/internal/session"
	"tripboard/internal/validate"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a signed-in session.
	// Commands like help, version, login, register return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// Env is everything a command runs against.
type Env struct {
	// Config is always provided (config dir, settings, common flags).
	Config *config.Config

	// Session is the signed-in user and tokens. Changes are saved by the
	// dispatcher after Run returns.
	Session *session.Session

	// Service is the cached board service.
	Service service.Service

	// Boards is the same cache seen by the drag-reorder controller.
	Boards reorder.BoardCache

	// Accounts covers login, register, logout and profile calls.
	Accounts service.Accounts

	// Notifier shows transient messages.
	Notifier notify.Notifier

	// Validator checks form input.
	Validator *validate.Validator

	// Logger is the process logger.
	Logger log.FieldLogger

	// Stdin is read by commands that take secrets.
	Stdin io.Reader

	// Now returns the current time.
	Now func() time.Time

	// GoogleTasks builds the Google Tasks client for export.
	GoogleTasks func(ctx context.Context) (*tasks.Service, error)
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) validator() *validate.Validator {
	if e.Validator == nil {
		e.Validator = validate.New()
	}
	return e.Validator
}

func (e *Env) notifier() notify.Notifier {
	if e.Notifier == nil {
		return notify.Discard
	}
	return e.Notifier
}

func (e *Env) logger() log.FieldLogger {
	if e.Logger == nil {
		return log.StandardLogger()
	}
	return e.Logger
}

// currency returns the board's currency or the configured fallback.
func (e *Env) currency(b service.Board) string {
	if b.Currency != "" {
		return b.Currency
	}
	return e.Config.Currency
}

// success reports a completed mutation.
func (e *Env) success(title string) {
	e.notifier().Notify(notify.Notification{Level: notify.Success, Title: title})
}

// fail prints err the way every command reports errors and returns its
// exit code.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %s\n", exitcode.Message(err))
	return exitcode.FromError(err)
}

// usage prints a bad-arguments error.
func usage(errOut io.Writer, format string, a ...any) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", a...)
	return exitcode.UserError
}

func infoNote(title string) notify.Notification {
	return notify.Notification{Level: notify.Info, Title: title}
}
