// Package cli parses the command line and runs commands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tripboard/internal/commands"
	"tripboard/internal/config"
	"tripboard/internal/exitcode"
	"tripboard/internal/notify"
	"tripboard/internal/querycache"
	"tripboard/internal/service"
	"tripboard/internal/session"
	"tripboard/internal/validate"
)

// defaultCommand runs when no arguments are given.
const defaultCommand = "boards"

// Backend is the API client: board operations plus account endpoints.
type Backend interface {
	service.Service
	service.Accounts
}

// BackendFactory creates the API client for a session.
// Used to inject the backend during dispatch.
type BackendFactory func(ctx context.Context, cfg *config.Config, sess *session.Session, logger log.FieldLogger) (Backend, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory

	// Stdin is handed to commands that read secrets.
	Stdin io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
func NewDispatcher(registry *commands.Registry, factory BackendFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to the boards listing
	if len(args) == 0 {
		return d.dispatch(ctx, defaultCommand, nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Common flags
	var configDir string
	var quiet, debug, jsonOut bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")
	fs.BoolVar(&jsonOut, "json", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return flagError(errOut, err)
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.JSON = jsonOut
	cfg.Debug = debug

	logger := newLogger(errOut, cfg.Debug)

	sess, err := session.Load(cfg.SessionPath())
	if err != nil {
		fmt.Fprintf(errOut, "error: %s (run: tripboard login)\n", err)
		return exitcode.AuthError
	}
	if cmd.NeedsAuth() && !sess.Authenticated() {
		fmt.Fprintln(errOut, "error: not logged in (run: tripboard login)")
		return exitcode.AuthError
	}

	env := &commands.Env{
		Config:    cfg,
		Session:   sess,
		Notifier:  notify.NewWriter(out, errOut, cfg.Quiet),
		Validator: validate.New(),
		Logger:    logger,
		Stdin:     d.Stdin,
	}

	if d.factory != nil {
		backend, err := d.factory(ctx, cfg, sess, logger)
		if err != nil {
			fmt.Fprintf(errOut, "error: %s\n", exitcode.Message(err))
			return exitcode.FromError(err)
		}

		opts := querycache.Options{
			StaleTime:  cfg.StaleTime,
			MaxRetries: cfg.MaxRetries,
			Namespace:  strconv.FormatInt(sess.User().ID, 10),
			Logger:     logger,
		}
		if cfg.RedisURL != "" {
			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				fmt.Fprintf(errOut, "error: invalid redis_url: %s\n", err)
				return exitcode.UserError
			}
			rc := redis.NewClient(redisOpts)
			defer rc.Close()
			opts.Redis = rc
		}
		cache := querycache.New(backend, opts)

		env.Service = cache
		env.Boards = cache
		env.Accounts = backend
	}

	code := cmd.Run(ctx, env, positionalArgs, out, errOut)

	// Login, logout and token refreshes change the session.
	if sess.Dirty() {
		if err := sess.Save(cfg.SessionPath()); err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			if code == exitcode.Success {
				code = exitcode.UserError
			}
		}
	}
	return code
}

// flagError reports a flag parsing failure.
func flagError(errOut io.Writer, err error) int {
	errStr := err.Error()

	// Check for missing flag value
	if strings.Contains(errStr, "needs a value") || strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		flagPart := strings.TrimSpace(parts[len(parts)-1])
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
		return exitcode.UserError
	}

	// Check for unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return exitcode.UserError
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
	return exitcode.UserError
}

func newLogger(errOut io.Writer, debug bool) *log.Logger {
	logger := log.New()
	logger.SetOutput(errOut)
	logger.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(log.WarnLevel)
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
