package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	tasks "google.golang.org/api/tasks/v1"

	"tripboard/internal/config"
	"tripboard/internal/exitcode"
	"tripboard/internal/export/googletasks"
)

func init() {
	Register(&GTasksLinkCmd{})
	Register(&ExportGTasksCmd{})
}

// GTasksLinkCmd implements the gtasks-link command.
type GTasksLinkCmd struct {
	force bool
}

func (c *GTasksLinkCmd) Name() string      { return "gtasks-link" }
func (c *GTasksLinkCmd) Aliases() []string { return nil }
func (c *GTasksLinkCmd) Synopsis() string  { return "Authorize export to Google Tasks" }
func (c *GTasksLinkCmd) Usage() string     { return "tripboard gtasks-link [--force]" }
func (c *GTasksLinkCmd) NeedsAuth() bool   { return false }

func (c *GTasksLinkCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "")
}

func (c *GTasksLinkCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	cfg := env.Config
	if !cfg.HasGoogleClient() {
		printClientSetup(errOut, cfg)
		return exitcode.AuthError
	}
	if cfg.HasGoogleToken() && !c.force {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already linked (use --force to relink)")
		}
		return exitcode.Success
	}

	oauthConfig, err := googletasks.LoadOAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	flow := &googletasks.Flow{
		Config:    oauthConfig,
		StartPort: googletasks.DefaultStartPort,
		Prompt: func(authURL string) {
			fmt.Fprintln(errOut, "Open this URL in your browser:")
			fmt.Fprintln(errOut, authURL)
		},
	}
	token, err := flow.Run(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := googletasks.SaveToken(cfg.GoogleTokenPath(), token); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}
	env.success("Google Tasks linked")
	return exitcode.Success
}

func printClientSetup(errOut io.Writer, cfg *config.Config) {
	fmt.Fprintf(errOut, "error: %s not found in %s\n\n", config.GoogleClientFile, cfg.Dir)
	fmt.Fprintln(errOut, "To export boards to Google Tasks, you need OAuth credentials:")
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "1. Go to https://console.cloud.google.com/apis/credentials")
	fmt.Fprintln(errOut, "2. Enable the Google Tasks API:")
	fmt.Fprintln(errOut, "   https://console.cloud.google.com/apis/library/tasks.googleapis.com")
	fmt.Fprintln(errOut, "3. Create an OAuth client ID of type 'Desktop app' and download the JSON")
	fmt.Fprintln(errOut, "4. Save it as:")
	fmt.Fprintf(errOut, "   %s\n", cfg.GoogleClientPath())
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "Then run 'tripboard gtasks-link' again.")
}

// ExportGTasksCmd implements the export-gtasks command.
type ExportGTasksCmd struct{}

func (c *ExportGTasksCmd) Name() string      { return "export-gtasks" }
func (c *ExportGTasksCmd) Aliases() []string { return nil }
func (c *ExportGTasksCmd) Synopsis() string  { return "Copy a board into Google Tasks" }
func (c *ExportGTasksCmd) Usage() string     { return "tripboard export-gtasks <board>" }
func (c *ExportGTasksCmd) NeedsAuth() bool   { return true }

func (c *ExportGTasksCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ExportGTasksCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "board required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}

	build := env.GoogleTasks
	if build == nil {
		build = func(ctx context.Context) (*tasks.Service, error) {
			return googletasks.NewService(ctx, env.Config)
		}
	}
	svc, err := build(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	res, err := googletasks.New(svc,
		googletasks.WithLogger(env.logger()),
		googletasks.WithCurrency(env.Config.Currency),
	).Export(ctx, b)
	if err != nil {
		if errors.Is(err, googletasks.ErrTokenRevoked) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.AuthError
		}
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, res)
	}
	env.success(fmt.Sprintf("Exported %d tasks to %d lists (%d created)",
		res.Tasks, res.ListsCreated+res.ListsReused, res.ListsCreated))
	return exitcode.Success
}
