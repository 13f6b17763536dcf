package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tripboard/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tripboard help [command]" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		cmd, ok := DefaultRegistry.Find(args[0])
		if !ok {
			return usage(errOut, "unknown command: %s", args[0])
		}
		fmt.Fprintf(out, "Usage:\n  %s\n\n%s\n", cmd.Usage(), cmd.Synopsis())
		return exitcode.Success
	}

	fmt.Fprintln(out, "Usage:")
	for _, cmd := range DefaultRegistry.All() {
		fmt.Fprintf(out, "  %-14s %s\n", cmd.Name(), cmd.Synopsis())
	}
	fmt.Fprint(out, commonFlagsText)
	return exitcode.Success
}

const commonFlagsText = `
Boards, lists and cards may be given by id or by title.
Run 'tripboard help <command>' for a command's arguments.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
  --json           Print results as JSON
`
