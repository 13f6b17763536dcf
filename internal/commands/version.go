package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tripboard/internal/exitcode"
)

// Version is the application version. Set at build time.
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

// VersionCmd implements the version command.
type VersionCmd struct{}

func (c *VersionCmd) Name() string      { return "version" }
func (c *VersionCmd) Aliases() []string { return nil }
func (c *VersionCmd) Synopsis() string  { return "Print version" }
func (c *VersionCmd) Usage() string     { return "tripboard version" }
func (c *VersionCmd) NeedsAuth() bool   { return false }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {}

type versionInfo struct {
	Version string `json:"version"`
	APIURL  string `json:"api_url"`
}

func (c *VersionCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if env.Config.JSON {
		return writeJSON(out, errOut, versionInfo{Version: Version, APIURL: env.Config.APIURL})
	}
	fmt.Fprintf(out, "tripboard %s\n", Version)
	if env.Config.Debug {
		fmt.Fprintf(out, "api: %s\n", env.Config.APIURL)
	}
	return exitcode.Success
}
