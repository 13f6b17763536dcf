package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tripboard/internal/exitcode"
	"tripboard/internal/service"
)

func init() {
	Register(&AddListCmd{})
	Register(&RenameListCmd{})
	Register(&RmListCmd{})
}

// AddListCmd implements the addlist command.
type AddListCmd struct {
	color string
}

func (c *AddListCmd) Name() string      { return "addlist" }
func (c *AddListCmd) Aliases() []string { return []string{"createlist"} }
func (c *AddListCmd) Synopsis() string  { return "Add a list to a board" }
func (c *AddListCmd) Usage() string     { return "tripboard addlist [--color <c>] <board> <title...>" }
func (c *AddListCmd) NeedsAuth() bool   { return true }

func (c *AddListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.color, "color", "", "")
}

func (c *AddListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		return usage(errOut, "board and list title required")
	}
	title := strings.TrimSpace(strings.Join(args[1:], " "))
	if title == "" {
		return usage(errOut, "list title required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}

	// New lists go after the last one.
	patch := service.ListPatch{Title: &title, Position: service.Ptr(nextListPosition(b))}
	if c.color != "" {
		patch.Color = &c.color
	}
	l, err := env.Service.CreateList(ctx, b.ID, patch)
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, l)
	}
	env.success(fmt.Sprintf("List created (#%d)", l.ID))
	return exitcode.Success
}

func nextListPosition(b service.Board) int {
	next := 0
	for _, l := range b.Lists {
		if l.Position >= next {
			next = l.Position + 1
		}
	}
	return next
}

// RenameListCmd implements the renamelist command.
type RenameListCmd struct{}

func (c *RenameListCmd) Name() string      { return "renamelist" }
func (c *RenameListCmd) Aliases() []string { return nil }
func (c *RenameListCmd) Synopsis() string  { return "Rename a list" }
func (c *RenameListCmd) Usage() string     { return "tripboard renamelist <board> <list> <title...>" }
func (c *RenameListCmd) NeedsAuth() bool   { return true }

func (c *RenameListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RenameListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) < 3 {
		return usage(errOut, "board, list and new title required")
	}
	title := strings.TrimSpace(strings.Join(args[2:], " "))
	if title == "" {
		return usage(errOut, "list title required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	l, err := resolveList(b, args[1])
	if err != nil {
		return fail(errOut, err)
	}
	if _, err := env.Service.UpdateList(ctx, b.ID, l.ID, service.ListPatch{Title: &title}); err != nil {
		return fail(errOut, err)
	}
	env.success("List renamed")
	return exitcode.Success
}

// RmListCmd implements the rmlist command.
type RmListCmd struct {
	force bool
}

// SetForce sets the force flag (for testing).
func (c *RmListCmd) SetForce(force bool) {
	c.force = force
}

func (c *RmListCmd) Name() string      { return "rmlist" }
func (c *RmListCmd) Aliases() []string { return nil }
func (c *RmListCmd) Synopsis() string  { return "Delete a list" }
func (c *RmListCmd) Usage() string     { return "tripboard rmlist [--force] <board> <list>" }
func (c *RmListCmd) NeedsAuth() bool   { return true }

func (c *RmListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "")
}

func (c *RmListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		return usage(errOut, "board and list required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	l, err := resolveList(b, args[1])
	if err != nil {
		return fail(errOut, err)
	}

	// Check if list is empty (unless --force)
	if !c.force && len(l.Cards) > 0 {
		return usage(errOut, "list not empty (use --force)")
	}

	if err := env.Service.DeleteList(ctx, b.ID, l.ID); err != nil {
		return fail(errOut, err)
	}
	env.success("List deleted")
	return exitcode.Success
}
