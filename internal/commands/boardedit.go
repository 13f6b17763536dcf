package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tripboard/internal/exitcode"
	"tripboard/internal/notify"
	"tripboard/internal/service"
	"tripboard/internal/validate"
)

func init() {
	Register(&CreateBoardCmd{})
	Register(&UpdateBoardCmd{})
	Register(&FavoriteCmd{})
	Register(&RmBoardCmd{})
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("empty value")
	}
	*s = append(*s, v)
	return nil
}

// optString is a string flag that remembers whether it was set.
type optString struct {
	value string
	set   bool
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(v string) error {
	o.value, o.set = v, true
	return nil
}

func (o *optString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// CreateBoardCmd implements the createboard command.
type CreateBoardCmd struct {
	description string
	budget      string
	currency    string
	status      string
	start       string
	end         string
	tags        stringList
}

func (c *CreateBoardCmd) Name() string      { return "createboard" }
func (c *CreateBoardCmd) Aliases() []string { return []string{"addboard"} }
func (c *CreateBoardCmd) Synopsis() string  { return "Create a board" }
func (c *CreateBoardCmd) Usage() string {
	return "tripboard createboard [--description <d>] [--budget <n>] [--currency <c>] [--status <s>] [--start <date>] [--end <date>] [--tag <t>]... <title...>"
}
func (c *CreateBoardCmd) NeedsAuth() bool { return true }

func (c *CreateBoardCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.budget, "budget", "", "")
	fs.StringVar(&c.currency, "currency", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.start, "start", "", "")
	fs.StringVar(&c.end, "end", "", "")
	fs.Var(&c.tags, "tag", "")
}

func (c *CreateBoardCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	currency := strings.ToUpper(c.currency)
	if currency == "" {
		currency = env.Config.Currency
	}
	form := validate.Board{
		Title:     title,
		Status:    c.status,
		Budget:    c.budget,
		Currency:  currency,
		StartDate: c.start,
		EndDate:   c.end,
	}
	if err := env.validator().Struct(form); err != nil {
		return fail(errOut, err)
	}

	b, err := env.Service.CreateBoard(ctx, service.NewBoard{
		Title:       title,
		Description: c.description,
		Status:      c.status,
		Budget:      c.budget,
		Currency:    currency,
		StartDate:   c.start,
		EndDate:     c.end,
		Tags:        c.tags,
	})
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, b)
	}
	env.success(fmt.Sprintf("Board created (#%d)", b.ID))
	return exitcode.Success
}

// UpdateBoardCmd implements the updateboard command.
type UpdateBoardCmd struct {
	title       optString
	description optString
	status      optString
	budget      optString
	currency    optString
	start       optString
	end         optString
}

func (c *UpdateBoardCmd) Name() string      { return "updateboard" }
func (c *UpdateBoardCmd) Aliases() []string { return []string{"editboard"} }
func (c *UpdateBoardCmd) Synopsis() string  { return "Update board fields" }
func (c *UpdateBoardCmd) Usage() string {
	return "tripboard updateboard [--title <t>] [--description <d>] [--status <s>] [--budget <n>] [--currency <c>] [--start <date>] [--end <date>] <board>"
}
func (c *UpdateBoardCmd) NeedsAuth() bool { return true }

func (c *UpdateBoardCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.title, "title", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.status, "status", "")
	fs.Var(&c.budget, "budget", "")
	fs.Var(&c.currency, "currency", "")
	fs.Var(&c.start, "start", "")
	fs.Var(&c.end, "end", "")
}

func (c *UpdateBoardCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "board required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}

	patch := service.BoardPatch{
		Title:       c.title.ptr(),
		Description: c.description.ptr(),
		Status:      c.status.ptr(),
		Budget:      c.budget.ptr(),
		Currency:    c.currency.ptr(),
		StartDate:   c.start.ptr(),
		EndDate:     c.end.ptr(),
	}
	if patch == (service.BoardPatch{}) {
		return usage(errOut, "nothing to update")
	}

	// The merged form is validated so an end date is checked against the
	// stored start date.
	form := validate.Board{
		Title:     pick(patch.Title, b.Title),
		Status:    pick(patch.Status, b.Status),
		Budget:    pick(patch.Budget, b.Budget),
		Currency:  pick(patch.Currency, b.Currency),
		StartDate: pick(patch.StartDate, b.StartDate),
		EndDate:   pick(patch.EndDate, b.EndDate),
	}
	if err := env.validator().Struct(form); err != nil {
		return fail(errOut, err)
	}

	updated, err := env.Service.UpdateBoard(ctx, b.ID, patch)
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, updated)
	}
	env.success("Board updated")
	return exitcode.Success
}

func pick(p *string, current string) string {
	if p != nil {
		return *p
	}
	return current
}

// FavoriteCmd implements the favorite command.
type FavoriteCmd struct{}

func (c *FavoriteCmd) Name() string      { return "favorite" }
func (c *FavoriteCmd) Aliases() []string { return []string{"fav"} }
func (c *FavoriteCmd) Synopsis() string  { return "Toggle a board's favorite flag" }
func (c *FavoriteCmd) Usage() string     { return "tripboard favorite <board>" }
func (c *FavoriteCmd) NeedsAuth() bool   { return true }

func (c *FavoriteCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *FavoriteCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "board required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	updated, err := env.Service.UpdateBoard(ctx, b.ID, service.BoardPatch{IsFavorite: service.Ptr(!b.IsFavorite)})
	if err != nil {
		env.notifier().Notify(notify.Notification{Level: notify.Error, Title: "Failed to update favorite", Detail: exitcode.Message(err)})
		return exitcode.FromError(err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, updated)
	}
	if updated.IsFavorite {
		env.success("Added to favorites")
	} else {
		env.success("Removed from favorites")
	}
	return exitcode.Success
}

// RmBoardCmd implements the rmboard command.
type RmBoardCmd struct{}

func (c *RmBoardCmd) Name() string      { return "rmboard" }
func (c *RmBoardCmd) Aliases() []string { return nil }
func (c *RmBoardCmd) Synopsis() string  { return "Delete a board" }
func (c *RmBoardCmd) Usage() string     { return "tripboard rmboard <board>" }
func (c *RmBoardCmd) NeedsAuth() bool   { return true }

func (c *RmBoardCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmBoardCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "board required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	if err := env.Service.DeleteBoard(ctx, b.ID); err != nil {
		return fail(errOut, err)
	}
	env.success("Board deleted")
	return exitcode.Success
}
