package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tripboard/internal/exitcode"
	"tripboard/internal/service"
	"tripboard/internal/validate"
)

func init() {
	Register(&AddCardCmd{})
	Register(&EditCardCmd{})
	Register(&RmCardCmd{})
}

// AddCardCmd implements the addcard command.
type AddCardCmd struct {
	budget      string
	people      int
	due         string
	description string
	category    string
	tags        stringList
}

func (c *AddCardCmd) Name() string      { return "addcard" }
func (c *AddCardCmd) Aliases() []string { return []string{"add"} }
func (c *AddCardCmd) Synopsis() string  { return "Add a card to a list" }
func (c *AddCardCmd) Usage() string {
	return "tripboard addcard [--budget <n>] [--people <n>] [--due <date>] [--description <d>] [--category <c>] [--tag <t>]... <board> <list> <title...>"
}
func (c *AddCardCmd) NeedsAuth() bool { return true }

func (c *AddCardCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.budget, "budget", "", "")
	fs.IntVar(&c.people, "people", 1, "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.category, "category", "", "")
	fs.Var(&c.tags, "tag", "")
}

func (c *AddCardCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) < 3 {
		return usage(errOut, "board, list and card title required")
	}
	title := strings.TrimSpace(strings.Join(args[2:], " "))
	form := validate.Card{
		Title:        title,
		Budget:       c.budget,
		PeopleNumber: c.people,
		DueDate:      c.due,
		Category:     c.category,
	}
	if err := env.validator().Struct(form); err != nil {
		return fail(errOut, err)
	}

	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	l, err := resolveList(b, args[1])
	if err != nil {
		return fail(errOut, err)
	}

	patch := service.CardPatch{
		Title:        &title,
		PeopleNumber: &c.people,
		Budget:       nonEmpty(c.budget),
		DueDate:      nonEmpty(c.due),
		Description:  nonEmpty(c.description),
		Category:     nonEmpty(c.category),
	}
	if len(c.tags) > 0 {
		tags := []string(c.tags)
		patch.Tags = &tags
	}
	card, err := env.Service.CreateCard(ctx, b.ID, l.ID, patch)
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, card)
	}
	env.success(fmt.Sprintf("Card created (#%d)", card.ID))
	return exitcode.Success
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// EditCardCmd implements the editcard command.
type EditCardCmd struct {
	title       optString
	budget      optString
	people      int
	due         optString
	description optString
	category    optString
}

func (c *EditCardCmd) Name() string      { return "editcard" }
func (c *EditCardCmd) Aliases() []string { return nil }
func (c *EditCardCmd) Synopsis() string  { return "Update card fields" }
func (c *EditCardCmd) Usage() string {
	return "tripboard editcard [--title <t>] [--budget <n>] [--people <n>] [--due <date>] [--description <d>] [--category <c>] <board> <list> <card>"
}
func (c *EditCardCmd) NeedsAuth() bool { return true }

func (c *EditCardCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.title, "title", "")
	fs.Var(&c.budget, "budget", "")
	fs.IntVar(&c.people, "people", 0, "")
	fs.Var(&c.due, "due", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.category, "category", "")
}

func (c *EditCardCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 3 {
		return usage(errOut, "board, list and card required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	l, err := resolveList(b, args[1])
	if err != nil {
		return fail(errOut, err)
	}
	card, err := resolveCard(l, args[2])
	if err != nil {
		return fail(errOut, err)
	}

	patch := service.CardPatch{
		Title:       c.title.ptr(),
		Budget:      c.budget.ptr(),
		DueDate:     c.due.ptr(),
		Description: c.description.ptr(),
		Category:    c.category.ptr(),
	}
	if c.people != 0 {
		patch.PeopleNumber = &c.people
	}
	if patch == (service.CardPatch{}) {
		return usage(errOut, "nothing to update")
	}

	// Stored values the server accepted are not re-checked.
	people := 1
	if patch.PeopleNumber != nil {
		people = *patch.PeopleNumber
	}
	form := validate.Card{
		Title:        pick(patch.Title, card.Title),
		Budget:       pick(patch.Budget, card.Budget),
		PeopleNumber: people,
		DueDate:      pick(patch.DueDate, card.DueDate),
		Category:     pick(patch.Category, ""),
	}
	if err := env.validator().Struct(form); err != nil {
		return fail(errOut, err)
	}

	updated, err := env.Service.UpdateCard(ctx, b.ID, l.ID, card.ID, patch)
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, updated)
	}
	env.success("Card updated")
	return exitcode.Success
}

// RmCardCmd implements the rmcard command.
type RmCardCmd struct{}

func (c *RmCardCmd) Name() string      { return "rmcard" }
func (c *RmCardCmd) Aliases() []string { return []string{"rm"} }
func (c *RmCardCmd) Synopsis() string  { return "Delete a card" }
func (c *RmCardCmd) Usage() string     { return "tripboard rmcard <board> <list> <card>" }
func (c *RmCardCmd) NeedsAuth() bool   { return true }

func (c *RmCardCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCardCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 3 {
		return usage(errOut, "board, list and card required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	l, err := resolveList(b, args[1])
	if err != nil {
		return fail(errOut, err)
	}
	card, err := resolveCard(l, args[2])
	if err != nil {
		return fail(errOut, err)
	}
	if err := env.Service.DeleteCard(ctx, b.ID, l.ID, card.ID); err != nil {
		return fail(errOut, err)
	}
	env.success("Card deleted")
	return exitcode.Success
}
