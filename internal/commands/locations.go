package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tripboard/internal/exitcode"
	"tripboard/internal/output"
	"tripboard/internal/service"
	"tripboard/internal/validate"
)

func init() {
	Register(&LocationsCmd{})
	Register(&AddLocationCmd{})
	Register(&RmLocationCmd{})
}

// LocationsCmd implements the locations command.
type LocationsCmd struct{}

func (c *LocationsCmd) Name() string      { return "locations" }
func (c *LocationsCmd) Aliases() []string { return []string{"map"} }
func (c *LocationsCmd) Synopsis() string  { return "List the map pins of a board" }
func (c *LocationsCmd) Usage() string     { return "tripboard locations <board>" }
func (c *LocationsCmd) NeedsAuth() bool   { return true }

func (c *LocationsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LocationsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "board required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	locs, err := env.Service.ListLocations(ctx, b.ID)
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, locs)
	}
	if len(locs) == 0 {
		if !env.Config.Quiet {
			fmt.Fprintln(out, "no locations found")
		}
		return exitcode.Success
	}
	for _, l := range locs {
		output.FormatLocation(out, l)
	}
	return exitcode.Success
}

// AddLocationCmd implements the addlocation command.
type AddLocationCmd struct {
	description string
	address     string
}

func (c *AddLocationCmd) Name() string      { return "addlocation" }
func (c *AddLocationCmd) Aliases() []string { return []string{"pin"} }
func (c *AddLocationCmd) Synopsis() string  { return "Pin a card on the map" }
func (c *AddLocationCmd) Usage() string {
	return "tripboard addlocation [--description <d>] [--address <a>] <board> <card> <lat> <lng> <name...>"
}
func (c *AddLocationCmd) NeedsAuth() bool { return true }

func (c *AddLocationCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.address, "address", "", "")
}

func (c *AddLocationCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) < 5 {
		return usage(errOut, "board, card, latitude, longitude and name required")
	}
	name := strings.TrimSpace(strings.Join(args[4:], " "))
	form := validate.Location{Name: name, Latitude: args[2], Longitude: args[3]}
	if err := env.validator().Struct(form); err != nil {
		return fail(errOut, err)
	}

	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	_, card, err := resolveBoardCard(b, args[1])
	if err != nil {
		return fail(errOut, err)
	}
	loc, err := env.Service.CreateLocation(ctx, b.ID, service.NewLocation{
		CardID:      card.ID,
		Name:        name,
		Description: c.description,
		Latitude:    args[2],
		Longitude:   args[3],
		Address:     c.address,
	})
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, loc)
	}
	env.success(fmt.Sprintf("Location added (#%d)", loc.ID))
	return exitcode.Success
}

// RmLocationCmd implements the rmlocation command.
type RmLocationCmd struct{}

func (c *RmLocationCmd) Name() string      { return "rmlocation" }
func (c *RmLocationCmd) Aliases() []string { return []string{"unpin"} }
func (c *RmLocationCmd) Synopsis() string  { return "Remove a map pin" }
func (c *RmLocationCmd) Usage() string     { return "tripboard rmlocation <board> <location-id>" }
func (c *RmLocationCmd) NeedsAuth() bool   { return true }

func (c *RmLocationCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmLocationCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		return usage(errOut, "board and location id required")
	}
	id, err := parseID("location", args[1])
	if err != nil {
		return usage(errOut, "%v", err)
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	if err := env.Service.DeleteLocation(ctx, b.ID, id); err != nil {
		return fail(errOut, err)
	}
	env.success("Location removed")
	return exitcode.Success
}
