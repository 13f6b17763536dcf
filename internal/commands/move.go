package commands

import (
	"context"
	"flag"
	"io"
	"strconv"

	"tripboard/internal/boardview"
	"tripboard/internal/exitcode"
	"tripboard/internal/output"
	"tripboard/internal/reorder"
)

func init() {
	Register(&MoveCmd{})
}

// MoveCmd implements the move command: the command-line form of dragging a
// card to a new slot.
type MoveCmd struct {
	list string
}

func (c *MoveCmd) Name() string      { return "move" }
func (c *MoveCmd) Aliases() []string { return []string{"mv"} }
func (c *MoveCmd) Synopsis() string  { return "Move a card within or across lists" }
func (c *MoveCmd) Usage() string     { return "tripboard move [--list <list>] <board> <card> <position>" }
func (c *MoveCmd) NeedsAuth() bool   { return true }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.list, "list", "", "")
}

func (c *MoveCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 3 {
		return usage(errOut, "board, card and position required")
	}
	pos, err := strconv.Atoi(args[2])
	if err != nil || pos < 1 {
		return usage(errOut, "invalid position: %s", args[2])
	}

	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	srcList, card, err := resolveBoardCard(b, args[1])
	if err != nil {
		return fail(errOut, err)
	}
	src, _ := reorder.SlotOf(b, card.ID)

	// A drop lands at most one past the last card of another list, or on
	// the last slot of its own list.
	dst := reorder.Slot{ListID: src.ListID, Index: pos - 1}
	maxIndex := len(srcList.Cards) - 1
	if c.list != "" {
		l, err := resolveList(b, c.list)
		if err != nil {
			return fail(errOut, err)
		}
		dst.ListID = l.ID
		if l.ID != src.ListID {
			maxIndex = len(l.Cards)
		}
	}
	if dst.Index > maxIndex {
		dst.Index = maxIndex
	}

	ctrl := reorder.New(env.Boards, env.notifier(),
		reorder.WithOptimistic(env.Config.OptimisticReorder),
		reorder.WithLogger(env.logger()),
	)
	after, moved, err := ctrl.Drop(ctx, b.ID, reorder.DragResult{CardID: card.ID, Source: src, Destination: &dst})
	if err != nil {
		// The controller has already notified the user.
		return exitcode.FromError(err)
	}

	if env.Config.JSON {
		return writeJSON(out, errOut, newBoardRow(after))
	}
	if !moved {
		if !env.Config.Quiet {
			env.notifier().Notify(infoNote("Card already in place"))
		}
		return exitcode.Success
	}
	env.success("Card moved")
	if !env.Config.Quiet {
		for _, l := range boardview.SortedLists(after) {
			if l.ID != dst.ListID {
				continue
			}
			output.FormatListHeader(out, l)
			for _, card := range boardview.SortedCards(l) {
				output.FormatCard(out, card, env.currency(after))
			}
		}
	}
	return exitcode.Success
}
