package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tripboard/internal/boardview"
	"tripboard/internal/exitcode"
	"tripboard/internal/output"
	"tripboard/internal/service"
)

func init() {
	Register(&BoardsCmd{})
	Register(&BoardCmd{})
}

// BoardsCmd implements the boards command.
type BoardsCmd struct {
	status string
	sort   string
	search string
}

func (c *BoardsCmd) Name() string      { return "boards" }
func (c *BoardsCmd) Aliases() []string { return []string{"ls"} }
func (c *BoardsCmd) Synopsis() string  { return "List boards" }
func (c *BoardsCmd) Usage() string {
	return "tripboard boards [--status <s>] [--sort recent|title|budget|date] [--search <q>]"
}
func (c *BoardsCmd) NeedsAuth() bool { return true }

func (c *BoardsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", "all", "")
	fs.StringVar(&c.sort, "sort", string(boardview.SortRecent), "")
	fs.StringVar(&c.search, "search", "", "")
}

func (c *BoardsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usage(errOut, "unexpected argument: %s", args[0])
	}
	key, err := boardview.ParseSortKey(c.sort)
	if err != nil {
		return usage(errOut, "%v", err)
	}

	boards, err := env.Service.ListBoards(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	boards = boardview.Sort(boardview.Filter(boards, boardview.Query{Search: c.search, Status: c.status}), key)

	if env.Config.JSON {
		rows := make([]boardRow, len(boards))
		for i, b := range boards {
			rows[i] = newBoardRow(b)
		}
		return writeJSON(out, errOut, rows)
	}

	if len(boards) == 0 {
		if !env.Config.Quiet {
			fmt.Fprintln(out, "no boards found")
		}
		return exitcode.Success
	}
	for _, b := range boards {
		output.FormatBoardLine(out, b, env.Config.Currency)
	}
	return exitcode.Success
}

// boardRow is the JSON shape of a boards listing entry.
type boardRow struct {
	service.Board
	Progress    int                 `json:"progress"`
	TaskCount   int                 `json:"task_count"`
	TotalBudget string              `json:"total_budget"`
	Breakdown   boardview.Breakdown `json:"breakdown"`
}

func newBoardRow(b service.Board) boardRow {
	return boardRow{
		Board:       b,
		Progress:    boardview.Progress(b),
		TaskCount:   boardview.TaskCount(b),
		TotalBudget: boardview.TotalBudget(b).StringFixed(2),
		Breakdown:   boardview.TaskBreakdown(b),
	}
}

// BoardCmd implements the board command.
type BoardCmd struct{}

func (c *BoardCmd) Name() string      { return "board" }
func (c *BoardCmd) Aliases() []string { return []string{"show"} }
func (c *BoardCmd) Synopsis() string  { return "Show a board with its lists and cards" }
func (c *BoardCmd) Usage() string     { return "tripboard board <board>" }
func (c *BoardCmd) NeedsAuth() bool   { return true }

func (c *BoardCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *BoardCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "board required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}

	if env.Config.JSON {
		return writeJSON(out, errOut, newBoardRow(b))
	}

	currency := env.currency(b)
	output.FormatBoardHeader(out, b, env.Config.Currency)
	for _, l := range boardview.SortedLists(b) {
		output.FormatListHeader(out, l)
		for _, card := range boardview.SortedCards(l) {
			output.FormatCard(out, card, currency)
		}
	}
	return exitcode.Success
}

func writeJSON(out, errOut io.Writer, v any) int {
	if err := output.JSON(out, v); err != nil {
		return fail(errOut, err)
	}
	return exitcode.Success
}
