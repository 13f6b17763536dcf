package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"tripboard/internal/boardview"
	"tripboard/internal/exitcode"
	"tripboard/internal/output"
	"tripboard/internal/service"
)

const (
	// dashboardLimit caps the upcoming and recent sections.
	dashboardLimit = 5

	// dashboardFetchers bounds concurrent per-board requests.
	dashboardFetchers = 4
)

func init() {
	Register(&DashboardCmd{})
}

// DashboardCmd implements the dashboard command.
type DashboardCmd struct{}

func (c *DashboardCmd) Name() string      { return "dashboard" }
func (c *DashboardCmd) Aliases() []string { return nil }
func (c *DashboardCmd) Synopsis() string  { return "Summarize all boards" }
func (c *DashboardCmd) Usage() string     { return "tripboard dashboard" }
func (c *DashboardCmd) NeedsAuth() bool   { return true }

func (c *DashboardCmd) RegisterFlags(fs *flag.FlagSet) {}

type dashboard struct {
	boardview.Stats
	Spent string `json:"actual_spend_total"`
}

func (c *DashboardCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usage(errOut, "unexpected argument: %s", args[0])
	}
	summaries, err := env.Service.ListBoards(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	// The collection endpoint may omit lists, so each board is loaded in full
	// alongside its budget summary.
	boards := make([]service.Board, len(summaries))
	spent := make([]decimal.Decimal, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardFetchers)
	for i, s := range summaries {
		g.Go(func() error {
			b, err := env.Service.GetBoard(gctx, s.ID)
			if err != nil {
				return err
			}
			boards[i] = b
			// A board without a budget summary has no recorded spend.
			sum, err := env.Service.BudgetSummary(gctx, s.ID)
			if errors.Is(err, service.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			spent[i] = boardview.ParseAmount(sum.ActualSpendTotal)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(errOut, err)
	}

	d := dashboard{Stats: boardview.Dashboard(boards, env.now(), dashboardLimit)}
	total := decimal.Zero
	for _, s := range spent {
		total = total.Add(s)
	}
	d.Spent = total.StringFixed(2)

	if env.Config.JSON {
		return writeJSON(out, errOut, d)
	}

	cur := env.Config.Currency
	fmt.Fprintf(out, "Boards:           %d\n", d.TotalBoards)
	fmt.Fprintf(out, "Active trips:     %d\n", d.ActiveTrips)
	fmt.Fprintf(out, "Total budget:     %s\n", output.Money(d.TotalBudget, cur))
	fmt.Fprintf(out, "Spent:            %s\n", output.Money(total, cur))
	fmt.Fprintf(out, "Completed tasks:  %d\n", d.CompletedTasks)
	fmt.Fprintf(out, "Members:          %d\n", d.TotalMembers)
	if len(d.Upcoming) > 0 {
		fmt.Fprintln(out, "Upcoming:")
		for _, u := range d.Upcoming {
			output.FormatUpcoming(out, u)
		}
	}
	if len(d.Recent) > 0 {
		fmt.Fprintln(out, "Recent boards:")
		for _, b := range d.Recent {
			output.FormatBoardLine(out, b, cur)
		}
	}
	return exitcode.Success
}
