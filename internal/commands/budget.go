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
	Register(&BudgetCmd{})
	Register(&ExpensesCmd{})
	Register(&AddExpenseCmd{})
	Register(&EditExpenseCmd{})
	Register(&RmExpenseCmd{})
}

// BudgetCmd implements the budget command.
type BudgetCmd struct{}

func (c *BudgetCmd) Name() string      { return "budget" }
func (c *BudgetCmd) Aliases() []string { return nil }
func (c *BudgetCmd) Synopsis() string  { return "Show planned budget against actual spend" }
func (c *BudgetCmd) Usage() string     { return "tripboard budget <board>" }
func (c *BudgetCmd) NeedsAuth() bool   { return true }

func (c *BudgetCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *BudgetCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "board required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	s, err := env.Service.BudgetSummary(ctx, b.ID)
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, s)
	}

	cur := env.currency(b)
	fmt.Fprintf(out, "Budget:     %s\n", output.MoneyString(s.BoardBudget, cur))
	fmt.Fprintf(out, "Spent:      %s\n", output.MoneyString(s.ActualSpendTotal, cur))
	fmt.Fprintf(out, "Remaining:  %s\n", output.MoneyString(s.Remaining, cur))
	if len(s.ByCategory) > 0 {
		fmt.Fprintln(out, "By category:")
		for _, row := range s.ByCategory {
			fmt.Fprintf(out, "  %-12s  %s\n", row.Category, output.MoneyString(row.Total, cur))
		}
	}
	return exitcode.Success
}

// ExpensesCmd implements the expenses command.
type ExpensesCmd struct {
	category string
	from     string
	to       string
}

func (c *ExpensesCmd) Name() string      { return "expenses" }
func (c *ExpensesCmd) Aliases() []string { return nil }
func (c *ExpensesCmd) Synopsis() string  { return "List a board's expenses" }
func (c *ExpensesCmd) Usage() string {
	return "tripboard expenses [--category <c>] [--from <date>] [--to <date>] <board>"
}
func (c *ExpensesCmd) NeedsAuth() bool { return true }

func (c *ExpensesCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.from, "from", "", "")
	fs.StringVar(&c.to, "to", "", "")
}

func (c *ExpensesCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "board required")
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	expenses, err := env.Service.ListExpenses(ctx, b.ID, service.ExpenseFilter{
		Category: c.category,
		DateFrom: c.from,
		DateTo:   c.to,
	})
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, expenses)
	}
	if len(expenses) == 0 {
		if !env.Config.Quiet {
			fmt.Fprintln(out, "no expenses found")
		}
		return exitcode.Success
	}
	for _, e := range expenses {
		output.FormatExpense(out, e, env.currency(b))
	}
	return exitcode.Success
}

// AddExpenseCmd implements the addexpense command.
type AddExpenseCmd struct {
	category string
	date     string
	notes    string
}

func (c *AddExpenseCmd) Name() string      { return "addexpense" }
func (c *AddExpenseCmd) Aliases() []string { return nil }
func (c *AddExpenseCmd) Synopsis() string  { return "Record an expense" }
func (c *AddExpenseCmd) Usage() string {
	return "tripboard addexpense [--category <c>] [--date <date>] [--notes <n>] <board> <amount> <title...>"
}
func (c *AddExpenseCmd) NeedsAuth() bool { return true }

func (c *AddExpenseCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "other", "")
	fs.StringVar(&c.date, "date", "", "")
	fs.StringVar(&c.notes, "notes", "", "")
}

func (c *AddExpenseCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) < 3 {
		return usage(errOut, "board, amount and title required")
	}
	amount := strings.TrimSpace(args[1])
	title := strings.TrimSpace(strings.Join(args[2:], " "))
	date := c.date
	if date == "" {
		date = env.now().Format("2006-01-02")
	}
	form := validate.Expense{Title: title, Amount: amount, Category: c.category, Date: date}
	if err := env.validator().Struct(form); err != nil {
		return fail(errOut, err)
	}

	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	e, err := env.Service.CreateExpense(ctx, b.ID, service.ExpensePatch{
		Title:    &title,
		Amount:   &amount,
		Category: &c.category,
		Date:     &date,
		Notes:    nonEmpty(c.notes),
		Currency: service.Ptr(env.currency(b)),
	})
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, e)
	}
	env.success(fmt.Sprintf("Expense added (#%d)", e.ID))
	return exitcode.Success
}

// EditExpenseCmd implements the editexpense command.
type EditExpenseCmd struct {
	title    optString
	amount   optString
	category optString
	date     optString
	notes    optString
}

func (c *EditExpenseCmd) Name() string      { return "editexpense" }
func (c *EditExpenseCmd) Aliases() []string { return nil }
func (c *EditExpenseCmd) Synopsis() string  { return "Update an expense" }
func (c *EditExpenseCmd) Usage() string {
	return "tripboard editexpense [--title <t>] [--amount <n>] [--category <c>] [--date <date>] [--notes <n>] <board> <expense-id>"
}
func (c *EditExpenseCmd) NeedsAuth() bool { return true }

func (c *EditExpenseCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.title, "title", "")
	fs.Var(&c.amount, "amount", "")
	fs.Var(&c.category, "category", "")
	fs.Var(&c.date, "date", "")
	fs.Var(&c.notes, "notes", "")
}

func (c *EditExpenseCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		return usage(errOut, "board and expense id required")
	}
	id, err := parseID("expense", args[1])
	if err != nil {
		return usage(errOut, "%v", err)
	}
	patch := service.ExpensePatch{
		Title:    c.title.ptr(),
		Amount:   c.amount.ptr(),
		Category: c.category.ptr(),
		Date:     c.date.ptr(),
		Notes:    c.notes.ptr(),
	}
	if patch == (service.ExpensePatch{}) {
		return usage(errOut, "nothing to update")
	}
	// Unchanged fields are filled with values that always pass.
	form := validate.Expense{
		Title:    pick(patch.Title, "-"),
		Amount:   pick(patch.Amount, "1"),
		Category: pick(patch.Category, ""),
		Date:     pick(patch.Date, ""),
	}
	if err := env.validator().Struct(form); err != nil {
		return fail(errOut, err)
	}

	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	e, err := env.Service.UpdateExpense(ctx, b.ID, id, patch)
	if err != nil {
		return fail(errOut, err)
	}
	if env.Config.JSON {
		return writeJSON(out, errOut, e)
	}
	env.success("Expense updated")
	return exitcode.Success
}

// RmExpenseCmd implements the rmexpense command.
type RmExpenseCmd struct{}

func (c *RmExpenseCmd) Name() string      { return "rmexpense" }
func (c *RmExpenseCmd) Aliases() []string { return nil }
func (c *RmExpenseCmd) Synopsis() string  { return "Delete an expense" }
func (c *RmExpenseCmd) Usage() string     { return "tripboard rmexpense <board> <expense-id>" }
func (c *RmExpenseCmd) NeedsAuth() bool   { return true }

func (c *RmExpenseCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmExpenseCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		return usage(errOut, "board and expense id required")
	}
	id, err := parseID("expense", args[1])
	if err != nil {
		return usage(errOut, "%v", err)
	}
	b, err := resolveBoard(ctx, env.Service, args[0])
	if err != nil {
		return fail(errOut, err)
	}
	if err := env.Service.DeleteExpense(ctx, b.ID, id); err != nil {
		return fail(errOut, err)
	}
	env.success("Expense deleted")
	return exitcode.Success
}
