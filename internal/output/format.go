// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"tripboard/internal/boardview"
	"tripboard/internal/service"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"

	// NotAvailable is printed for missing dates.
	NotAvailable = "N/A"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// Money formats an amount with two decimals, thousands separators and the
// currency symbol (or code when no symbol is known).
// Example: Money(decimal.RequireFromString("1200.5"), "USD") == "$1,200.50"
func Money(d decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	amount := group(whole) + "." + frac
	if sym, ok := currencySymbols[currency]; ok {
		return sign + sym + amount
	}
	return sign + currency + " " + amount
}

// MoneyString is Money for an API decimal string. Unparsable values format
// as zero.
func MoneyString(s, currency string) string {
	return Money(boardview.ParseAmount(s), currency)
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Date formats an API date as "Jan 2, 2006", or N/A when empty or invalid.
func Date(s string) string {
	t, ok := boardview.ParseDate(s)
	if !ok {
		return NotAvailable
	}
	return t.Format("Jan 2, 2006")
}

// JSON writes v as indented JSON followed by a newline.
func JSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// FormatBoardLine formats one row of the boards listing.
// Format: "{ID:>4}  {TITLE}  [{status}]  {progress}%  {budget}  {start}\n"
func FormatBoardLine(w io.Writer, b service.Board, currency string) {
	star := ""
	if b.IsFavorite {
		star = " *"
	}
	fmt.Fprintf(w, "%4d  %s%s  [%s]  %d%%  %s  %s\n",
		b.ID, normalizeTitle(b.Title), star, status(b.Status), boardview.Progress(b),
		MoneyString(b.Budget, orDefault(b.Currency, currency)), Date(b.StartDate))
}

// FormatBoardHeader prints the board title block.
func FormatBoardHeader(w io.Writer, b service.Board, currency string) {
	cur := orDefault(b.Currency, currency)
	fmt.Fprintf(w, "%s  [%s]\n", normalizeTitle(b.Title), status(b.Status))
	if b.Description != "" {
		fmt.Fprintln(w, normalizeTitle(b.Description))
	}
	fmt.Fprintf(w, "Dates:    %s - %s\n", Date(b.StartDate), Date(b.EndDate))
	fmt.Fprintf(w, "Budget:   %s total budget (planned %s)\n",
		Money(boardview.TotalBudget(b), cur), MoneyString(b.Budget, cur))
	fmt.Fprintf(w, "Members:  %d\n", len(b.Members))

	bd := boardview.TaskBreakdown(b)
	fmt.Fprintf(w, "Tasks:    %d (%d planning, %d booked, %d completed)  %d%% done\n",
		boardview.TaskCount(b), bd.Planning, bd.Booked, bd.Completed, boardview.Progress(b))
	if len(b.Tags) > 0 {
		fmt.Fprintf(w, "Tags:     %s\n", strings.Join(b.Tags, ", "))
	}
}

// FormatListHeader formats a list section header.
func FormatListHeader(w io.Writer, l service.List) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%s (#%d)\n", normalizeTitle(l.Title), l.ID)
	fmt.Fprintln(w, ListSeparator)
}

// FormatCard formats a card line inside a list section.
// Format: "    {ID:>4}  {TITLE}[  {cost}][  due {date}][  {done}/{total}]\n"
func FormatCard(w io.Writer, c service.Card, currency string) {
	var b strings.Builder
	fmt.Fprintf(&b, "    %4d  %s", c.ID, normalizeTitle(c.Title))
	if cost := boardview.CardCost(c); !cost.IsZero() {
		fmt.Fprintf(&b, "  %s", Money(cost, currency))
	}
	if c.DueDate != "" {
		fmt.Fprintf(&b, "  due %s", Date(c.DueDate))
	}
	if done, total := boardview.SubtaskProgress(c); total > 0 {
		fmt.Fprintf(&b, "  %d/%d", done, total)
	}
	fmt.Fprintln(w, b.String())
}

// FormatExpense formats one expense row.
func FormatExpense(w io.Writer, e service.Expense, currency string) {
	fmt.Fprintf(w, "%4d  %-12s  %-12s  %s  %s\n",
		e.ID, Date(e.Date), orDefault(e.Category, "other"),
		MoneyString(e.Amount, orDefault(e.Currency, currency)), normalizeTitle(e.Title))
}

// FormatLocation formats one map pin.
func FormatLocation(w io.Writer, l service.Location) {
	line := fmt.Sprintf("%4d  %s  (%s, %s)  card %d", l.ID, normalizeTitle(l.Name), l.Latitude, l.Longitude, l.CardID)
	if l.Address != "" {
		line += "  " + l.Address
	}
	fmt.Fprintln(w, line)
}

// FormatUpcoming formats a dashboard upcoming task.
func FormatUpcoming(w io.Writer, u boardview.UpcomingTask) {
	fmt.Fprintf(w, "  %s  %s (%s)\n", u.Due.Format(time.DateOnly), normalizeTitle(u.Title), normalizeTitle(u.BoardTitle))
}

func status(s string) string {
	if s == "" {
		return service.StatusPlanning
	}
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// normalizeTitle normalizes a title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
