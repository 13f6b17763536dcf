// Package boardview derives read-only figures from a board snapshot:
// progress, total budget, task breakdown and display ordering.
// Nothing here mutates its input or talks to the network.
package boardview

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"tripboard/internal/service"
)

// Column keywords matched case-insensitively against list titles.
const (
	KeywordPlanning  = "planning"
	KeywordBooked    = "booked"
	KeywordCompleted = "completed"
)

// Breakdown counts cards by the kind of list they sit in.
type Breakdown struct {
	Planning  int `json:"planning"`
	Booked    int `json:"booked"`
	Completed int `json:"completed"`
}

// Total returns the number of categorized cards.
func (b Breakdown) Total() int {
	return b.Planning + b.Booked + b.Completed
}

// TaskCount returns the number of cards on the board.
func TaskCount(b service.Board) int {
	n := 0
	for _, l := range b.Lists {
		n += len(l.Cards)
	}
	return n
}

// Progress returns the percentage of cards that sit in lists whose title
// contains "completed", rounded to the nearest integer. A board without
// cards is 0% complete.
func Progress(b service.Board) int {
	total := TaskCount(b)
	if total == 0 {
		return 0
	}
	done := 0
	for _, l := range b.Lists {
		if isCompleted(l) {
			done += len(l.Cards)
		}
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// TotalBudget sums budget * people over every card. Unparsable budgets and
// negative people counts contribute nothing.
func TotalBudget(b service.Board) decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.Lists {
		for _, c := range l.Cards {
			total = total.Add(CardCost(c))
		}
	}
	return total
}

// ParseAmount parses an API decimal string. Unparsable values are zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CardCost returns budget * people for one card.
func CardCost(c service.Card) decimal.Decimal {
	budget := ParseAmount(c.Budget)
	people := c.PeopleNumber
	if people < 0 {
		people = 0
	}
	return budget.Mul(decimal.NewFromInt(int64(people)))
}

// TaskBreakdown counts cards per column kind. A list is matched against
// planning, then booked, then completed; the first keyword found wins and
// lists matching none are left out.
func TaskBreakdown(b service.Board) Breakdown {
	var out Breakdown
	for _, l := range b.Lists {
		title := strings.ToLower(l.Title)
		switch {
		case strings.Contains(title, KeywordPlanning):
			out.Planning += len(l.Cards)
		case strings.Contains(title, KeywordBooked):
			out.Booked += len(l.Cards)
		case strings.Contains(title, KeywordCompleted):
			out.Completed += len(l.Cards)
		}
	}
	return out
}

// SortedLists returns the board's lists in display order: ascending
// position, ties broken by id. The board is not modified.
func SortedLists(b service.Board) []service.List {
	out := make([]service.List, len(b.Lists))
	copy(out, b.Lists)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SortedCards returns the list's cards in display order.
func SortedCards(l service.List) []service.Card {
	out := make([]service.Card, len(l.Cards))
	copy(out, l.Cards)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SubtaskProgress returns completed and total subtask counts.
func SubtaskProgress(c service.Card) (done, total int) {
	for _, s := range c.Subtasks {
		if s.Completed {
			done++
		}
	}
	return done, len(c.Subtasks)
}

// IsCompletedList reports whether cards in l count as done.
func IsCompletedList(l service.List) bool {
	return isCompleted(l)
}

func isCompleted(l service.List) bool {
	return strings.Contains(strings.ToLower(l.Title), KeywordCompleted)
}
