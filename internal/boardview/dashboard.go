package boardview

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tripboard/internal/service"
)

// UpcomingTask is a card with a due date that has not passed.
type UpcomingTask struct {
	CardID     int64     `json:"card_id"`
	Title      string    `json:"title"`
	BoardID    int64     `json:"board_id"`
	BoardTitle string    `json:"board"`
	Due        time.Time `json:"due_date"`
}

// Stats aggregates a board collection for the dashboard.
type Stats struct {
	TotalBoards    int             `json:"total_boards"`
	ActiveTrips    int             `json:"active_trips"`
	TotalBudget    decimal.Decimal `json:"total_budget"`
	CompletedTasks int             `json:"completed_tasks"`
	TotalMembers   int             `json:"total_members"`
	Upcoming       []UpcomingTask  `json:"upcoming_tasks"`
	Recent         []service.Board `json:"-"`
}

// Dashboard summarizes boards as of now. Upcoming holds at most limit cards
// due on or after today, soonest first; Recent holds at most limit boards,
// most recently updated first.
func Dashboard(boards []service.Board, now time.Time, limit int) Stats {
	s := Stats{
		TotalBoards: len(boards),
		TotalBudget: decimal.Zero,
		Upcoming:    []UpcomingTask{},
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	members := map[int64]bool{}

	for _, b := range boards {
		if b.Status == service.StatusActive {
			s.ActiveTrips++
		}
		s.TotalBudget = s.TotalBudget.Add(ParseAmount(b.Budget))
		s.CompletedTasks += TaskBreakdown(b).Completed

		if b.Owner.ID != 0 {
			members[b.Owner.ID] = true
		}
		for _, m := range b.Members {
			members[m.ID] = true
		}

		for _, l := range b.Lists {
			for _, c := range l.Cards {
				due, ok := ParseDate(c.DueDate)
				if !ok || due.Before(today) {
					continue
				}
				s.Upcoming = append(s.Upcoming, UpcomingTask{
					CardID:     c.ID,
					Title:      c.Title,
					BoardID:    b.ID,
					BoardTitle: b.Title,
					Due:        due,
				})
			}
		}
	}
	s.TotalMembers = len(members)

	sort.SliceStable(s.Upcoming, func(i, j int) bool {
		if !s.Upcoming[i].Due.Equal(s.Upcoming[j].Due) {
			return s.Upcoming[i].Due.Before(s.Upcoming[j].Due)
		}
		return s.Upcoming[i].CardID < s.Upcoming[j].CardID
	})
	if limit > 0 && len(s.Upcoming) > limit {
		s.Upcoming = s.Upcoming[:limit]
	}

	s.Recent = make([]service.Board, len(boards))
	copy(s.Recent, boards)
	sort.SliceStable(s.Recent, func(i, j int) bool {
		return s.Recent[i].UpdatedAt.After(s.Recent[j].UpdatedAt)
	})
	if limit > 0 && len(s.Recent) > limit {
		s.Recent = s.Recent[:limit]
	}
	return s
}
