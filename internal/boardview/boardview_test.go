package boardview_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripboard/internal/boardview"
	"tripboard/internal/service"
)

func cards(n int) []service.Card {
	out := make([]service.Card, n)
	for i := range out {
		out[i] = service.Card{ID: int64(i + 1), Title: "card"}
	}
	return out
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name  string
		board service.Board
		want  int
	}{
		{"no lists", service.Board{}, 0},
		{"no cards", service.Board{Lists: []service.List{{Title: "Completed Tasks"}}}, 0},
		{"all completed", service.Board{Lists: []service.List{{Title: "Completed Tasks", Cards: cards(4)}}}, 100},
		{"quarter", service.Board{Lists: []service.List{
			{Title: "Planning", Cards: cards(3)},
			{Title: "completed", Cards: cards(1)},
		}}, 25},
		{"rounds half up", service.Board{Lists: []service.List{
			{Title: "Planning", Cards: cards(7)},
			{Title: "COMPLETED", Cards: cards(1)},
		}}, 13},
		{"rounds down", service.Board{Lists: []service.List{
			{Title: "Planning", Cards: cards(2)},
			{Title: "Completed", Cards: cards(1)},
		}}, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, boardview.Progress(tt.board))
		})
	}
}

func TestTotalBudget(t *testing.T) {
	b := service.Board{Lists: []service.List{
		{Cards: []service.Card{{Budget: "10.00", PeopleNumber: 2}}},
		{Cards: []service.Card{{Budget: "5.00", PeopleNumber: 1}}},
	}}
	assert.Equal(t, "25.00", boardview.TotalBudget(b).StringFixed(2))

	b.Lists = append(b.Lists, service.List{Cards: []service.Card{
		{Budget: "not-a-number", PeopleNumber: 3},
		{Budget: "100", PeopleNumber: -2},
		{Budget: "0.10", PeopleNumber: 3},
	}})
	assert.Equal(t, "25.30", boardview.TotalBudget(b).StringFixed(2), "decimal math must not drift")

	assert.True(t, boardview.TotalBudget(service.Board{}).IsZero())
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, "12.40", boardview.ParseAmount(" 12.4 ").StringFixed(2))
	assert.True(t, boardview.ParseAmount("").IsZero())
	assert.True(t, boardview.ParseAmount("abc").IsZero())
}

func TestTaskBreakdown(t *testing.T) {
	b := service.Board{Lists: []service.List{
		{Title: "Planning", Cards: cards(2)},
		{Title: "Booked & Confirmed", Cards: cards(3)},
		{Title: "Completed Tasks", Cards: cards(1)},
		{Title: "Planning (completed)", Cards: cards(4)},
		{Title: "Ideas", Cards: cards(5)},
	}}
	got := boardview.TaskBreakdown(b)
	assert.Equal(t, boardview.Breakdown{Planning: 6, Booked: 3, Completed: 1}, got)
	assert.Equal(t, 10, got.Total())
	assert.Equal(t, 15, boardview.TaskCount(b))
}

func TestSortedListsAndCards(t *testing.T) {
	b := service.Board{Lists: []service.List{
		{ID: 9, Position: 1},
		{ID: 4, Position: 0},
		{ID: 2, Position: 1},
	}}
	lists := boardview.SortedLists(b)
	require.Len(t, lists, 3)
	assert.Equal(t, []int64{4, 2, 9}, []int64{lists[0].ID, lists[1].ID, lists[2].ID})
	assert.Equal(t, int64(9), b.Lists[0].ID, "input is not modified")

	l := service.List{Cards: []service.Card{
		{ID: 30, Position: 2}, {ID: 20, Position: 0}, {ID: 10, Position: 2},
	}}
	cs := boardview.SortedCards(l)
	assert.Equal(t, []int64{20, 10, 30}, []int64{cs[0].ID, cs[1].ID, cs[2].ID})

	assert.Empty(t, boardview.SortedLists(service.Board{}))
	assert.Empty(t, boardview.SortedCards(service.List{}))
}

func TestSubtaskProgress(t *testing.T) {
	done, total := boardview.SubtaskProgress(service.Card{Subtasks: []service.Subtask{
		{Title: "passport", Completed: true},
		{Title: "visa"},
	}})
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)

	done, total = boardview.SubtaskProgress(service.Card{})
	assert.Zero(t, done)
	assert.Zero(t, total)
}

func collection() []service.Board {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []service.Board{
		{ID: 1, Title: "Lisbon", Description: "city break", Status: service.StatusPlanning, Budget: "800", StartDate: "2024-09-10", Tags: []string{"Europe"}, CreatedAt: base},
		{ID: 2, Title: "alps hike", Status: service.StatusActive, Budget: "1500.50", Tags: []string{"mountains"}, CreatedAt: base.Add(48 * time.Hour)},
		{ID: 3, Title: "Bali", Description: "beach and EUROPE-free", Status: service.StatusCompleted, Budget: "2300", StartDate: "2024-03-01", CreatedAt: base.Add(24 * time.Hour)},
	}
}

func ids(boards []service.Board) []int64 {
	out := make([]int64, len(boards))
	for i, b := range boards {
		out[i] = b.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	boards := collection()
	assert.Equal(t, []int64{1, 3}, ids(boardview.Filter(boards, boardview.Query{Search: "europe"})))
	assert.Equal(t, []int64{2}, ids(boardview.Filter(boards, boardview.Query{Search: "MOUNT"})))
	assert.Equal(t, []int64{2}, ids(boardview.Filter(boards, boardview.Query{Status: "active"})))
	assert.Equal(t, []int64{1, 2, 3}, ids(boardview.Filter(boards, boardview.Query{Status: "all"})))
	assert.Empty(t, boardview.Filter(boards, boardview.Query{Search: "europe", Status: "active"}))
	assert.Empty(t, boardview.Filter(nil, boardview.Query{}))
}

func TestSort(t *testing.T) {
	boards := collection()
	assert.Equal(t, []int64{2, 3, 1}, ids(boardview.Sort(boards, boardview.SortRecent)))
	assert.Equal(t, []int64{2, 3, 1}, ids(boardview.Sort(boards, boardview.SortTitle)))
	assert.Equal(t, []int64{3, 2, 1}, ids(boardview.Sort(boards, boardview.SortBudget)))
	assert.Equal(t, []int64{3, 1, 2}, ids(boardview.Sort(boards, boardview.SortDate)), "undated boards sort last")
	assert.Equal(t, []int64{1, 2, 3}, ids(boards), "input is not modified")
}

func TestParseSortKey(t *testing.T) {
	k, err := boardview.ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, boardview.SortRecent, k)

	k, err = boardview.ParseSortKey(" Budget ")
	require.NoError(t, err)
	assert.Equal(t, boardview.SortBudget, k)

	_, err = boardview.ParseSortKey("price")
	assert.Error(t, err)
}

func TestDashboard(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)
	owner := service.User{ID: 1}
	boards := []service.Board{
		{
			ID: 1, Title: "Lisbon", Status: service.StatusActive, Budget: "1000.00", Owner: owner,
			Members:   []service.User{owner, {ID: 2}},
			UpdatedAt: now.Add(-time.Hour),
			Lists: []service.List{
				{Title: "Planning", Cards: []service.Card{
					{ID: 11, Title: "Museum", DueDate: "2024-06-20"},
					{ID: 12, Title: "Past", DueDate: "2024-06-01"},
					{ID: 13, Title: "Today", DueDate: "2024-06-15"},
					{ID: 14, Title: "Undated"},
				}},
				{Title: "Completed", Cards: cards(2)},
			},
		},
		{
			ID: 2, Title: "Rome", Status: service.StatusPlanning, Budget: "250.50", Owner: service.User{ID: 3},
			UpdatedAt: now,
			Lists: []service.List{{Title: "Booked", Cards: []service.Card{
				{ID: 21, Title: "Colosseum", DueDate: "2024-06-18"},
			}}},
		},
	}

	s := boardview.Dashboard(boards, now, 2)
	assert.Equal(t, 2, s.TotalBoards)
	assert.Equal(t, 1, s.ActiveTrips)
	assert.Equal(t, "1250.50", s.TotalBudget.StringFixed(2))
	assert.Equal(t, 2, s.CompletedTasks)
	assert.Equal(t, 3, s.TotalMembers)

	require.Len(t, s.Upcoming, 2)
	assert.Equal(t, "Today", s.Upcoming[0].Title)
	assert.Equal(t, "Colosseum", s.Upcoming[1].Title)
	assert.Equal(t, "Rome", s.Upcoming[1].BoardTitle)

	require.Len(t, s.Recent, 2)
	assert.Equal(t, int64(2), s.Recent[0].ID)

	empty := boardview.Dashboard(nil, now, 5)
	assert.Zero(t, empty.TotalBoards)
	assert.NotNil(t, empty.Upcoming)
}
