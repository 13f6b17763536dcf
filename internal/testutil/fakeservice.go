// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tripboard/internal/service"
)

// MoveRecord captures one MoveCard call.
type MoveRecord struct {
	BoardID int64
	CardID  int64
	Move    service.MoveCard
}

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu        sync.Mutex
	boards    map[int64]*service.Board
	expenses  map[int64][]service.Expense // boardID -> expenses
	locations map[int64][]service.Location
	nextID    int64
	calls     []string
	moves     []MoveRecord

	// Errs injects an error for the named method, e.g. Errs["MoveCard"].
	Errs map[string]error

	// OnCall runs before every method, outside the lock. Tests use it to
	// block or reorder concurrent calls.
	OnCall func(method string)
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		boards:    make(map[int64]*service.Board),
		expenses:  make(map[int64][]service.Expense),
		locations: make(map[int64][]service.Location),
		nextID:    100,
		Errs:      make(map[string]error),
	}
}

// AddBoard seeds a board. Zero IDs on the board, its lists and cards are
// assigned; list and card back-references are filled in.
func (f *FakeService) AddBoard(b service.Board) service.Board {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == 0 {
		b.ID = f.newID()
	}
	if b.Status == "" {
		b.Status = service.StatusPlanning
	}
	for i := range b.Lists {
		l := &b.Lists[i]
		if l.ID == 0 {
			l.ID = f.newID()
		}
		l.BoardID = b.ID
		for j := range l.Cards {
			if l.Cards[j].ID == 0 {
				l.Cards[j].ID = f.newID()
			}
			l.Cards[j].ListID = l.ID
		}
	}
	stored := cloneBoard(b)
	f.boards[b.ID] = &stored
	return cloneBoard(b)
}

// AddExpense seeds an expense on a board.
func (f *FakeService) AddExpense(boardID int64, e service.Expense) service.Expense {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == 0 {
		e.ID = f.newID()
	}
	e.BoardID = boardID
	f.expenses[boardID] = append(f.expenses[boardID], e)
	return e
}

// Board returns the stored state of a board, bypassing call recording.
func (f *FakeService) Board(id int64) (service.Board, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[id]
	if !ok {
		return service.Board{}, false
	}
	return cloneBoard(*b), true
}

// Calls returns the method names invoked so far, in order.
func (f *FakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times method was invoked.
func (f *FakeService) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

// Moves returns every MoveCard call received.
func (f *FakeService) Moves() []MoveRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]MoveRecord, len(f.moves))
	copy(out, f.moves)
	return out
}

// begin records the call, runs the hook and returns the injected error.
func (f *FakeService) begin(method string) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	hook := f.OnCall
	err := f.Errs[method]
	f.mu.Unlock()
	if hook != nil {
		hook(method)
	}
	return err
}

func (f *FakeService) newID() int64 {
	f.nextID++
	return f.nextID
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%w: %s %d", service.ErrNotFound, kind, id)
}

// ListBoards implements service.Service.
func (f *FakeService) ListBoards(ctx context.Context) ([]service.Board, error) {
	if err := f.begin("ListBoards"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Board, 0, len(f.boards))
	for _, b := range f.boards {
		out = append(out, cloneBoard(*b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetBoard implements service.Service.
func (f *FakeService) GetBoard(ctx context.Context, boardID int64) (service.Board, error) {
	if err := f.begin("GetBoard"); err != nil {
		return service.Board{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[boardID]
	if !ok {
		return service.Board{}, notFound("board", boardID)
	}
	return cloneBoard(*b), nil
}

// CreateBoard implements service.Service.
func (f *FakeService) CreateBoard(ctx context.Context, nb service.NewBoard) (service.Board, error) {
	if err := f.begin("CreateBoard"); err != nil {
		return service.Board{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	b := service.Board{
		ID:          f.newID(),
		Title:       nb.Title,
		Description: nb.Description,
		Status:      nb.Status,
		Budget:      nb.Budget,
		Currency:    nb.Currency,
		StartDate:   nb.StartDate,
		EndDate:     nb.EndDate,
		Tags:        append([]string{}, nb.Tags...),
		Members:     []service.User{},
		Lists:       []service.List{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if b.Status == "" {
		b.Status = service.StatusPlanning
	}
	if b.Budget == "" {
		b.Budget = "0.00"
	}
	f.boards[b.ID] = &b
	return cloneBoard(b), nil
}

// UpdateBoard implements service.Service.
func (f *FakeService) UpdateBoard(ctx context.Context, boardID int64, p service.BoardPatch) (service.Board, error) {
	if err := f.begin("UpdateBoard"); err != nil {
		return service.Board{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[boardID]
	if !ok {
		return service.Board{}, notFound("board", boardID)
	}
	setString(&b.Title, p.Title)
	setString(&b.Description, p.Description)
	setString(&b.Status, p.Status)
	setString(&b.Budget, p.Budget)
	setString(&b.Currency, p.Currency)
	setString(&b.StartDate, p.StartDate)
	setString(&b.EndDate, p.EndDate)
	if p.IsFavorite != nil {
		b.IsFavorite = *p.IsFavorite
	}
	if p.Tags != nil {
		b.Tags = append([]string{}, (*p.Tags)...)
	}
	b.UpdatedAt = time.Now().UTC()
	return cloneBoard(*b), nil
}

// DeleteBoard implements service.Service.
func (f *FakeService) DeleteBoard(ctx context.Context, boardID int64) error {
	if err := f.begin("DeleteBoard"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.boards[boardID]; !ok {
		return notFound("board", boardID)
	}
	delete(f.boards, boardID)
	delete(f.expenses, boardID)
	delete(f.locations, boardID)
	return nil
}

// CreateList implements service.Service.
func (f *FakeService) CreateList(ctx context.Context, boardID int64, p service.ListPatch) (service.List, error) {
	if err := f.begin("CreateList"); err != nil {
		return service.List{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[boardID]
	if !ok {
		return service.List{}, notFound("board", boardID)
	}
	l := service.List{ID: f.newID(), BoardID: boardID, Position: len(b.Lists), Cards: []service.Card{}}
	setString(&l.Title, p.Title)
	setString(&l.Color, p.Color)
	if p.Position != nil {
		l.Position = *p.Position
	}
	b.Lists = append(b.Lists, l)
	return cloneList(l), nil
}

// UpdateList implements service.Service.
func (f *FakeService) UpdateList(ctx context.Context, boardID, listID int64, p service.ListPatch) (service.List, error) {
	if err := f.begin("UpdateList"); err != nil {
		return service.List{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, err := f.list(boardID, listID)
	if err != nil {
		return service.List{}, err
	}
	setString(&l.Title, p.Title)
	setString(&l.Color, p.Color)
	if p.Position != nil {
		l.Position = *p.Position
	}
	return cloneList(*l), nil
}

// DeleteList implements service.Service.
func (f *FakeService) DeleteList(ctx context.Context, boardID, listID int64) error {
	if err := f.begin("DeleteList"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[boardID]
	if !ok {
		return notFound("board", boardID)
	}
	for i := range b.Lists {
		if b.Lists[i].ID == listID {
			b.Lists = append(b.Lists[:i], b.Lists[i+1:]...)
			return nil
		}
	}
	return notFound("list", listID)
}

// CreateCard implements service.Service.
func (f *FakeService) CreateCard(ctx context.Context, boardID, listID int64, p service.CardPatch) (service.Card, error) {
	if err := f.begin("CreateCard"); err != nil {
		return service.Card{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, err := f.list(boardID, listID)
	if err != nil {
		return service.Card{}, err
	}
	c := service.Card{ID: f.newID(), ListID: listID, Position: len(l.Cards), Budget: "0.00", PeopleNumber: 1}
	applyCardPatch(&c, p)
	l.Cards = append(l.Cards, c)
	return cloneCard(c), nil
}

// UpdateCard implements service.Service.
func (f *FakeService) UpdateCard(ctx context.Context, boardID, listID, cardID int64, p service.CardPatch) (service.Card, error) {
	if err := f.begin("UpdateCard"); err != nil {
		return service.Card{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, err := f.list(boardID, listID)
	if err != nil {
		return service.Card{}, err
	}
	for i := range l.Cards {
		if l.Cards[i].ID == cardID {
			applyCardPatch(&l.Cards[i], p)
			return cloneCard(l.Cards[i]), nil
		}
	}
	return service.Card{}, notFound("card", cardID)
}

// DeleteCard implements service.Service.
func (f *FakeService) DeleteCard(ctx context.Context, boardID, listID, cardID int64) error {
	if err := f.begin("DeleteCard"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, err := f.list(boardID, listID)
	if err != nil {
		return err
	}
	for i := range l.Cards {
		if l.Cards[i].ID == cardID {
			l.Cards = append(l.Cards[:i], l.Cards[i+1:]...)
			renumber(l)
			return nil
		}
	}
	return notFound("card", cardID)
}

// MoveCard implements service.Service. The card is inserted at NewPosition
// in display order and both affected lists are renumbered.
func (f *FakeService) MoveCard(ctx context.Context, boardID, cardID int64, m service.MoveCard) (service.Card, error) {
	if err := f.begin("MoveCard"); err != nil {
		return service.Card{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, MoveRecord{BoardID: boardID, CardID: cardID, Move: m})

	var found *service.Board
	for _, b := range f.boards {
		for _, l := range b.Lists {
			for _, c := range l.Cards {
				if c.ID == cardID {
					found = b
				}
			}
		}
	}
	if found == nil {
		return service.Card{}, notFound("card", cardID)
	}

	var card service.Card
	var src *service.List
	for i := range found.Lists {
		l := &found.Lists[i]
		sortCards(l)
		for j := range l.Cards {
			if l.Cards[j].ID == cardID {
				card = l.Cards[j]
				src = l
				l.Cards = append(l.Cards[:j], l.Cards[j+1:]...)
				break
			}
		}
	}
	dst := src
	if m.NewListID != nil {
		dst = nil
		for i := range found.Lists {
			if found.Lists[i].ID == *m.NewListID {
				dst = &found.Lists[i]
			}
		}
		if dst == nil {
			src.Cards = append(src.Cards, card)
			renumber(src)
			return service.Card{}, notFound("list", *m.NewListID)
		}
	}
	pos := m.NewPosition
	if pos < 0 {
		pos = 0
	}
	if pos > len(dst.Cards) {
		pos = len(dst.Cards)
	}
	card.ListID = dst.ID
	dst.Cards = append(dst.Cards[:pos], append([]service.Card{card}, dst.Cards[pos:]...)...)
	renumber(src)
	renumber(dst)
	return cloneCard(dst.Cards[pos]), nil
}

// BudgetSummary implements service.Service.
func (f *FakeService) BudgetSummary(ctx context.Context, boardID int64) (service.BudgetSummary, error) {
	if err := f.begin("BudgetSummary"); err != nil {
		return service.BudgetSummary{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[boardID]
	if !ok {
		return service.BudgetSummary{}, notFound("board", boardID)
	}
	budget, _ := decimal.NewFromString(b.Budget)
	total := decimal.Zero
	byCat := map[string]decimal.Decimal{}
	var cats []string
	for _, e := range f.expenses[boardID] {
		amt, _ := decimal.NewFromString(e.Amount)
		total = total.Add(amt)
		if _, seen := byCat[e.Category]; !seen {
			cats = append(cats, e.Category)
		}
		byCat[e.Category] = byCat[e.Category].Add(amt)
	}
	sort.Strings(cats)
	s := service.BudgetSummary{
		BoardBudget:      budget.StringFixed(2),
		ActualSpendTotal: total.StringFixed(2),
		Remaining:        budget.Sub(total).StringFixed(2),
		ByCategory:       []service.CategoryTotal{},
	}
	for _, c := range cats {
		s.ByCategory = append(s.ByCategory, service.CategoryTotal{Category: c, Total: byCat[c].StringFixed(2)})
	}
	return s, nil
}

// ListExpenses implements service.Service.
func (f *FakeService) ListExpenses(ctx context.Context, boardID int64, flt service.ExpenseFilter) ([]service.Expense, error) {
	if err := f.begin("ListExpenses"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.boards[boardID]; !ok {
		return nil, notFound("board", boardID)
	}
	out := []service.Expense{}
	for _, e := range f.expenses[boardID] {
		if flt.Category != "" && !strings.EqualFold(e.Category, flt.Category) {
			continue
		}
		if flt.DateFrom != "" && e.Date < flt.DateFrom {
			continue
		}
		if flt.DateTo != "" && e.Date > flt.DateTo {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// CreateExpense implements service.Service.
func (f *FakeService) CreateExpense(ctx context.Context, boardID int64, p service.ExpensePatch) (service.Expense, error) {
	if err := f.begin("CreateExpense"); err != nil {
		return service.Expense{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.boards[boardID]; !ok {
		return service.Expense{}, notFound("board", boardID)
	}
	e := service.Expense{ID: f.newID(), BoardID: boardID, Category: "other", Currency: "USD"}
	applyExpensePatch(&e, p)
	f.expenses[boardID] = append(f.expenses[boardID], e)
	return e, nil
}

// UpdateExpense implements service.Service.
func (f *FakeService) UpdateExpense(ctx context.Context, boardID, expenseID int64, p service.ExpensePatch) (service.Expense, error) {
	if err := f.begin("UpdateExpense"); err != nil {
		return service.Expense{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for bid, list := range f.expenses {
		for i := range list {
			if list[i].ID == expenseID {
				applyExpensePatch(&f.expenses[bid][i], p)
				return f.expenses[bid][i], nil
			}
		}
	}
	return service.Expense{}, notFound("expense", expenseID)
}

// DeleteExpense implements service.Service.
func (f *FakeService) DeleteExpense(ctx context.Context, boardID, expenseID int64) error {
	if err := f.begin("DeleteExpense"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for bid, list := range f.expenses {
		for i := range list {
			if list[i].ID == expenseID {
				f.expenses[bid] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return notFound("expense", expenseID)
}

// ListLocations implements service.Service.
func (f *FakeService) ListLocations(ctx context.Context, boardID int64) ([]service.Location, error) {
	if err := f.begin("ListLocations"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Location, len(f.locations[boardID]))
	copy(out, f.locations[boardID])
	return out, nil
}

// CreateLocation implements service.Service.
func (f *FakeService) CreateLocation(ctx context.Context, boardID int64, nl service.NewLocation) (service.Location, error) {
	if err := f.begin("CreateLocation"); err != nil {
		return service.Location{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.boards[boardID]; !ok {
		return service.Location{}, notFound("board", boardID)
	}
	loc := service.Location{
		ID:          f.newID(),
		CardID:      nl.CardID,
		Name:        nl.Name,
		Description: nl.Description,
		Latitude:    nl.Latitude,
		Longitude:   nl.Longitude,
		Address:     nl.Address,
	}
	f.locations[boardID] = append(f.locations[boardID], loc)
	return loc, nil
}

// DeleteLocation implements service.Service.
func (f *FakeService) DeleteLocation(ctx context.Context, boardID, locationID int64) error {
	if err := f.begin("DeleteLocation"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for bid, list := range f.locations {
		for i := range list {
			if list[i].ID == locationID {
				f.locations[bid] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return notFound("location", locationID)
}

// BoardForLocation returns the board a location-less request should use.
// The HTTP fake uses it to route DELETE /maps/{id}/.
func (f *FakeService) BoardForLocation(locationID int64) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for bid, list := range f.locations {
		for _, l := range list {
			if l.ID == locationID {
				return bid, true
			}
		}
	}
	return 0, false
}

// BoardForCard returns the board holding cardID.
func (f *FakeService) BoardForCard(cardID int64) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.boards {
		for _, l := range b.Lists {
			for _, c := range l.Cards {
				if c.ID == cardID {
					return b.ID, true
				}
			}
		}
	}
	return 0, false
}

func (f *FakeService) list(boardID, listID int64) (*service.List, error) {
	b, ok := f.boards[boardID]
	if !ok {
		return nil, notFound("board", boardID)
	}
	for i := range b.Lists {
		if b.Lists[i].ID == listID {
			return &b.Lists[i], nil
		}
	}
	return nil, notFound("list", listID)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func applyCardPatch(c *service.Card, p service.CardPatch) {
	setString(&c.Title, p.Title)
	setString(&c.Description, p.Description)
	setString(&c.Budget, p.Budget)
	setString(&c.DueDate, p.DueDate)
	setString(&c.Category, p.Category)
	if p.PeopleNumber != nil {
		c.PeopleNumber = *p.PeopleNumber
	}
	if p.Tags != nil {
		c.Tags = append([]string{}, (*p.Tags)...)
	}
}

func applyExpensePatch(e *service.Expense, p service.ExpensePatch) {
	setString(&e.Title, p.Title)
	setString(&e.Amount, p.Amount)
	setString(&e.Category, p.Category)
	setString(&e.Date, p.Date)
	setString(&e.Notes, p.Notes)
	setString(&e.Currency, p.Currency)
}

func sortCards(l *service.List) {
	sort.SliceStable(l.Cards, func(i, j int) bool {
		if l.Cards[i].Position != l.Cards[j].Position {
			return l.Cards[i].Position < l.Cards[j].Position
		}
		return l.Cards[i].ID < l.Cards[j].ID
	})
}

func renumber(l *service.List) {
	for i := range l.Cards {
		l.Cards[i].Position = i
	}
}

func cloneBoard(b service.Board) service.Board {
	out := b
	out.Members = append([]service.User(nil), b.Members...)
	out.Tags = append([]string(nil), b.Tags...)
	if b.Lists != nil {
		out.Lists = make([]service.List, len(b.Lists))
		for i, l := range b.Lists {
			out.Lists[i] = cloneList(l)
		}
	}
	return out
}

func cloneList(l service.List) service.List {
	out := l
	if l.Cards != nil {
		out.Cards = make([]service.Card, len(l.Cards))
		for i, c := range l.Cards {
			out.Cards[i] = cloneCard(c)
		}
	}
	return out
}

func cloneCard(c service.Card) service.Card {
	out := c
	out.Tags = append([]string(nil), c.Tags...)
	out.Subtasks = append([]service.Subtask(nil), c.Subtasks...)
	out.AssignedMembers = append([]service.User(nil), c.AssignedMembers...)
	out.Attachments = append([]service.Attachment(nil), c.Attachments...)
	if c.Location != nil {
		loc := *c.Location
		out.Location = &loc
	}
	return out
}

// ErrInjected is a convenience error for failure injection.
var ErrInjected = errors.New("injected failure")
