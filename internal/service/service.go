// Package service defines the backend-agnostic interface for board operations.
package service

import "context"

// Service defines the interface for TripBoard operations.
// All REST calls go through this interface; commands never build requests
// themselves.
type Service interface {
	// ListBoards returns the caller's boards.
	// Returns an empty slice (not an error) when there is no credential or the
	// collection endpoint answers 404.
	ListBoards(ctx context.Context) ([]Board, error)

	// GetBoard returns one board with its lists and cards.
	GetBoard(ctx context.Context, boardID int64) (Board, error)

	// CreateBoard creates a board.
	CreateBoard(ctx context.Context, b NewBoard) (Board, error)

	// UpdateBoard applies a partial update and returns the updated board.
	UpdateBoard(ctx context.Context, boardID int64, p BoardPatch) (Board, error)

	// DeleteBoard deletes a board.
	DeleteBoard(ctx context.Context, boardID int64) error

	// CreateList adds a list to a board.
	CreateList(ctx context.Context, boardID int64, p ListPatch) (List, error)

	// UpdateList applies a partial list update.
	UpdateList(ctx context.Context, boardID, listID int64, p ListPatch) (List, error)

	// DeleteList deletes a list.
	DeleteList(ctx context.Context, boardID, listID int64) error

	// CreateCard adds a card to a list.
	CreateCard(ctx context.Context, boardID, listID int64, p CardPatch) (Card, error)

	// UpdateCard applies a partial card update.
	UpdateCard(ctx context.Context, boardID, listID, cardID int64, p CardPatch) (Card, error)

	// DeleteCard deletes a card.
	DeleteCard(ctx context.Context, boardID, listID, cardID int64) error

	// MoveCard relocates a card. Position renumbering of siblings is left
	// to the server.
	MoveCard(ctx context.Context, boardID, cardID int64, m MoveCard) (Card, error)

	// BudgetSummary returns planned vs actual spend for a board.
	BudgetSummary(ctx context.Context, boardID int64) (BudgetSummary, error)

	// ListExpenses returns a board's expenses matching the filter.
	ListExpenses(ctx context.Context, boardID int64, f ExpenseFilter) ([]Expense, error)

	// CreateExpense records an expense.
	CreateExpense(ctx context.Context, boardID int64, p ExpensePatch) (Expense, error)

	// UpdateExpense applies a partial expense update.
	UpdateExpense(ctx context.Context, boardID, expenseID int64, p ExpensePatch) (Expense, error)

	// DeleteExpense deletes an expense.
	DeleteExpense(ctx context.Context, boardID, expenseID int64) error

	// ListLocations returns map pins for the cards of a board.
	ListLocations(ctx context.Context, boardID int64) ([]Location, error)

	// CreateLocation pins a card on the map.
	CreateLocation(ctx context.Context, boardID int64, l NewLocation) (Location, error)

	// DeleteLocation removes a map pin.
	DeleteLocation(ctx context.Context, boardID, locationID int64) error
}

// Accounts covers the unauthenticated and session endpoints.
type Accounts interface {
	Login(ctx context.Context, c Credentials) (AuthResult, error)
	Register(ctx context.Context, r Registration) (AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (User, error)
}
