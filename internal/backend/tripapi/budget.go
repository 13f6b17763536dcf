package tripapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"tripboard/internal/service"
)

// BudgetSummary returns planned vs actual spend for a board.
func (c *Client) BudgetSummary(ctx context.Context, boardID int64) (service.BudgetSummary, error) {
	var s service.BudgetSummary
	err := c.call(ctx, request{
		op: "BudgetSummary", method: http.MethodGet,
		route: "/boards/{id}/budget/summary/", path: boardPath(boardID) + "budget/summary/", auth: true,
	}, &s)
	return s, err
}

// ListExpenses returns a board's expenses matching f.
func (c *Client) ListExpenses(ctx context.Context, boardID int64, f service.ExpenseFilter) ([]service.Expense, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.DateFrom != "" {
		q.Set("date_from", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("date_to", f.DateTo)
	}
	var out []service.Expense
	err := c.call(ctx, request{
		op: "ListExpenses", method: http.MethodGet,
		route: "/boards/{id}/expenses/", path: boardPath(boardID) + "expenses/", query: q, auth: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []service.Expense{}
	}
	return out, nil
}

// CreateExpense records an expense on a board.
func (c *Client) CreateExpense(ctx context.Context, boardID int64, p service.ExpensePatch) (service.Expense, error) {
	var e service.Expense
	err := c.call(ctx, request{
		op: "CreateExpense", method: http.MethodPost,
		route: "/boards/{id}/expenses/", path: boardPath(boardID) + "expenses/", body: p, auth: true,
	}, &e)
	return e, err
}

// UpdateExpense applies a partial expense update.
func (c *Client) UpdateExpense(ctx context.Context, boardID, expenseID int64, p service.ExpensePatch) (service.Expense, error) {
	var e service.Expense
	err := c.call(ctx, request{
		op: "UpdateExpense", method: http.MethodPatch,
		route: "/expenses/{expense}/", path: fmt.Sprintf("/expenses/%d/", expenseID), body: p, auth: true,
	}, &e)
	return e, err
}

// DeleteExpense deletes an expense.
func (c *Client) DeleteExpense(ctx context.Context, boardID, expenseID int64) error {
	return c.call(ctx, request{
		op: "DeleteExpense", method: http.MethodDelete,
		route: "/expenses/{expense}/", path: fmt.Sprintf("/expenses/%d/", expenseID), auth: true,
	}, nil)
}

// ListLocations returns the map pins for a board's cards.
func (c *Client) ListLocations(ctx context.Context, boardID int64) ([]service.Location, error) {
	var out []service.Location
	err := c.call(ctx, request{
		op: "ListLocations", method: http.MethodGet,
		route: "/maps/", path: "/maps/", query: url.Values{"board": {strconv.FormatInt(boardID, 10)}}, auth: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []service.Location{}
	}
	return out, nil
}

// CreateLocation pins a card on the map.
func (c *Client) CreateLocation(ctx context.Context, boardID int64, l service.NewLocation) (service.Location, error) {
	var out service.Location
	err := c.call(ctx, request{
		op: "CreateLocation", method: http.MethodPost,
		route: "/maps/", path: "/maps/", body: l, auth: true,
	}, &out)
	return out, err
}

// DeleteLocation removes a map pin.
func (c *Client) DeleteLocation(ctx context.Context, boardID, locationID int64) error {
	return c.call(ctx, request{
		op: "DeleteLocation", method: http.MethodDelete,
		route: "/maps/{location}/", path: fmt.Sprintf("/maps/%d/", locationID), auth: true,
	}, nil)
}
