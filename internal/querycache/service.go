package querycache

import (
	"context"

	"tripboard/internal/service"
)

// ListBoards implements service.Service.
func (c *Cache) ListBoards(ctx context.Context) ([]service.Board, error) {
	return read(ctx, c, KeyBoards, c.base.ListBoards)
}

// GetBoard implements service.Service.
func (c *Cache) GetBoard(ctx context.Context, boardID int64) (service.Board, error) {
	return read(ctx, c, BoardKey(boardID), func(ctx context.Context) (service.Board, error) {
		return c.base.GetBoard(ctx, boardID)
	})
}

// CreateBoard implements service.Service.
func (c *Cache) CreateBoard(ctx context.Context, nb service.NewBoard) (service.Board, error) {
	b, err := c.base.CreateBoard(ctx, nb)
	if err != nil {
		return b, err
	}
	c.Invalidate(ctx, KeyBoards)
	return b, nil
}

// UpdateBoard implements service.Service. The returned board replaces the
// cached one directly.
func (c *Cache) UpdateBoard(ctx context.Context, boardID int64, p service.BoardPatch) (service.Board, error) {
	b, err := c.base.UpdateBoard(ctx, boardID, p)
	if err != nil {
		return b, err
	}
	c.SetBoard(ctx, b)
	c.Invalidate(ctx, KeyBoards)
	return b, nil
}

// DeleteBoard implements service.Service.
func (c *Cache) DeleteBoard(ctx context.Context, boardID int64) error {
	if err := c.base.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	c.Invalidate(ctx, KeyBoards, BoardKey(boardID), BudgetKey(boardID), LocationsKey(boardID))
	c.invalidatePrefix(ctx, expensesPrefix(boardID))
	return nil
}

// CreateList implements service.Service.
func (c *Cache) CreateList(ctx context.Context, boardID int64, p service.ListPatch) (service.List, error) {
	l, err := c.base.CreateList(ctx, boardID, p)
	if err != nil {
		return l, err
	}
	c.Invalidate(ctx, BoardKey(boardID))
	return l, nil
}

// UpdateList implements service.Service.
func (c *Cache) UpdateList(ctx context.Context, boardID, listID int64, p service.ListPatch) (service.List, error) {
	l, err := c.base.UpdateList(ctx, boardID, listID, p)
	if err != nil {
		return l, err
	}
	c.Invalidate(ctx, BoardKey(boardID))
	return l, nil
}

// DeleteList implements service.Service.
func (c *Cache) DeleteList(ctx context.Context, boardID, listID int64) error {
	if err := c.base.DeleteList(ctx, boardID, listID); err != nil {
		return err
	}
	c.Invalidate(ctx, BoardKey(boardID))
	return nil
}

// CreateCard implements service.Service.
func (c *Cache) CreateCard(ctx context.Context, boardID, listID int64, p service.CardPatch) (service.Card, error) {
	card, err := c.base.CreateCard(ctx, boardID, listID, p)
	if err != nil {
		return card, err
	}
	c.Invalidate(ctx, BoardKey(boardID))
	return card, nil
}

// UpdateCard implements service.Service.
func (c *Cache) UpdateCard(ctx context.Context, boardID, listID, cardID int64, p service.CardPatch) (service.Card, error) {
	card, err := c.base.UpdateCard(ctx, boardID, listID, cardID, p)
	if err != nil {
		return card, err
	}
	c.Invalidate(ctx, BoardKey(boardID))
	return card, nil
}

// DeleteCard implements service.Service.
func (c *Cache) DeleteCard(ctx context.Context, boardID, listID, cardID int64) error {
	if err := c.base.DeleteCard(ctx, boardID, listID, cardID); err != nil {
		return err
	}
	c.Invalidate(ctx, BoardKey(boardID))
	return nil
}

// MoveCard implements service.Service.
func (c *Cache) MoveCard(ctx context.Context, boardID, cardID int64, m service.MoveCard) (service.Card, error) {
	card, err := c.base.MoveCard(ctx, boardID, cardID, m)
	if err != nil {
		return card, err
	}
	c.Invalidate(ctx, BoardKey(boardID))
	return card, nil
}

// BudgetSummary implements service.Service.
func (c *Cache) BudgetSummary(ctx context.Context, boardID int64) (service.BudgetSummary, error) {
	return read(ctx, c, BudgetKey(boardID), func(ctx context.Context) (service.BudgetSummary, error) {
		return c.base.BudgetSummary(ctx, boardID)
	})
}

// ListExpenses implements service.Service.
func (c *Cache) ListExpenses(ctx context.Context, boardID int64, f service.ExpenseFilter) ([]service.Expense, error) {
	return read(ctx, c, ExpensesKey(boardID, f), func(ctx context.Context) ([]service.Expense, error) {
		return c.base.ListExpenses(ctx, boardID, f)
	})
}

// CreateExpense implements service.Service.
func (c *Cache) CreateExpense(ctx context.Context, boardID int64, p service.ExpensePatch) (service.Expense, error) {
	e, err := c.base.CreateExpense(ctx, boardID, p)
	if err != nil {
		return e, err
	}
	c.expensesChanged(ctx, boardID)
	return e, nil
}

// UpdateExpense implements service.Service.
func (c *Cache) UpdateExpense(ctx context.Context, boardID, expenseID int64, p service.ExpensePatch) (service.Expense, error) {
	e, err := c.base.UpdateExpense(ctx, boardID, expenseID, p)
	if err != nil {
		return e, err
	}
	c.expensesChanged(ctx, boardID)
	return e, nil
}

// DeleteExpense implements service.Service.
func (c *Cache) DeleteExpense(ctx context.Context, boardID, expenseID int64) error {
	if err := c.base.DeleteExpense(ctx, boardID, expenseID); err != nil {
		return err
	}
	c.expensesChanged(ctx, boardID)
	return nil
}

func (c *Cache) expensesChanged(ctx context.Context, boardID int64) {
	c.invalidatePrefix(ctx, expensesPrefix(boardID))
	c.Invalidate(ctx, BudgetKey(boardID))
}

// ListLocations implements service.Service.
func (c *Cache) ListLocations(ctx context.Context, boardID int64) ([]service.Location, error) {
	return read(ctx, c, LocationsKey(boardID), func(ctx context.Context) ([]service.Location, error) {
		return c.base.ListLocations(ctx, boardID)
	})
}

// CreateLocation implements service.Service.
func (c *Cache) CreateLocation(ctx context.Context, boardID int64, l service.NewLocation) (service.Location, error) {
	loc, err := c.base.CreateLocation(ctx, boardID, l)
	if err != nil {
		return loc, err
	}
	c.Invalidate(ctx, LocationsKey(boardID))
	return loc, nil
}

// DeleteLocation implements service.Service.
func (c *Cache) DeleteLocation(ctx context.Context, boardID, locationID int64) error {
	if err := c.base.DeleteLocation(ctx, boardID, locationID); err != nil {
		return err
	}
	c.Invalidate(ctx, LocationsKey(boardID))
	return nil
}
