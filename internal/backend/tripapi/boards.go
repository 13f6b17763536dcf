package tripapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"

	"tripboard/internal/service"
)

// boardPage is the paginated envelope some deployments wrap collections in.
type boardPage struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []service.Board `json:"results"`
}

// ListBoards returns the caller's boards. Without a credential no request is
// made and the result is empty; a 404 from the collection is also empty.
func (c *Client) ListBoards(ctx context.Context) ([]service.Board, error) {
	if !c.sess.Authenticated() {
		c.logger.Debug("tripapi.list_boards: no access token, returning empty collection")
		return []service.Board{}, nil
	}

	data, err := c.do(ctx, request{
		op: "ListBoards", method: http.MethodGet,
		route: "/boards/", path: "/boards/", auth: true,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return []service.Board{}, nil
		}
		return nil, err
	}
	return decodeBoards(data)
}

// decodeBoards accepts either a bare array or a paginated envelope.
func decodeBoards(data []byte) ([]service.Board, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []service.Board{}, nil
	}
	if trimmed[0] == '[' {
		var boards []service.Board
		if err := sonic.ConfigStd.Unmarshal(trimmed, &boards); err != nil {
			return nil, &service.ServerError{Status: http.StatusOK, Message: fmt.Sprintf("invalid boards response: %v", err)}
		}
		if boards == nil {
			boards = []service.Board{}
		}
		return boards, nil
	}
	var page boardPage
	if err := sonic.ConfigStd.Unmarshal(trimmed, &page); err != nil {
		return nil, &service.ServerError{Status: http.StatusOK, Message: fmt.Sprintf("invalid boards response: %v", err)}
	}
	if page.Results == nil {
		return []service.Board{}, nil
	}
	return page.Results, nil
}

// GetBoard returns one board with its lists and cards.
func (c *Client) GetBoard(ctx context.Context, boardID int64) (service.Board, error) {
	var b service.Board
	err := c.call(ctx, request{
		op: "GetBoard", method: http.MethodGet,
		route: "/boards/{id}/", path: boardPath(boardID), auth: true,
	}, &b)
	return b, err
}

// CreateBoard creates a board.
func (c *Client) CreateBoard(ctx context.Context, nb service.NewBoard) (service.Board, error) {
	var b service.Board
	err := c.call(ctx, request{
		op: "CreateBoard", method: http.MethodPost,
		route: "/boards/", path: "/boards/", body: nb, auth: true,
	}, &b)
	return b, err
}

// UpdateBoard applies a partial update.
func (c *Client) UpdateBoard(ctx context.Context, boardID int64, p service.BoardPatch) (service.Board, error) {
	var b service.Board
	err := c.call(ctx, request{
		op: "UpdateBoard", method: http.MethodPatch,
		route: "/boards/{id}/", path: boardPath(boardID), body: p, auth: true,
	}, &b)
	return b, err
}

// DeleteBoard deletes a board.
func (c *Client) DeleteBoard(ctx context.Context, boardID int64) error {
	return c.call(ctx, request{
		op: "DeleteBoard", method: http.MethodDelete,
		route: "/boards/{id}/", path: boardPath(boardID), auth: true,
	}, nil)
}

// CreateList adds a list to a board.
func (c *Client) CreateList(ctx context.Context, boardID int64, p service.ListPatch) (service.List, error) {
	var l service.List
	err := c.call(ctx, request{
		op: "CreateList", method: http.MethodPost,
		route: "/boards/{id}/lists/", path: boardPath(boardID) + "lists/", body: p, auth: true,
	}, &l)
	return l, err
}

// UpdateList applies a partial list update.
func (c *Client) UpdateList(ctx context.Context, boardID, listID int64, p service.ListPatch) (service.List, error) {
	var l service.List
	err := c.call(ctx, request{
		op: "UpdateList", method: http.MethodPatch,
		route: "/boards/{id}/lists/{list}/", path: listPath(boardID, listID), body: p, auth: true,
	}, &l)
	return l, err
}

// DeleteList deletes a list.
func (c *Client) DeleteList(ctx context.Context, boardID, listID int64) error {
	return c.call(ctx, request{
		op: "DeleteList", method: http.MethodDelete,
		route: "/boards/{id}/lists/{list}/", path: listPath(boardID, listID), auth: true,
	}, nil)
}

// CreateCard adds a card to a list.
func (c *Client) CreateCard(ctx context.Context, boardID, listID int64, p service.CardPatch) (service.Card, error) {
	var card service.Card
	err := c.call(ctx, request{
		op: "CreateCard", method: http.MethodPost,
		route: "/boards/{id}/lists/{list}/cards/", path: listPath(boardID, listID) + "cards/", body: p, auth: true,
	}, &card)
	return card, err
}

// UpdateCard applies a partial card update.
func (c *Client) UpdateCard(ctx context.Context, boardID, listID, cardID int64, p service.CardPatch) (service.Card, error) {
	var card service.Card
	err := c.call(ctx, request{
		op: "UpdateCard", method: http.MethodPatch,
		route: "/boards/{id}/lists/{list}/cards/{card}/", path: cardPath(boardID, listID, cardID), body: p, auth: true,
	}, &card)
	return card, err
}

// DeleteCard deletes a card.
func (c *Client) DeleteCard(ctx context.Context, boardID, listID, cardID int64) error {
	return c.call(ctx, request{
		op: "DeleteCard", method: http.MethodDelete,
		route: "/boards/{id}/lists/{list}/cards/{card}/", path: cardPath(boardID, listID, cardID), auth: true,
	}, nil)
}

// MoveCard relocates a card. boardID is not part of the request; it is kept
// in the signature for cache invalidation by decorators.
func (c *Client) MoveCard(ctx context.Context, boardID, cardID int64, m service.MoveCard) (service.Card, error) {
	var card service.Card
	err := c.call(ctx, request{
		op: "MoveCard", method: http.MethodPatch,
		route: "/cards/{card}/move/", path: fmt.Sprintf("/cards/%d/move/", cardID), body: m, auth: true,
	}, &card)
	return card, err
}

func boardPath(boardID int64) string {
	return fmt.Sprintf("/boards/%d/", boardID)
}

func listPath(boardID, listID int64) string {
	return fmt.Sprintf("/boards/%d/lists/%d/", boardID, listID)
}

func cardPath(boardID, listID, cardID int64) string {
	return fmt.Sprintf("/boards/%d/lists/%d/cards/%d/", boardID, listID, cardID)
}
