// Package reorder turns a completed drag gesture into at most one card move.
package reorder

import (
	"context"

	log "github.com/sirupsen/logrus"

	"tripboard/internal/boardview"
	"tripboard/internal/notify"
	"tripboard/internal/service"
)

// FailureTitle is the notification shown when a move is rejected.
const FailureTitle = "Failed to move card"

// Slot is a position inside a list, counted in display order.
type Slot struct {
	ListID int64
	Index  int
}

// DragResult describes a finished drag. Destination is nil when the card was
// dropped outside any list.
type DragResult struct {
	CardID      int64
	Source      Slot
	Destination *Slot
}

// BoardCache is the subset of the query cache the controller needs.
type BoardCache interface {
	GetBoard(ctx context.Context, boardID int64) (service.Board, error)
	MoveCard(ctx context.Context, boardID, cardID int64, m service.MoveCard) (service.Card, error)
	PeekBoard(boardID int64) (service.Board, bool)
	SetBoard(ctx context.Context, b service.Board)
}

// Controller applies drag results to a board.
type Controller struct {
	cache      BoardCache
	notifier   notify.Notifier
	optimistic bool
	logger     log.FieldLogger
}

// Option configures a Controller.
type Option func(*Controller)

// WithOptimistic rewrites the cached board before the request is sent and
// restores the pre-drag snapshot if it fails.
func WithOptimistic(on bool) Option {
	return func(c *Controller) { c.optimistic = on }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(c *Controller) { c.logger = l }
}

// New returns a Controller.
func New(cache BoardCache, n notify.Notifier, opts ...Option) *Controller {
	if n == nil {
		n = notify.Discard
	}
	c := &Controller{cache: cache, notifier: n, logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request builds the move request for d, or reports false when the drag is
// a no-op (dropped outside a list or onto its own slot).
func Request(d DragResult) (service.MoveCard, bool) {
	dst := d.Destination
	if dst == nil || *dst == d.Source {
		return service.MoveCard{}, false
	}
	m := service.MoveCard{NewPosition: dst.Index}
	if dst.ListID != d.Source.ListID {
		id := dst.ListID
		m.NewListID = &id
	}
	return m, true
}

// Drop applies d to the board. It returns the board to display next and
// whether a move was performed. On failure the user is notified, the
// previously cached board is left in place and returned with the error.
func (c *Controller) Drop(ctx context.Context, boardID int64, d DragResult) (service.Board, bool, error) {
	before, cached := c.cache.PeekBoard(boardID)

	m, ok := Request(d)
	if !ok {
		return before, false, nil
	}

	if c.optimistic && cached {
		c.cache.SetBoard(ctx, Apply(before, d))
	}

	if _, err := c.cache.MoveCard(ctx, boardID, d.CardID, m); err != nil {
		c.logger.WithFields(log.Fields{
			"board_id": boardID,
			"card_id":  d.CardID,
			"error":    err.Error(),
		}).Warn("reorder.move_failed")
		if c.optimistic && cached {
			c.cache.SetBoard(ctx, before)
		}
		c.notifier.Notify(notify.Notification{Level: notify.Error, Title: FailureTitle, Detail: err.Error()})
		return before, false, err
	}

	after, err := c.cache.GetBoard(ctx, boardID)
	if err != nil {
		return before, true, err
	}
	return after, true, nil
}

// SlotOf locates a card in display order.
func SlotOf(b service.Board, cardID int64) (Slot, bool) {
	for _, l := range boardview.SortedLists(b) {
		for i, card := range boardview.SortedCards(l) {
			if card.ID == cardID {
				return Slot{ListID: l.ID, Index: i}, true
			}
		}
	}
	return Slot{}, false
}

// Apply returns a copy of b with the drag applied locally. Positions in the
// affected lists are renumbered from zero in display order. b is unchanged;
// an unknown card or list yields an unchanged copy.
func Apply(b service.Board, d DragResult) service.Board {
	out := b
	out.Lists = make([]service.List, len(b.Lists))
	for i, l := range b.Lists {
		l.Cards = boardview.SortedCards(l)
		out.Lists[i] = l
	}
	if d.Destination == nil {
		return out
	}

	src, dst := -1, -1
	for i, l := range out.Lists {
		if l.ID == d.Source.ListID {
			src = i
		}
		if l.ID == d.Destination.ListID {
			dst = i
		}
	}
	if src < 0 || dst < 0 {
		return out
	}

	from := -1
	for i, card := range out.Lists[src].Cards {
		if card.ID == d.CardID {
			from = i
		}
	}
	if from < 0 {
		return out
	}

	card := out.Lists[src].Cards[from]
	rest := make([]service.Card, 0, len(out.Lists[src].Cards)-1)
	rest = append(rest, out.Lists[src].Cards[:from]...)
	rest = append(rest, out.Lists[src].Cards[from+1:]...)
	out.Lists[src].Cards = rest

	target := out.Lists[dst].Cards
	at := d.Destination.Index
	if at < 0 {
		at = 0
	}
	if at > len(target) {
		at = len(target)
	}
	card.ListID = out.Lists[dst].ID
	moved := make([]service.Card, 0, len(target)+1)
	moved = append(moved, target[:at]...)
	moved = append(moved, card)
	moved = append(moved, target[at:]...)
	out.Lists[dst].Cards = moved

	renumber(out.Lists[src].Cards)
	renumber(out.Lists[dst].Cards)
	return out
}

func renumber(cards []service.Card) {
	for i := range cards {
		cards[i].Position = i
	}
}
