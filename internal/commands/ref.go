package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"tripboard/internal/boardview"
	"tripboard/internal/service"
)

// Ref is a board, list or card reference from the command line: either a
// numeric id ("12" or "#12") or a title.
type Ref struct {
	ID   int64
	Name string
}

// IsID reports whether the reference is numeric.
func (r Ref) IsID() bool { return r.ID > 0 }

func (r Ref) String() string {
	if r.IsID() {
		return "#" + strconv.FormatInt(r.ID, 10)
	}
	return r.Name
}

// ParseRef parses a reference. Titles are trimmed; an empty reference is
// rejected.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(s, "#")
	if isAllDigits(digits) {
		id, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || id <= 0 {
			return Ref{}, fmt.Errorf("invalid id: %s", s)
		}
		return Ref{ID: id}, nil
	}
	if s == "" {
		return Ref{}, fmt.Errorf("reference required")
	}
	return Ref{Name: s}, nil
}

// lookupError is a reference that matched zero or several entities.
type lookupError struct {
	msg  string
	kind error
}

func (e *lookupError) Error() string { return e.msg }
func (e *lookupError) Unwrap() error { return e.kind }

func notFound(what string, r Ref) error {
	return &lookupError{msg: fmt.Sprintf("%s not found: %s", what, r), kind: service.ErrNotFound}
}

func ambiguous(what string, r Ref) error {
	return &lookupError{msg: fmt.Sprintf("ambiguous %s name: %s", what, r), kind: service.ErrAmbiguous}
}

// sameTitle compares titles case-insensitively after trimming.
func sameTitle(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// resolveBoard loads a board by id, or finds it by title among the caller's
// boards.
func resolveBoard(ctx context.Context, svc service.Service, arg string) (service.Board, error) {
	ref, err := ParseRef(arg)
	if err != nil {
		return service.Board{}, err
	}
	if ref.IsID() {
		b, err := svc.GetBoard(ctx, ref.ID)
		if err != nil {
			return service.Board{}, err
		}
		return b, nil
	}

	boards, err := svc.ListBoards(ctx)
	if err != nil {
		return service.Board{}, err
	}
	var matches []service.Board
	for _, b := range boards {
		if sameTitle(b.Title, ref.Name) {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 0:
		return service.Board{}, notFound("board", ref)
	case 1:
		return svc.GetBoard(ctx, matches[0].ID)
	default:
		return service.Board{}, ambiguous("board", ref)
	}
}

// resolveList finds a list of b by id or title.
func resolveList(b service.Board, arg string) (service.List, error) {
	ref, err := ParseRef(arg)
	if err != nil {
		return service.List{}, err
	}
	var matches []service.List
	for _, l := range boardview.SortedLists(b) {
		if (ref.IsID() && l.ID == ref.ID) || (!ref.IsID() && sameTitle(l.Title, ref.Name)) {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		return service.List{}, notFound("list", ref)
	case 1:
		return matches[0], nil
	default:
		return service.List{}, ambiguous("list", ref)
	}
}

// resolveCard finds a card of l by id or title.
func resolveCard(l service.List, arg string) (service.Card, error) {
	ref, err := ParseRef(arg)
	if err != nil {
		return service.Card{}, err
	}
	var matches []service.Card
	for _, c := range boardview.SortedCards(l) {
		if (ref.IsID() && c.ID == ref.ID) || (!ref.IsID() && sameTitle(c.Title, ref.Name)) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return service.Card{}, notFound("card", ref)
	case 1:
		return matches[0], nil
	default:
		return service.Card{}, ambiguous("card", ref)
	}
}

// resolveBoardCard finds a card anywhere on b, returning it with its list.
func resolveBoardCard(b service.Board, arg string) (service.List, service.Card, error) {
	ref, err := ParseRef(arg)
	if err != nil {
		return service.List{}, service.Card{}, err
	}
	var (
		list  service.List
		card  service.Card
		found int
	)
	for _, l := range boardview.SortedLists(b) {
		for _, c := range boardview.SortedCards(l) {
			if (ref.IsID() && c.ID == ref.ID) || (!ref.IsID() && sameTitle(c.Title, ref.Name)) {
				list, card = l, c
				found++
			}
		}
	}
	switch found {
	case 0:
		return service.List{}, service.Card{}, notFound("card", ref)
	case 1:
		return list, card, nil
	default:
		return service.List{}, service.Card{}, ambiguous("card", ref)
	}
}

// parseID parses a numeric id argument such as an expense or location id.
func parseID(what, s string) (int64, error) {
	ref, err := ParseRef(s)
	if err != nil || !ref.IsID() {
		return 0, fmt.Errorf("invalid %s id: %s", what, s)
	}
	return ref.ID, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
