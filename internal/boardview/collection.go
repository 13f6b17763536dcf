package boardview

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tripboard/internal/service"
)

// SortKey orders a board collection.
type SortKey string

const (
	SortRecent SortKey = "recent" // newest first
	SortTitle  SortKey = "title"  // alphabetical
	SortBudget SortKey = "budget" // highest first
	SortDate   SortKey = "date"   // earliest start first, undated last
)

// ParseSortKey validates a user-supplied sort key. Empty means recent.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortRecent, nil
	case SortRecent, SortTitle, SortBudget, SortDate:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort %q (use recent, title, budget or date)", s)
	}
}

// Query narrows a board collection.
type Query struct {
	// Search matches title, description or any tag, case-insensitively.
	Search string
	// Status keeps only boards with this status; empty or "all" keeps all.
	Status string
}

// Filter returns the boards matching q, preserving input order.
func Filter(boards []service.Board, q Query) []service.Board {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	status := strings.ToLower(strings.TrimSpace(q.Status))
	if status == "all" {
		status = ""
	}
	out := make([]service.Board, 0, len(boards))
	for _, b := range boards {
		if status != "" && b.Status != status {
			continue
		}
		if term != "" && !matches(b, term) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func matches(b service.Board, term string) bool {
	if strings.Contains(strings.ToLower(b.Title), term) ||
		strings.Contains(strings.ToLower(b.Description), term) {
		return true
	}
	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// Sort returns a copy of boards ordered by key. Ties keep input order.
func Sort(boards []service.Board, key SortKey) []service.Board {
	out := make([]service.Board, len(boards))
	copy(out, boards)

	var less func(a, b service.Board) bool
	switch key {
	case SortTitle:
		less = func(a, b service.Board) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	case SortBudget:
		less = func(a, b service.Board) bool {
			return ParseAmount(a.Budget).GreaterThan(ParseAmount(b.Budget))
		}
	case SortDate:
		less = func(a, b service.Board) bool {
			da, okA := ParseDate(a.StartDate)
			db, okB := ParseDate(b.StartDate)
			switch {
			case okA && okB:
				return da.Before(db)
			default:
				return okA && !okB
			}
		}
	default:
		less = func(a, b service.Board) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// ParseDate reads an ISO date or RFC 3339 timestamp.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
