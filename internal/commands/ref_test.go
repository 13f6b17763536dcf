package commands

import (
	"errors"
	"testing"

	"tripboard/internal/service"
)

func TestParseRef_Numeric(t *testing.T) {
	for _, in := range []string{"12", "#12", " 12 "} {
		ref, err := ParseRef(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if !ref.IsID() || ref.ID != 12 {
			t.Errorf("%q: expected id 12, got %+v", in, ref)
		}
	}
}

func TestParseRef_Name(t *testing.T) {
	ref, err := ParseRef("  Lisbon 2024 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.IsID() {
		t.Error("expected a name reference")
	}
	if ref.Name != "Lisbon 2024" {
		t.Errorf("expected %q, got %q", "Lisbon 2024", ref.Name)
	}
}

func TestParseRef_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "0", "#0"} {
		if _, err := ParseRef(in); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func board() service.Board {
	return service.Board{
		ID: 1,
		Lists: []service.List{
			{ID: 10, Title: "Planning", Position: 0, Cards: []service.Card{
				{ID: 100, Title: "Flights", Position: 0},
				{ID: 101, Title: "Hotel", Position: 1},
			}},
			{ID: 11, Title: "Booked", Position: 1, Cards: []service.Card{
				{ID: 102, Title: "hotel", Position: 0},
			}},
			{ID: 12, Title: "booked", Position: 2},
		},
	}
}

func TestResolveList(t *testing.T) {
	b := board()

	l, err := resolveList(b, "planning")
	if err != nil || l.ID != 10 {
		t.Errorf("expected list 10, got %d (%v)", l.ID, err)
	}
	l, err = resolveList(b, "#12")
	if err != nil || l.ID != 12 {
		t.Errorf("expected list 12, got %d (%v)", l.ID, err)
	}

	_, err = resolveList(b, "Booked")
	if !errors.Is(err, service.ErrAmbiguous) {
		t.Errorf("expected ambiguous error, got %v", err)
	}
	if err.Error() != "ambiguous list name: Booked" {
		t.Errorf("expected %q, got %q", "ambiguous list name: Booked", err.Error())
	}

	_, err = resolveList(b, "Done")
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
	if err.Error() != "list not found: Done" {
		t.Errorf("expected %q, got %q", "list not found: Done", err.Error())
	}
}

func TestResolveCard(t *testing.T) {
	b := board()

	c, err := resolveCard(b.Lists[0], "HOTEL")
	if err != nil || c.ID != 101 {
		t.Errorf("expected card 101, got %d (%v)", c.ID, err)
	}

	_, _, err = resolveBoardCard(b, "hotel")
	if !errors.Is(err, service.ErrAmbiguous) {
		t.Errorf("expected ambiguous error, got %v", err)
	}

	l, c, err := resolveBoardCard(b, "102")
	if err != nil || l.ID != 11 || c.ID != 102 {
		t.Errorf("expected card 102 in list 11, got %d in %d (%v)", c.ID, l.ID, err)
	}
}
