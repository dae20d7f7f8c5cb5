package intake

import (
	"testing"

	"github.com/whitespainting/sally/internal/models"
)

func TestClassifyProjectType(t *testing.T) {
	cases := []struct {
		in   string
		want models.ProjectType
	}{
		{"we want exterior paint on the house", models.ProjectTypeExterior},
		{"Interior, two bedrooms", models.ProjectTypeInterior},
		{"need the living room done", models.ProjectTypeInterior},
		{"peeling siding out back", models.ProjectTypeExterior},
		{"kitchen cabinets", models.ProjectTypeCabinets},
		{"LVP in the den", models.ProjectTypeFlooring},
		{"full bathroom remodel", models.ProjectTypeRemodel},
		{"interior and exterior, both really", models.ProjectTypeBoth},
		{"hello there", models.ProjectTypeUnknown},
		{"", models.ProjectTypeUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyProjectType(tc.in); got != tc.want {
			t.Errorf("ClassifyProjectType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassifyIntent(t *testing.T) {
	if got := ClassifyIntent("I'd like a free estimate please"); got != "estimate" {
		t.Errorf("estimate intent not detected: %q", got)
	}
	if got := ClassifyIntent("where is my invoice"); got != "" {
		t.Errorf("unexpected intent %q for billing question", got)
	}
}

func TestClassifyOccupancy(t *testing.T) {
	if occ := ClassifyOccupancy("the house is vacant right now"); occ == nil || *occ {
		t.Errorf("vacant not classified as unoccupied: %v", occ)
	}
	if occ := ClassifyOccupancy("we live there with two dogs"); occ == nil || !*occ {
		t.Errorf("occupied not classified: %v", occ)
	}
	if occ := ClassifyOccupancy("sometime next month"); occ != nil {
		t.Errorf("expected nil for no occupancy signal, got %v", *occ)
	}
}

func TestExtractEmail(t *testing.T) {
	if got := ExtractEmail("sure, it's Pat.Smith+leads@Example.co"); got != "Pat.Smith+leads@Example.co" {
		t.Errorf("ExtractEmail = %q", got)
	}
	if got := ExtractEmail("I'll send photos tonight"); got != "" {
		t.Errorf("expected no email, got %q", got)
	}
}

func TestLooksLikeAddress(t *testing.T) {
	if !LooksLikeAddress("123 Main St, Ukiah") {
		t.Error("street address not recognized")
	}
	if LooksLikeAddress("Ukiah") {
		t.Error("bare city mistaken for address")
	}
	if LooksLikeAddress("12 a") {
		t.Error("too-short text mistaken for address")
	}
}

func TestPickFirstOrSecond(t *testing.T) {
	cases := []struct {
		in      string
		wantIdx int
		wantOK  bool
	}{
		{"first", 0, true},
		{"the first one", 0, true},
		{"1", 0, true},
		{"one works", 0, true},
		{"second", 1, true},
		{"the second one please", 1, true},
		{"2", 1, true},
		{"two please", 1, true},
		{"neither works", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		idx, ok := PickFirstOrSecond(tc.in)
		if idx != tc.wantIdx || ok != tc.wantOK {
			t.Errorf("PickFirstOrSecond(%q) = (%d, %v), want (%d, %v)", tc.in, idx, ok, tc.wantIdx, tc.wantOK)
		}
	}
}
