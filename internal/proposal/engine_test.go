package proposal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/whitespainting/sally/internal/models"
	"github.com/whitespainting/sally/internal/store"
)

func seedLead(t *testing.T, st store.Store, pt models.ProjectType, scopeNotes []string) *models.Lead {
	t.Helper()
	customer := &models.Customer{Phone: "+17075550134", Name: "Pat Smith", Email: "pat@example.com"}
	if err := st.CreateCustomer(customer); err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	lead := &models.Lead{
		CustomerID:  customer.ID,
		Status:      models.LeadStatusComplete,
		Source:      "sms",
		ProjectType: pt,
		Address:     "742 Evergreen Terrace",
		City:        "Ukiah",
		IntakeData:  models.IntakeData{ScopeNotes: scopeNotes},
	}
	if err := st.CreateLead(lead); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	return lead
}

func TestGenerateBuildsProposalAndPDF(t *testing.T) {
	st := store.NewInMemoryStore()
	lead := seedLead(t, st, models.ProjectTypeExterior, nil)
	for _, body := range []string{"exterior please", "two stories", "some peeling on the south side"} {
		if err := st.AddMessage(&models.Message{LeadID: lead.ID, Direction: models.MessageDirectionIn, Body: body}); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}
	if err := st.AddMessage(&models.Message{LeadID: lead.ID, Direction: models.MessageDirectionOut, Body: "Got it!"}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	dir := t.TempDir()
	engine := NewEngine(st, WithOutDir(dir))

	p, err := engine.Generate(lead.ID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if p.TotalPrice != 5500 {
		t.Errorf("TotalPrice = %d, want the exterior base rate", p.TotalPrice)
	}
	if !strings.Contains(p.ScopeText, "- exterior please") || !strings.Contains(p.ScopeText, "- some peeling on the south side") {
		t.Errorf("inbound messages missing from scope text:\n%s", p.ScopeText)
	}
	if strings.Contains(p.ScopeText, "Got it!") {
		t.Error("outbound message leaked into scope text")
	}
	// Oldest inbound note comes first.
	if strings.Index(p.ScopeText, "- exterior please") > strings.Index(p.ScopeText, "- two stories") {
		t.Error("scope notes not oldest-first")
	}
	if p.WarrantyText != warrantyLine || p.PaymentText != paymentSchedule {
		t.Error("boilerplate sections not set")
	}

	want := filepath.Join(dir, "proposal-1.pdf")
	if p.PDFPath != want {
		t.Errorf("PDFPath = %q, want %q", p.PDFPath, want)
	}
	info, err := os.Stat(p.PDFPath)
	if err != nil {
		t.Fatalf("PDF not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("PDF is empty")
	}

	stored, err := st.GetProposalByLead(lead.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetProposalByLead: %v, %v", stored, err)
	}
	if stored.PDFPath != p.PDFPath {
		t.Errorf("stored PDFPath = %q", stored.PDFPath)
	}
}

func TestGenerateIsOncePerLead(t *testing.T) {
	st := store.NewInMemoryStore()
	lead := seedLead(t, st, models.ProjectTypeInterior, nil)
	engine := NewEngine(st, WithOutDir(t.TempDir()))

	first, err := engine.Generate(lead.ID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := engine.Generate(lead.ID)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("regeneration created a new proposal: %d vs %d", second.ID, first.ID)
	}
}

func TestGenerateUnknownLead(t *testing.T) {
	engine := NewEngine(store.NewInMemoryStore(), WithOutDir(t.TempDir()))
	if _, err := engine.Generate(42); err != models.ErrLeadNotFound {
		t.Errorf("err = %v, want ErrLeadNotFound", err)
	}
}

func TestPriceFor(t *testing.T) {
	tests := []struct {
		name  string
		pt    models.ProjectType
		notes []string
		want  int
	}{
		{"interior", models.ProjectTypeInterior, nil, 3500},
		{"exterior", models.ProjectTypeExterior, nil, 5500},
		{"cabinets", models.ProjectTypeCabinets, nil, 4500},
		{"flooring", models.ProjectTypeFlooring, nil, 6000},
		{"remodel", models.ProjectTypeRemodel, nil, 8000},
		{"unknown type falls back", models.ProjectTypeUnknown, nil, 3500},
		{"heavy prep surcharge", models.ProjectTypeExterior, []string{"Heavy prep on the fascia"}, 6250},
		{"heavy patching surcharge", models.ProjectTypeInterior, []string{"heavy patching in two bedrooms"}, 4250},
		{"heavy alone is not enough", models.ProjectTypeInterior, []string{"heavy furniture to move"}, 3500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := &models.Lead{ProjectType: tt.pt, IntakeData: models.IntakeData{ScopeNotes: tt.notes}}
			if got := priceFor(lead); got != tt.want {
				t.Errorf("priceFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatDollars(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{750, "$750"},
		{3500, "$3,500"},
		{1234567, "$1,234,567"},
	}
	for _, tt := range tests {
		if got := formatDollars(tt.in); got != tt.want {
			t.Errorf("formatDollars(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
