// Package proposal generates written estimate proposals for completed
// intakes: flat-rate pricing by project type, scope text assembled from the
// lead's own messages, and a rendered PDF.
package proposal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/whitespainting/sally/internal/models"
	"github.com/whitespainting/sally/internal/store"
)

const (
	warrantyLine  = "All workmanship is covered by a 6-month warranty from date of completion."
	financingLine = "Financing available to qualified customers."

	paymentSchedule = "$1,000 Deposit to Schedule\n" +
		"10% Due at scheduling (deposit applied)\n" +
		"30% Mid-project progress payment\n" +
		"60% Final payment upon completion / final walkthrough"

	// heavyPrepSurcharge is added when the intake notes describe heavy
	// patching or prep work.
	heavyPrepSurcharge = 750

	// scopeMessageLimit caps how many inbound messages feed the scope text.
	scopeMessageLimit = 10
)

// basePrices is the flat-rate placeholder pricing by project type. Unknown
// types fall back to the interior rate.
var basePrices = map[models.ProjectType]int{
	models.ProjectTypeInterior: 3500,
	models.ProjectTypeExterior: 5500,
	models.ProjectTypeCabinets: 4500,
	models.ProjectTypeFlooring: 6000,
	models.ProjectTypeRemodel:  8000,
}

const defaultBasePrice = 3500

// Opts holds configuration options for the proposal engine.
type Opts struct {
	// OutDir is where rendered PDFs land.
	OutDir string
}

// Option defines a configuration option for the proposal engine.
type Option func(*Opts)

// WithOutDir sets the PDF output directory.
func WithOutDir(dir string) Option {
	return func(o *Opts) { o.OutDir = dir }
}

// Engine builds proposals and renders their PDFs. A lead gets at most one
// proposal; repeat requests return the existing record.
type Engine struct {
	store  store.Store
	outDir string
}

// NewEngine creates a proposal engine. The output directory falls back to
// the PROPOSAL_DIR environment variable, then to ./proposals.
func NewEngine(st store.Store, options ...Option) *Engine {
	opts := &Opts{}
	for _, opt := range options {
		opt(opts)
	}
	if opts.OutDir == "" {
		opts.OutDir = os.Getenv("PROPOSAL_DIR")
	}
	if opts.OutDir == "" {
		opts.OutDir = "proposals"
	}
	return &Engine{store: st, outDir: opts.OutDir}
}

// Generate creates the proposal for a lead, renders its PDF, and persists
// the record. Generating twice for the same lead returns the first proposal
// untouched.
func (e *Engine) Generate(leadID int64) (*models.Proposal, error) {
	lead, err := e.store.GetLead(leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}
	if lead == nil {
		return nil, models.ErrLeadNotFound
	}

	existing, err := e.store.GetProposalByLead(leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing proposal: %w", err)
	}
	if existing != nil {
		slog.Info("Engine.Generate: proposal already exists", "leadID", leadID, "proposalID", existing.ID)
		return existing, nil
	}

	customer, err := e.store.GetCustomer(lead.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	scopeText, err := e.buildScopeText(leadID)
	if err != nil {
		return nil, err
	}

	proposal := &models.Proposal{
		LeadID:       leadID,
		TotalPrice:   priceFor(lead),
		ScopeText:    scopeText,
		ExtrasText:   extrasText(),
		PaymentText:  paymentSchedule,
		WarrantyText: warrantyLine,
	}
	if err := e.store.CreateProposal(proposal); err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create proposal directory: %w", err)
	}
	pdfPath := filepath.Join(e.outDir, fmt.Sprintf("proposal-%d.pdf", proposal.ID))
	if err := renderPDF(pdfPath, customer, lead, proposal); err != nil {
		return nil, fmt.Errorf("failed to render proposal PDF: %w", err)
	}

	proposal.PDFPath = pdfPath
	if err := e.store.UpdateProposal(proposal); err != nil {
		return nil, fmt.Errorf("failed to record proposal PDF path: %w", err)
	}
	slog.Info("Engine.Generate: proposal created", "leadID", leadID, "proposalID", proposal.ID, "totalPrice", proposal.TotalPrice, "pdfPath", pdfPath)
	return proposal, nil
}

// priceFor computes the flat-rate total: base price by project type plus the
// heavy-prep surcharge when the intake notes call for it.
func priceFor(lead *models.Lead) int {
	price, ok := basePrices[lead.ProjectType]
	if !ok {
		price = defaultBasePrice
	}

	notes := strings.ToLower(strings.Join(append(
		append([]string{}, lead.IntakeData.ScopeNotes...),
		lead.IntakeData.LogisticsNotes...), " "))
	if strings.Contains(notes, "heavy") && (strings.Contains(notes, "patch") || strings.Contains(notes, "prep")) {
		price += heavyPrepSurcharge
	}
	return price
}

// buildScopeText assembles the scope section: fixed base-scope bullets plus
// the lead's own last inbound messages, oldest first.
func (e *Engine) buildScopeText(leadID int64) (string, error) {
	msgs, err := e.store.LastInboundMessages(leadID, scopeMessageLimit)
	if err != nil {
		return "", fmt.Errorf("failed to load intake messages: %w", err)
	}

	notes := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		notes = append(notes, "- "+msgs[i].Body)
	}
	noteBlock := "- (none)"
	if len(notes) > 0 {
		noteBlock = strings.Join(notes, "\n")
	}

	return "BASE SCOPE (Included)\n" +
		"- Surface preparation as needed (protect floors/furnishings, sanding, patching, caulking)\n" +
		"- Prime where required\n" +
		"- Two finish coats unless otherwise specified\n" +
		"- Daily cleanup and final walkthrough\n\n" +
		"PROJECT NOTES (from intake)\n" + noteBlock, nil
}

func extrasText() string {
	return "EXTRAS / MATERIALS TBD (Not Included in Base Price)\n" +
		"- Repairs beyond normal patching (rotted wood replacement, structural repairs)\n" +
		"- Owner-selected specialty materials not yet chosen (fixtures, hardware, tile, appliances)\n" +
		"- Unforeseen damage found after work begins (requires change order approval)"
}

// formatDollars renders a whole-dollar amount with thousands separators.
func formatDollars(amount int) string {
	s := fmt.Sprintf("%d", amount)
	if len(s) <= 3 {
		return "$" + s
	}
	var b strings.Builder
	b.WriteByte('$')
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 1 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// renderPDF writes the one-page proposal letter.
func renderPDF(path string, customer *models.Customer, lead *models.Lead, p *models.Proposal) error {
	email := ""
	phone := ""
	if customer != nil {
		email = customer.Email
		phone = customer.Phone
	}
	if email == "" {
		email = lead.IntakeData.Email
	}
	address := lead.Address
	if address == "" {
		address = lead.IntakeData.AddressRaw
	}
	city := lead.City
	if city == "" {
		city = lead.IntakeData.CityGuess
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(true, 72)
	pdf.SetMargins(72, 72, 72)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 18, "White's Painting & Renovations", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 14, fmt.Sprintf("Proposal #%d  -  Date: %s", p.ID, time.Now().Format("2006-01-02")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 14, fmt.Sprintf("Client Phone: %s  Email: %s", phone, email), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 14, fmt.Sprintf("Property: %s %s", address, city), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 16, "Total Investment (Flat Rate)", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 20, formatDollars(p.TotalPrice), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 14, financingLine, "", 1, "L", false, 0, "")
	pdf.Ln(8)

	section := func(title, body string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 15, title, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 13, body, "", "L", false)
		pdf.Ln(8)
	}
	section("Payment Schedule", p.PaymentText)
	section("Scope of Work", p.ScopeText)
	section("Extras / Materials TBD", p.ExtrasText)

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 13, p.WarrantyText, "", "L", false)

	return pdf.OutputFileAndClose(path)
}
