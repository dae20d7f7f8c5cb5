package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/whitespainting/sally/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalIntakeData serializes intake data for the JSON column. Empty data is
// stored as NULL.
func marshalIntakeData(d models.IntakeData) (interface{}, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal intake data failed: %w", err)
	}
	if string(b) == "{}" {
		return nil, nil
	}
	return string(b), nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanLead scans one lead row in the canonical column order:
// id, customer_id, status, source, project_type, address, city, timeline,
// occupied, access_notes, intake_stage, intake_data, created_at.
func scanLead(row rowScanner) (*models.Lead, error) {
	var l models.Lead
	var source, projectType, address, city, timeline, accessNotes, intakeData sql.NullString
	var occupied sql.NullBool
	err := row.Scan(
		&l.ID, &l.CustomerID, &l.Status, &source, &projectType, &address, &city,
		&timeline, &occupied, &accessNotes, &l.IntakeStage, &intakeData, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Source = source.String
	l.ProjectType = models.ProjectType(projectType.String)
	l.Address = address.String
	l.City = city.String
	l.Timeline = timeline.String
	l.AccessNotes = accessNotes.String
	if occupied.Valid {
		v := occupied.Bool
		l.Occupied = &v
	}
	if intakeData.Valid && intakeData.String != "" {
		if err := json.Unmarshal([]byte(intakeData.String), &l.IntakeData); err != nil {
			// Keep the lead usable rather than failing the whole read.
			slog.Error("store.scanLead: intake data unmarshal failed", "error", err, "leadID", l.ID)
			l.IntakeData = models.IntakeData{}
		}
	}
	return &l, nil
}

// scanCustomer scans one customer row: id, phone, name, email, created_at.
func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	var name, email sql.NullString
	if err := row.Scan(&c.ID, &c.Phone, &name, &email, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Name = name.String
	c.Email = email.String
	return &c, nil
}

// scanProposal scans one proposal row: id, lead_id, total_price, scope_text,
// extras_text, payment_text, warranty_text, pdf_path, created_at.
func scanProposal(row rowScanner) (*models.Proposal, error) {
	var p models.Proposal
	var pdfPath sql.NullString
	err := row.Scan(
		&p.ID, &p.LeadID, &p.TotalPrice, &p.ScopeText, &p.ExtrasText,
		&p.PaymentText, &p.WarrantyText, &pdfPath, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PDFPath = pdfPath.String
	return &p, nil
}
