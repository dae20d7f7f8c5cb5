// Package store provides durable storage backends for Sally.
//
// This file implements the SQLite-backed store, the default for single-box
// deployments.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/whitespainting/sally/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("store.NewSQLiteStore invoked", "dsn_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("store.NewSQLiteStore: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("store.NewSQLiteStore: failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("store.NewSQLiteStore: failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("store.NewSQLiteStore: ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("store.NewSQLiteStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("store.NewSQLiteStore: migrations applied")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetCustomer(id int64) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, phone, name, email, created_at FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetCustomer failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, phone, name, email, created_at FROM customers WHERE phone = ?`, phone)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetCustomerByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) CreateCustomer(c *models.Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO customers (phone, name, email, created_at) VALUES (?, ?, ?, ?)`,
		c.Phone, nilIfEmpty(c.Name), nilIfEmpty(c.Email), c.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore.CreateCustomer failed", "error", err, "phone", c.Phone)
		return fmt.Errorf("failed to insert customer %s: %w", c.Phone, err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read customer id: %w", err)
	}
	slog.Debug("SQLiteStore.CreateCustomer succeeded", "id", c.ID, "phone", c.Phone)
	return nil
}

const leadColumns = `id, customer_id, status, source, project_type, address, city,
	timeline, occupied, access_notes, intake_stage, intake_data, created_at`

func (s *SQLiteStore) GetActiveLead(customerID int64) (*models.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadColumns+` FROM leads
		WHERE customer_id = ? AND status IN ('new', 'in_progress')
		ORDER BY created_at DESC, id DESC LIMIT 1`, customerID)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetActiveLead failed", "error", err, "customerID", customerID)
		return nil, fmt.Errorf("failed to query active lead: %w", err)
	}
	return l, nil
}

func (s *SQLiteStore) GetLead(id int64) (*models.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetLead failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query lead: %w", err)
	}
	return l, nil
}

func (s *SQLiteStore) CreateLead(l *models.Lead) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if l.Status == "" {
		l.Status = models.LeadStatusNew
	}
	intakeJSON, err := marshalIntakeData(l.IntakeData)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`INSERT INTO leads (customer_id, status, source, project_type, address, city,
			timeline, occupied, access_notes, intake_stage, intake_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.CustomerID, l.Status, nilIfEmpty(l.Source), nilIfEmpty(string(l.ProjectType)),
		nilIfEmpty(l.Address), nilIfEmpty(l.City), nilIfEmpty(l.Timeline), l.Occupied,
		nilIfEmpty(l.AccessNotes), l.IntakeStage, intakeJSON, l.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore.CreateLead failed", "error", err, "customerID", l.CustomerID)
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read lead id: %w", err)
	}
	slog.Debug("SQLiteStore.CreateLead succeeded", "id", l.ID, "customerID", l.CustomerID)
	return nil
}

func (s *SQLiteStore) UpdateLead(l *models.Lead) error {
	intakeJSON, err := marshalIntakeData(l.IntakeData)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE leads SET status = ?, source = ?, project_type = ?, address = ?, city = ?,
			timeline = ?, occupied = ?, access_notes = ?, intake_stage = ?, intake_data = ?
		 WHERE id = ?`,
		l.Status, nilIfEmpty(l.Source), nilIfEmpty(string(l.ProjectType)), nilIfEmpty(l.Address),
		nilIfEmpty(l.City), nilIfEmpty(l.Timeline), l.Occupied, nilIfEmpty(l.AccessNotes),
		l.IntakeStage, intakeJSON, l.ID,
	)
	if err != nil {
		slog.Error("SQLiteStore.UpdateLead failed", "error", err, "id", l.ID)
		return fmt.Errorf("failed to update lead %d: %w", l.ID, err)
	}
	slog.Debug("SQLiteStore.UpdateLead succeeded", "id", l.ID, "stage", l.IntakeStage)
	return nil
}

func (s *SQLiteStore) ListLeads() ([]models.Lead, error) {
	rows, err := s.db.Query(`SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC, id DESC`)
	if err != nil {
		slog.Error("SQLiteStore.ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			slog.Error("SQLiteStore.ListLeads scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	return leads, nil
}

func (s *SQLiteStore) AddMessage(m *models.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO messages (lead_id, direction, body, created_at) VALUES (?, ?, ?, ?)`,
		m.LeadID, m.Direction, m.Body, m.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore.AddMessage failed", "error", err, "leadID", m.LeadID)
		return fmt.Errorf("failed to insert message for lead %d: %w", m.LeadID, err)
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read message id: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(leadID int64) ([]models.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, lead_id, direction, body, created_at FROM messages
		 WHERE lead_id = ? ORDER BY created_at ASC, id ASC`, leadID)
	if err != nil {
		slog.Error("SQLiteStore.ListMessages query failed", "error", err, "leadID", leadID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (s *SQLiteStore) LastInboundMessages(leadID int64, limit int) ([]models.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, lead_id, direction, body, created_at FROM messages
		 WHERE lead_id = ? AND direction = 'in' ORDER BY created_at DESC, id DESC LIMIT ?`,
		leadID, limit)
	if err != nil {
		slog.Error("SQLiteStore.LastInboundMessages query failed", "error", err, "leadID", leadID)
		return nil, fmt.Errorf("failed to query inbound messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func collectMessages(rows *sql.Rows) ([]models.Message, error) {
	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.LeadID, &m.Direction, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return msgs, nil
}

func (s *SQLiteStore) CreateProposal(p *models.Proposal) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO proposals (lead_id, total_price, scope_text, extras_text, payment_text, warranty_text, pdf_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.LeadID, p.TotalPrice, p.ScopeText, p.ExtrasText, p.PaymentText, p.WarrantyText,
		nilIfEmpty(p.PDFPath), p.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore.CreateProposal failed", "error", err, "leadID", p.LeadID)
		return fmt.Errorf("failed to insert proposal for lead %d: %w", p.LeadID, err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read proposal id: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateProposal(p *models.Proposal) error {
	_, err := s.db.Exec(`UPDATE proposals SET pdf_path = ? WHERE id = ?`, nilIfEmpty(p.PDFPath), p.ID)
	if err != nil {
		slog.Error("SQLiteStore.UpdateProposal failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to update proposal %d: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetProposalByLead(leadID int64) (*models.Proposal, error) {
	row := s.db.QueryRow(
		`SELECT id, lead_id, total_price, scope_text, extras_text, payment_text, warranty_text, pdf_path, created_at
		 FROM proposals WHERE lead_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, leadID)
	p, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetProposalByLead failed", "error", err, "leadID", leadID)
		return nil, fmt.Errorf("failed to query proposal: %w", err)
	}
	return p, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("SQLiteStore.Close: closing database connection")
	return s.db.Close()
}
