// Package store provides durable storage backends for Sally.
//
// This file implements the PostgreSQL-backed store used when DATABASE_URL
// points at a hosted database.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/whitespainting/sally/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("store.NewPostgresStore invoked", "dsn_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("store.NewPostgresStore: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("store.NewPostgresStore: failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("store.NewPostgresStore: ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("store.NewPostgresStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("store.NewPostgresStore: migrations applied")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetCustomer(id int64) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, phone, name, email, created_at FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetCustomer failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT id, phone, name, email, created_at FROM customers WHERE phone = $1`, phone)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetCustomerByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) CreateCustomer(c *models.Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	err := s.db.QueryRow(
		`INSERT INTO customers (phone, name, email, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Phone, nilIfEmpty(c.Name), nilIfEmpty(c.Email), c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		slog.Error("PostgresStore.CreateCustomer failed", "error", err, "phone", c.Phone)
		return fmt.Errorf("failed to insert customer %s: %w", c.Phone, err)
	}
	slog.Debug("PostgresStore.CreateCustomer succeeded", "id", c.ID, "phone", c.Phone)
	return nil
}

func (s *PostgresStore) GetActiveLead(customerID int64) (*models.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadColumns+` FROM leads
		WHERE customer_id = $1 AND status IN ('new', 'in_progress')
		ORDER BY created_at DESC, id DESC LIMIT 1`, customerID)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetActiveLead failed", "error", err, "customerID", customerID)
		return nil, fmt.Errorf("failed to query active lead: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) GetLead(id int64) (*models.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetLead failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query lead: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) CreateLead(l *models.Lead) error {
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
	err = s.db.QueryRow(
		`INSERT INTO leads (customer_id, status, source, project_type, address, city,
			timeline, occupied, access_notes, intake_stage, intake_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		l.CustomerID, l.Status, nilIfEmpty(l.Source), nilIfEmpty(string(l.ProjectType)),
		nilIfEmpty(l.Address), nilIfEmpty(l.City), nilIfEmpty(l.Timeline), l.Occupied,
		nilIfEmpty(l.AccessNotes), l.IntakeStage, intakeJSON, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		slog.Error("PostgresStore.CreateLead failed", "error", err, "customerID", l.CustomerID)
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	slog.Debug("PostgresStore.CreateLead succeeded", "id", l.ID, "customerID", l.CustomerID)
	return nil
}

func (s *PostgresStore) UpdateLead(l *models.Lead) error {
	intakeJSON, err := marshalIntakeData(l.IntakeData)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE leads SET status = $1, source = $2, project_type = $3, address = $4, city = $5,
			timeline = $6, occupied = $7, access_notes = $8, intake_stage = $9, intake_data = $10
		 WHERE id = $11`,
		l.Status, nilIfEmpty(l.Source), nilIfEmpty(string(l.ProjectType)), nilIfEmpty(l.Address),
		nilIfEmpty(l.City), nilIfEmpty(l.Timeline), l.Occupied, nilIfEmpty(l.AccessNotes),
		l.IntakeStage, intakeJSON, l.ID,
	)
	if err != nil {
		slog.Error("PostgresStore.UpdateLead failed", "error", err, "id", l.ID)
		return fmt.Errorf("failed to update lead %d: %w", l.ID, err)
	}
	slog.Debug("PostgresStore.UpdateLead succeeded", "id", l.ID, "stage", l.IntakeStage)
	return nil
}

func (s *PostgresStore) ListLeads() ([]models.Lead, error) {
	rows, err := s.db.Query(`SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC, id DESC`)
	if err != nil {
		slog.Error("PostgresStore.ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			slog.Error("PostgresStore.ListLeads scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	return leads, nil
}

func (s *PostgresStore) AddMessage(m *models.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	err := s.db.QueryRow(
		`INSERT INTO messages (lead_id, direction, body, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		m.LeadID, m.Direction, m.Body, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		slog.Error("PostgresStore.AddMessage failed", "error", err, "leadID", m.LeadID)
		return fmt.Errorf("failed to insert message for lead %d: %w", m.LeadID, err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(leadID int64) ([]models.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, lead_id, direction, body, created_at FROM messages
		 WHERE lead_id = $1 ORDER BY created_at ASC, id ASC`, leadID)
	if err != nil {
		slog.Error("PostgresStore.ListMessages query failed", "error", err, "leadID", leadID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (s *PostgresStore) LastInboundMessages(leadID int64, limit int) ([]models.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, lead_id, direction, body, created_at FROM messages
		 WHERE lead_id = $1 AND direction = 'in' ORDER BY created_at DESC, id DESC LIMIT $2`,
		leadID, limit)
	if err != nil {
		slog.Error("PostgresStore.LastInboundMessages query failed", "error", err, "leadID", leadID)
		return nil, fmt.Errorf("failed to query inbound messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (s *PostgresStore) CreateProposal(p *models.Proposal) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	err := s.db.QueryRow(
		`INSERT INTO proposals (lead_id, total_price, scope_text, extras_text, payment_text, warranty_text, pdf_path, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.LeadID, p.TotalPrice, p.ScopeText, p.ExtrasText, p.PaymentText, p.WarrantyText,
		nilIfEmpty(p.PDFPath), p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		slog.Error("PostgresStore.CreateProposal failed", "error", err, "leadID", p.LeadID)
		return fmt.Errorf("failed to insert proposal for lead %d: %w", p.LeadID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateProposal(p *models.Proposal) error {
	_, err := s.db.Exec(`UPDATE proposals SET pdf_path = $1 WHERE id = $2`, nilIfEmpty(p.PDFPath), p.ID)
	if err != nil {
		slog.Error("PostgresStore.UpdateProposal failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to update proposal %d: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetProposalByLead(leadID int64) (*models.Proposal, error) {
	row := s.db.QueryRow(
		`SELECT id, lead_id, total_price, scope_text, extras_text, payment_text, warranty_text, pdf_path, created_at
		 FROM proposals WHERE lead_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, leadID)
	p, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetProposalByLead failed", "error", err, "leadID", leadID)
		return nil, fmt.Errorf("failed to query proposal: %w", err)
	}
	return p, nil
}

// Close closes the PostgreSQL connection.
func (s *PostgresStore) Close() error {
	slog.Debug("PostgresStore.Close: closing database connection")
	return s.db.Close()
}
