// Package store provides durable storage backends for Sally.
//
// It persists Customer/Lead/Message/Proposal records behind a single Store
// interface with SQLite and PostgreSQL implementations. Lookups that find
// nothing return (nil, nil) so callers can distinguish absence from failure.
package store

import (
	"strings"

	"github.com/whitespainting/sally/internal/models"
)

// Store is the durable lead store consumed by the intake flows and handlers.
type Store interface {
	// GetCustomer fetches one customer by id.
	GetCustomer(id int64) (*models.Customer, error)
	// GetCustomerByPhone looks up a customer by canonicalized phone number.
	GetCustomerByPhone(phone string) (*models.Customer, error)
	// CreateCustomer inserts a customer and fills in its ID and CreatedAt.
	CreateCustomer(c *models.Customer) error

	// GetActiveLead returns the newest lead with status new/in_progress for
	// the customer, or nil when every lead is complete.
	GetActiveLead(customerID int64) (*models.Lead, error)
	// GetLead fetches one lead by id.
	GetLead(id int64) (*models.Lead, error)
	// CreateLead inserts a lead and fills in its ID and CreatedAt.
	CreateLead(l *models.Lead) error
	// UpdateLead persists every mutable lead column. The SMS flow calls this
	// after each field mutation so webhook redelivery replays consistently.
	UpdateLead(l *models.Lead) error
	// ListLeads returns all leads, newest first.
	ListLeads() ([]models.Lead, error)

	// AddMessage appends one immutable message to a lead's transcript.
	AddMessage(m *models.Message) error
	// ListMessages returns a lead's transcript in creation order.
	ListMessages(leadID int64) ([]models.Message, error)
	// LastInboundMessages returns up to limit inbound messages, newest first.
	LastInboundMessages(leadID int64, limit int) ([]models.Message, error)

	// CreateProposal inserts a proposal and fills in its ID and CreatedAt.
	CreateProposal(p *models.Proposal) error
	// UpdateProposal persists mutable proposal columns (the PDF path).
	UpdateProposal(p *models.Proposal) error
	// GetProposalByLead returns the proposal for a lead, or nil if none.
	GetProposalByLead(leadID int64) (*models.Proposal, error)

	// Close releases the underlying database handle.
	Close() error
}

// Opts holds configuration options for store constructors.
type Opts struct {
	// DSN is the database connection string: a file path for SQLite, a
	// postgres:// URL for PostgreSQL.
	DSN string
}

// Option defines a configuration option for a store.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". File paths are
// assumed to be SQLite databases.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
