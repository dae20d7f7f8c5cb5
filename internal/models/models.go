// Package models defines the core data structures for Sally.
//
// It includes the durable Customer/Lead/Message/Proposal records shared by the
// store, the intake flows, and the HTTP handlers.
package models

import (
	"errors"
	"time"
)

// ProjectType classifies what kind of work a lead is asking about.
type ProjectType string

const (
	ProjectTypeInterior ProjectType = "interior"
	ProjectTypeExterior ProjectType = "exterior"
	ProjectTypeCabinets ProjectType = "cabinets"
	ProjectTypeFlooring ProjectType = "flooring"
	ProjectTypeRemodel  ProjectType = "remodel"
	ProjectTypeBoth     ProjectType = "both"
	// ProjectTypeUnknown means classification has not succeeded yet.
	ProjectTypeUnknown ProjectType = ""
)

// LeadStatus tracks the lifecycle of a lead.
type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "new"
	LeadStatusInProgress LeadStatus = "in_progress"
	LeadStatusComplete   LeadStatus = "complete"
)

// IsActive reports whether a lead in this status should absorb new inbound
// contact instead of spawning a fresh lead.
func (s LeadStatus) IsActive() bool {
	return s == LeadStatusNew || s == LeadStatusInProgress
}

// MessageDirection marks a message as inbound or outbound.
type MessageDirection string

const (
	MessageDirectionIn  MessageDirection = "in"
	MessageDirectionOut MessageDirection = "out"
)

// Validation constants for inbound utterances and form fields.
const (
	// MaxNameLength caps the stored caller name.
	MaxNameLength = 80
	// MaxCityLength caps the stored city.
	MaxCityLength = 60
	// MaxSizeLength caps the free-text size/scope answer.
	MaxSizeLength = 80
	// MaxTimelineLength caps the free-text timeline answer.
	MaxTimelineLength = 80
	// MaxAddressLength caps the stored address.
	MaxAddressLength = 140
	// MaxEmailLength caps the stored email.
	MaxEmailLength = 140
)

// Error variables shared across handlers and flows.
var (
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrLeadNotFound = errors.New("lead not found")
)

// Customer is keyed by a canonicalized E.164 phone number (unique).
type Customer struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IntakeData carries the incrementally collected intake fields for a lead.
// It is persisted as a JSON column so partially filled leads survive restarts.
type IntakeData struct {
	AddressRaw     string   `json:"address_raw,omitempty"`
	CityGuess      string   `json:"city_guess,omitempty"`
	Timeline       string   `json:"timeline,omitempty"`
	Occupied       *bool    `json:"occupied,omitempty"`
	Email          string   `json:"email,omitempty"`
	ScopeNotes     []string `json:"scope_notes,omitempty"`
	LogisticsNotes []string `json:"logistics_notes,omitempty"`
	// OfferedSlots holds RFC3339 start times, set once per booking attempt.
	OfferedSlots []string `json:"offered_slots,omitempty"`
}

// Lead is the durable, channel-agnostic record of a project inquiry. For the
// SMS channel the lead doubles as the conversation session: IntakeStage and
// IntakeData are committed after every field mutation.
type Lead struct {
	ID          int64       `json:"id"`
	CustomerID  int64       `json:"customer_id"`
	Status      LeadStatus  `json:"status"`
	Source      string      `json:"source,omitempty"`
	ProjectType ProjectType `json:"project_type,omitempty"`
	Address     string      `json:"address,omitempty"`
	City        string      `json:"city,omitempty"`
	Timeline    string      `json:"timeline,omitempty"`
	Occupied    *bool       `json:"occupied,omitempty"`
	AccessNotes string      `json:"access_notes,omitempty"`
	IntakeStage string      `json:"intake_stage"`
	IntakeData  IntakeData  `json:"intake_data"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Message is an immutable record of one inbound or outbound text, ordered by
// creation time, belonging to one lead.
type Message struct {
	ID        int64            `json:"id"`
	LeadID    int64            `json:"lead_id"`
	Direction MessageDirection `json:"direction"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
}

// Proposal is generated once per lead on demand.
type Proposal struct {
	ID           int64     `json:"id"`
	LeadID       int64     `json:"lead_id"`
	TotalPrice   int       `json:"total_price"`
	ScopeText    string    `json:"scope_text"`
	ExtrasText   string    `json:"extras_text"`
	PaymentText  string    `json:"payment_text"`
	WarrantyText string    `json:"warranty_text"`
	PDFPath      string    `json:"pdf_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
