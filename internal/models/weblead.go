package models

import (
	"strings"
)

// WebLeadSubmission is the JSON payload posted by the website estimate form.
// A web submission carries the whole intake in one shot, so it bypasses the
// conversational state machine entirely.
type WebLeadSubmission struct {
	FirstName   string `json:"first_name"`
	Phone       string `json:"phone"`
	ProjectType string `json:"project_type"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Notes       string `json:"notes,omitempty"`
	SMSConsent  bool   `json:"sms_consent"`
	Source      string `json:"source,omitempty"`
}

// Normalize trims whitespace on all free-text fields and stamps the source.
func (w *WebLeadSubmission) Normalize() {
	w.FirstName = strings.TrimSpace(w.FirstName)
	w.Phone = strings.TrimSpace(w.Phone)
	w.ProjectType = strings.TrimSpace(w.ProjectType)
	w.Address = strings.TrimSpace(w.Address)
	w.City = strings.TrimSpace(w.City)
	w.Notes = strings.TrimSpace(w.Notes)
	if w.Source == "" {
		w.Source = "website"
	}
}

// MissingFields returns the names of required fields that are absent. Phone is
// validated separately because it must survive E.164 canonicalization, not
// merely be non-empty.
func (w *WebLeadSubmission) MissingFields() []string {
	var missing []string
	if w.ProjectType == "" {
		missing = append(missing, "project_type")
	}
	if w.Address == "" {
		missing = append(missing, "address")
	}
	if w.City == "" {
		missing = append(missing, "city")
	}
	return missing
}
