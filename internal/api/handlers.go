package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/whitespainting/sally/internal/crm"
	"github.com/whitespainting/sally/internal/intake"
	"github.com/whitespainting/sally/internal/models"
	"github.com/whitespainting/sally/internal/util"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Service is running", map[string]bool{
		"crm_configured": s.crm != nil && s.crm.Configured(),
	}))
}

// webLeadHandler accepts the website estimate form: it validates the
// submission, forwards it to the CRM, and then records the customer and lead
// locally. CRM delivery failures surface as 502, never as a validation error.
func (s *Server) webLeadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.webLeadHandler: processing web lead", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.webLeadHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var sub models.WebLeadSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		slog.Warn("Server.webLeadHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	sub.Normalize()

	phone := util.NormalizePhone(sub.Phone)
	if phone == "" {
		slog.Warn("Server.webLeadHandler: invalid phone", "phone", sub.Phone)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid phone number. Please enter a valid US phone."))
		return
	}
	sub.Phone = phone

	if missing := sub.MissingFields(); len(missing) > 0 {
		slog.Warn("Server.webLeadHandler: missing required fields", "missing", missing)
		writeJSONResponse(w, http.StatusBadRequest,
			models.Error("Missing required fields: "+strings.Join(missing, ", ")))
		return
	}

	if err := s.crm.Forward(r.Context(), &sub); err != nil {
		var de *crm.DeliveryError
		if errors.As(err, &de) {
			writeJSONResponse(w, http.StatusBadGateway, models.Error(de.Error()))
			return
		}
		slog.Error("Server.webLeadHandler: forwarder misconfigured", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(err.Error()))
		return
	}

	lead, err := s.recordWebLead(&sub)
	if err != nil {
		slog.Error("Server.webLeadHandler: failed to persist lead", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record lead"))
		return
	}

	slog.Info("Server.webLeadHandler: web lead accepted", "leadID", lead.ID, "phone", sub.Phone)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Lead forwarded", map[string]int64{"lead_id": lead.ID}))
}

// recordWebLead persists the customer and lead for a forwarded submission.
func (s *Server) recordWebLead(sub *models.WebLeadSubmission) (*models.Lead, error) {
	customer, err := s.st.GetCustomerByPhone(sub.Phone)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		customer = &models.Customer{Phone: sub.Phone, Name: sub.FirstName}
		if err := s.st.CreateCustomer(customer); err != nil {
			return nil, err
		}
	}

	lead := &models.Lead{
		CustomerID:  customer.ID,
		Status:      models.LeadStatusNew,
		Source:      sub.Source,
		ProjectType: intake.ClassifyProjectType(sub.ProjectType),
		Address:     sub.Address,
		City:        sub.City,
	}
	if sub.Notes != "" {
		lead.IntakeData.ScopeNotes = []string{sub.Notes}
	}
	if err := s.st.CreateLead(lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (s *Server) adminLeadsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	leads, err := s.st.ListLeads()
	if err != nil {
		slog.Error("Server.adminLeadsHandler: failed to list leads", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list leads"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(leads))
}

func (s *Server) adminMessagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	leadID, err := strconv.ParseInt(r.URL.Query().Get("lead_id"), 10, 64)
	if err != nil || leadID <= 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing or invalid lead_id parameter"))
		return
	}
	msgs, err := s.st.ListMessages(leadID)
	if err != nil {
		slog.Error("Server.adminMessagesHandler: failed to list messages", "error", err, "leadID", leadID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list messages"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(msgs))
}

func (s *Server) adminProposalsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		LeadID int64 `json:"lead_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LeadID <= 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing or invalid lead_id"))
		return
	}
	p, err := s.proposals.Generate(req.LeadID)
	if err != nil {
		if errors.Is(err, models.ErrLeadNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error(fmt.Sprintf("Lead %d not found", req.LeadID)))
			return
		}
		slog.Error("Server.adminProposalsHandler: proposal generation failed", "error", err, "leadID", req.LeadID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate proposal"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(p))
}
