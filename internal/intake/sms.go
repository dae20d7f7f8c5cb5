package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/whitespainting/sally/internal/models"
	"github.com/whitespainting/sally/internal/store"
	"github.com/whitespainting/sally/internal/util"
)

// Durable stage names for the SMS channel. The lead row is the session: the
// stage and every collected field are committed after each mutation, so a
// redelivered webhook replays against the already-advanced stage instead of
// corrupting it.
const (
	SMSStageStart      = "start"
	SMSStageAddress    = "address_capture"
	SMSStageCore       = "core_details"
	SMSStageScope      = "scope_details"
	SMSStageLogistics  = "logistics"
	SMSStageScheduling = "scheduling"
	SMSStageBooked     = "booked"
)

// SMSFlow is the text-message intake state machine backed by the durable
// lead store.
type SMSFlow struct {
	store     store.Store
	offerer   *SlotOfferer
	committer *Committer
}

// NewSMSFlow builds the SMS intake flow.
func NewSMSFlow(st store.Store, offerer *SlotOfferer, committer *Committer) *SMSFlow {
	return &SMSFlow{store: st, offerer: offerer, committer: committer}
}

// HandleInbound processes one inbound text: it finds or creates the customer
// and their active lead, records the message, advances the intake stage, and
// returns the reply text for the transport to render.
func (f *SMSFlow) HandleInbound(ctx context.Context, from, body string) (string, error) {
	phone := util.NormalizePhone(from)
	if phone == "" {
		phone = strings.TrimSpace(from)
	}
	if phone == "" {
		return "", models.ErrInvalidPhone
	}
	body = strings.TrimSpace(body)
	slog.Debug("SMSFlow.HandleInbound: inbound text", "phone", phone, "length", len(body))

	customer, err := f.store.GetCustomerByPhone(phone)
	if err != nil {
		return "", fmt.Errorf("failed to look up customer: %w", err)
	}
	if customer == nil {
		customer = &models.Customer{Phone: phone}
		if err := f.store.CreateCustomer(customer); err != nil {
			return "", fmt.Errorf("failed to create customer: %w", err)
		}
	}

	lead, err := f.store.GetActiveLead(customer.ID)
	if err != nil {
		return "", fmt.Errorf("failed to look up active lead: %w", err)
	}
	if lead == nil {
		lead = &models.Lead{
			CustomerID:  customer.ID,
			Status:      models.LeadStatusNew,
			Source:      "sms",
			IntakeStage: SMSStageStart,
		}
		if err := f.store.CreateLead(lead); err != nil {
			return "", fmt.Errorf("failed to create lead: %w", err)
		}
		slog.Info("SMSFlow.HandleInbound: new lead opened", "leadID", lead.ID, "phone", phone)
	}

	if err := f.store.AddMessage(&models.Message{LeadID: lead.ID, Direction: models.MessageDirectionIn, Body: body}); err != nil {
		// A transcript gap is preferable to dropping the turn.
		slog.Error("SMSFlow.HandleInbound: failed to record inbound message", "error", err, "leadID", lead.ID)
	}

	reply, err := f.advance(ctx, customer, lead, body)
	if err != nil {
		return "", err
	}

	if err := f.store.AddMessage(&models.Message{LeadID: lead.ID, Direction: models.MessageDirectionOut, Body: reply}); err != nil {
		slog.Error("SMSFlow.HandleInbound: failed to record outbound message", "error", err, "leadID", lead.ID)
	}
	return reply, nil
}

// advance runs one turn of the durable stage machine.
func (f *SMSFlow) advance(ctx context.Context, customer *models.Customer, lead *models.Lead, body string) (string, error) {
	switch lead.IntakeStage {
	case SMSStageStart, "":
		return f.handleStart(lead, body)
	case SMSStageAddress:
		lead.IntakeData.AddressRaw = body
		lead.IntakeStage = SMSStageCore
		if err := f.store.UpdateLead(lead); err != nil {
			return "", err
		}
		return smsAskCoreNext, nil
	case SMSStageCore:
		return f.handleCore(lead, body)
	case SMSStageScope:
		lead.IntakeData.ScopeNotes = append(lead.IntakeData.ScopeNotes, body)
		lead.IntakeStage = SMSStageLogistics
		if err := f.store.UpdateLead(lead); err != nil {
			return "", err
		}
		return smsAskPhotos, nil
	case SMSStageLogistics:
		return f.handleLogistics(ctx, customer, lead, body)
	case SMSStageScheduling:
		return f.handleScheduling(ctx, customer, lead, body)
	default:
		// Booked or unexpected stage: greet again; a fresh inquiry will open
		// a new lead since this one is complete.
		return smsOpening, nil
	}
}

// handleStart detects the project type and opportunistically captures an
// address or city from the opening message. The stage does not advance until
// a project type is known.
func (f *SMSFlow) handleStart(lead *models.Lead, body string) (string, error) {
	if lead.ProjectType == models.ProjectTypeUnknown {
		lead.ProjectType = ClassifyProjectType(body)
	}

	switch {
	case LooksLikeAddress(body):
		lead.IntakeData.AddressRaw = body
	case len(body) >= 3 && lead.IntakeData.CityGuess == "":
		lead.IntakeData.CityGuess = body
	}

	if lead.ProjectType == models.ProjectTypeUnknown {
		lead.IntakeStage = SMSStageStart
		if err := f.store.UpdateLead(lead); err != nil {
			return "", err
		}
		return smsTypeRetry, nil
	}

	if lead.IntakeData.AddressRaw == "" && lead.Address == "" {
		lead.IntakeStage = SMSStageAddress
		lead.Status = models.LeadStatusInProgress
		if err := f.store.UpdateLead(lead); err != nil {
			return "", err
		}
		return smsAskAddress, nil
	}

	lead.IntakeStage = SMSStageCore
	lead.Status = models.LeadStatusInProgress
	if err := f.store.UpdateLead(lead); err != nil {
		return "", err
	}
	return smsAskCore, nil
}

// handleCore captures timeline and occupancy, then hands out the
// project-type-specific scope questions.
func (f *SMSFlow) handleCore(lead *models.Lead, body string) (string, error) {
	if lead.IntakeData.Timeline == "" {
		lead.IntakeData.Timeline = body
		lead.Timeline = truncate(body, models.MaxTimelineLength)
	}
	if lead.IntakeData.Occupied == nil {
		if occ := ClassifyOccupancy(body); occ != nil {
			lead.IntakeData.Occupied = occ
			lead.Occupied = occ
		}
	}
	lead.IntakeStage = SMSStageScope
	if err := f.store.UpdateLead(lead); err != nil {
		return "", err
	}
	return scopeQuestions(lead.ProjectType), nil
}

// handleLogistics captures the proposal email (or files the message as a
// logistics note) and opens the scheduling sub-protocol.
func (f *SMSFlow) handleLogistics(ctx context.Context, customer *models.Customer, lead *models.Lead, body string) (string, error) {
	if email := ExtractEmail(body); email != "" {
		lead.IntakeData.Email = truncate(email, models.MaxEmailLength)
	} else {
		lead.IntakeData.LogisticsNotes = append(lead.IntakeData.LogisticsNotes, body)
	}
	if err := f.store.UpdateLead(lead); err != nil {
		return "", err
	}

	slots := f.offerer.Offer(ctx)
	if len(slots) < OfferCount {
		f.committer.CallbackNeeded(ctx, f.details(customer, lead))
		lead.IntakeStage = SMSStageBooked
		lead.Status = models.LeadStatusComplete
		if err := f.store.UpdateLead(lead); err != nil {
			return "", err
		}
		return smsFullyBooked, nil
	}

	offered := make([]string, len(slots))
	for i, s := range slots {
		offered[i] = s.Format(time.RFC3339)
	}
	lead.IntakeData.OfferedSlots = offered
	lead.IntakeStage = SMSStageScheduling
	if err := f.store.UpdateLead(lead); err != nil {
		return "", err
	}
	return smsOfferPrompt(slots), nil
}

// handleScheduling consumes the offered slots. The same two slots are
// re-presented on unrecognized input; they were fixed when the offer was
// made and are never regenerated within a booking attempt.
func (f *SMSFlow) handleScheduling(ctx context.Context, customer *models.Customer, lead *models.Lead, body string) (string, error) {
	slots, err := parseOfferedSlots(lead.IntakeData.OfferedSlots)
	if err != nil || len(slots) < OfferCount {
		// Offered slots are unreadable; restart the booking attempt.
		slog.Error("SMSFlow.handleScheduling: stored offered slots unusable, re-offering", "error", err, "leadID", lead.ID)
		lead.IntakeData.OfferedSlots = nil
		lead.IntakeStage = SMSStageLogistics
		if err := f.store.UpdateLead(lead); err != nil {
			return "", err
		}
		return smsAskPhotos, nil
	}

	idx, ok := PickFirstOrSecond(body)
	if !ok || idx >= len(slots) {
		return smsChoiceRetry, nil
	}

	chosen := slots[idx]
	f.committer.Book(ctx, f.details(customer, lead), chosen)

	lead.IntakeStage = SMSStageBooked
	lead.Status = models.LeadStatusComplete
	if err := f.store.UpdateLead(lead); err != nil {
		return "", err
	}
	return confirmPrompt(chosen) + " " + smsBookedClosed, nil
}

func parseOfferedSlots(raw []string) ([]time.Time, error) {
	slots := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		t, err := time.Parse(time.RFC3339, r)
		if err != nil {
			return nil, fmt.Errorf("bad offered slot %q: %w", r, err)
		}
		slots = append(slots, t)
	}
	return slots, nil
}

func (f *SMSFlow) details(customer *models.Customer, lead *models.Lead) BookingDetails {
	address := lead.Address
	if address == "" {
		address = lead.IntakeData.AddressRaw
	}
	city := lead.City
	if city == "" {
		city = lead.IntakeData.CityGuess
	}
	return BookingDetails{
		Channel:     "SMS",
		Name:        customer.Name,
		Phone:       customer.Phone,
		City:        city,
		Address:     address,
		ProjectType: lead.ProjectType,
		Timeline:    lead.Timeline,
		Email:       lead.IntakeData.Email,
		Notes:       strings.Join(lead.IntakeData.ScopeNotes, "; "),
	}
}
