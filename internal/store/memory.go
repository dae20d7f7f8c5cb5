package store

import (
	"sort"
	"sync"
	"time"

	"github.com/whitespainting/sally/internal/models"
)

// InMemoryStore is a map-backed Store used by tests and throwaway local runs.
type InMemoryStore struct {
	mu sync.Mutex

	customers map[int64]models.Customer
	leads     map[int64]models.Lead
	messages  []models.Message
	proposals map[int64]models.Proposal

	nextCustomerID int64
	nextLeadID     int64
	nextMessageID  int64
	nextProposalID int64
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		customers: make(map[int64]models.Customer),
		leads:     make(map[int64]models.Lead),
		proposals: make(map[int64]models.Proposal),
	}
}

func (s *InMemoryStore) GetCustomer(id int64) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, nil
	}
	out := c
	return &out, nil
}

func (s *InMemoryStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.Phone == phone {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) CreateCustomer(c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCustomerID++
	c.ID = s.nextCustomerID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.customers[c.ID] = *c
	return nil
}

func (s *InMemoryStore) GetActiveLead(customerID int64) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active *models.Lead
	for _, l := range s.leads {
		if l.CustomerID != customerID || !l.Status.IsActive() {
			continue
		}
		if active == nil || l.ID > active.ID {
			out := l
			active = &out
		}
	}
	return active, nil
}

func (s *InMemoryStore) GetLead(id int64) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, nil
	}
	out := l
	return &out, nil
}

func (s *InMemoryStore) CreateLead(l *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLeadID++
	l.ID = s.nextLeadID
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if l.Status == "" {
		l.Status = models.LeadStatusNew
	}
	s.leads[l.ID] = *l
	return nil
}

func (s *InMemoryStore) UpdateLead(l *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[l.ID] = *l
	return nil
}

func (s *InMemoryStore) ListLeads() ([]models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	leads := make([]models.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		leads = append(leads, l)
	}
	sort.Slice(leads, func(i, j int) bool { return leads[i].ID > leads[j].ID })
	return leads, nil
}

func (s *InMemoryStore) AddMessage(m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMessageID++
	m.ID = s.nextMessageID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.messages = append(s.messages, *m)
	return nil
}

func (s *InMemoryStore) ListMessages(leadID int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []models.Message
	for _, m := range s.messages {
		if m.LeadID == leadID {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func (s *InMemoryStore) LastInboundMessages(leadID int64, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []models.Message
	for i := len(s.messages) - 1; i >= 0 && len(msgs) < limit; i-- {
		m := s.messages[i]
		if m.LeadID == leadID && m.Direction == models.MessageDirectionIn {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func (s *InMemoryStore) CreateProposal(p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProposalID++
	p.ID = s.nextProposalID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.proposals[p.ID] = *p
	return nil
}

func (s *InMemoryStore) UpdateProposal(p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = *p
	return nil
}

func (s *InMemoryStore) GetProposalByLead(leadID int64) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Proposal
	for _, p := range s.proposals {
		if p.LeadID != leadID {
			continue
		}
		if latest == nil || p.ID > latest.ID {
			out := p
			latest = &out
		}
	}
	return latest, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
