package calendar

import (
	"context"
	"sync"
	"time"
)

// CreatedEvent records one CreateEvent call on the mock.
type CreatedEvent struct {
	CalendarID  string
	Start, End  time.Time
	Summary     string
	Location    string
	Description string
}

// MockService is a test double for Service. BusyStarts marks slot start times
// that report busy; Err, when set, is returned by every call.
type MockService struct {
	mu sync.Mutex

	BusyStarts map[time.Time]bool
	Err        error
	FailInsert error

	FreeBusyCalls []time.Time
	Events        []CreatedEvent
}

// NewMockService returns an empty mock that reports every window as free.
func NewMockService() *MockService {
	return &MockService{BusyStarts: make(map[time.Time]bool)}
}

func (m *MockService) IsFree(ctx context.Context, calendarID string, start, end time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FreeBusyCalls = append(m.FreeBusyCalls, start)
	if m.Err != nil {
		return false, m.Err
	}
	return !m.BusyStarts[start], nil
}

func (m *MockService) CreateEvent(ctx context.Context, calendarID string, start, end time.Time, summary, location, description string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if m.FailInsert != nil {
		return "", m.FailInsert
	}
	m.Events = append(m.Events, CreatedEvent{
		CalendarID: calendarID, Start: start, End: end,
		Summary: summary, Location: location, Description: description,
	})
	return "evt-mock-1", nil
}
