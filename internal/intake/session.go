// Package intake implements the conversational intake engine: the
// per-session state model, the stage machines for the voice and SMS channels,
// the appointment-slot offer sub-protocol, and the booking committer.
package intake

import (
	"log/slog"
	"sync"
	"time"

	"github.com/whitespainting/sally/internal/models"
)

// Stage identifies the voice flow's position in the intake conversation.
type Stage string

const (
	StageIntent   Stage = "intent"
	StageName     Stage = "name"
	StageCity     Stage = "city"
	StageType     Stage = "type"
	StageSize     Stage = "size"
	StageTimeline Stage = "timeline"
	StageAddress  Stage = "address"
	StageEmail    Stage = "email"
	StageSchedule Stage = "schedule"
)

// Session is the ephemeral per-call conversation state. It is created on the
// first inbound event for an unseen key, mutated in place each turn, and
// destroyed on booking completion or abandonment. Losing one merely forces
// the caller to restart the flow.
type Session struct {
	Key         string
	Stage       Stage
	Intent      string
	Name        string
	City        string
	ProjectType models.ProjectType
	Size        string
	Timeline    string
	Address     string
	Email       string

	// OfferedSlots holds up to two proposed start times, set once per
	// booking attempt and consumed by the next turn.
	OfferedSlots []time.Time

	LastActive time.Time
}

// SessionStore tracks in-progress conversations keyed by the channel-assigned
// session identifier (the Twilio CallSid for voice).
type SessionStore interface {
	// GetOrCreate returns the session for key, creating one at StageIntent
	// if none exists.
	GetOrCreate(key string) *Session
	// Clear removes the session for key, if any.
	Clear(key string)
}

// MemorySessionStore is a process-local SessionStore. The calling channel
// serializes turns of one call, so no per-session locking is done beyond the
// map lock. Abandoned sessions linger until SweepIdle removes them.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemorySessionStore returns an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for key, creating it when unseen.
func (s *MemorySessionStore) GetOrCreate(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = &Session{Key: key, Stage: StageIntent}
		s.sessions[key] = sess
		slog.Debug("MemorySessionStore.GetOrCreate: session created", "key", key)
	}
	sess.LastActive = time.Now()
	return sess
}

// Clear removes the session for key.
func (s *MemorySessionStore) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	slog.Debug("MemorySessionStore.Clear: session removed", "key", key)
}

// Len reports the number of live sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SweepIdle removes sessions idle longer than maxIdle and returns how many
// were dropped. Wired to the cron scheduler so abandoned calls do not
// accumulate for the life of the process.
func (s *MemorySessionStore) SweepIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(s.sessions, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("MemorySessionStore.SweepIdle: removed idle sessions", "removed", removed, "remaining", len(s.sessions))
	}
	return removed
}
