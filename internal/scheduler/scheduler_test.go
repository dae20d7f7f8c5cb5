package scheduler

import (
	"testing"
)

func TestAddJobValidatesExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	if err := s.AddJob("sweep", "*/5 * * * *", func() {}); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := s.AddJob("sweep", "not a cron expr", func() {}); err == nil {
		t.Error("invalid expression accepted")
	}
	// 6-field (seconds) expressions are not part of the configured parser.
	if err := s.AddJob("sweep", "0 */5 * * * *", func() {}); err == nil {
		t.Error("6-field expression accepted by 5-field parser")
	}
}
