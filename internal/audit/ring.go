package audit

import (
	"context"
	"sync"
)

// RingSink keeps the most recent events in memory. It backs the audit listing when no
// database is configured.
type RingSink struct {
	mu   sync.Mutex
	buf  []Event
	next int
	full bool
}

// NewRingSink returns a sink holding up to capacity events.
func NewRingSink(capacity int) *RingSink {
	if capacity <= 0 {
		capacity = MaxListLimit
	}
	return &RingSink{buf: make([]Event, capacity)}
}

func (s *RingSink) Name() string { return "memory" }

func (s *RingSink) Write(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = *e
	s.next = (s.next + 1) % len(s.buf)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Len returns the number of stored events.
func (s *RingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return len(s.buf)
	}
	return s.next
}

// List returns matching events, newest first.
func (s *RingSink) List(_ context.Context, q Query) ([]Event, error) {
	limit := q.EffectiveLimit()
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next
	if s.full {
		n = len(s.buf)
	}
	out := make([]Event, 0, min(limit, n))
	for i := 0; i < n && len(out) < limit; i++ {
		idx := (s.next - 1 - i + len(s.buf)) % len(s.buf)
		e := s.buf[idx]
		if q.Matches(&e) {
			out = append(out, e)
		}
	}
	return out, nil
}
