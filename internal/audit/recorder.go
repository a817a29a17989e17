// Package audit records authentication and authorization events to one or more sinks.
package audit

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/logger"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/metrics"
)

// Sink persists events.
type Sink interface {
	Name() string
	Write(ctx context.Context, e *Event) error
}

// Log fans events out to its sinks. A failing sink is logged and counted; the caller is never
// failed by audit trouble.
type Log struct {
	sinks  []Sink
	logger *zap.Logger
	clock  clockwork.Clock
}

// NewLog returns a Log writing to sinks.
func NewLog(l *zap.Logger, clock clockwork.Clock, sinks ...Sink) *Log {
	if l == nil {
		l = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Log{sinks: sinks, logger: l, clock: clock}
}

// Record stamps e with an id, time, request id and source IP (when missing) and writes it.
func (l *Log) Record(ctx context.Context, e *Event) {
	if e == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.clock.Now().UTC()
	}
	if e.RequestID == "" {
		e.RequestID = logger.FromContext(ctx)
	}
	if e.SourceIP == "" {
		e.SourceIP = SourceIPFromContext(ctx)
	}
	metrics.AuditEventsTotal.WithLabelValues(string(e.EventType)).Inc()
	for _, s := range l.sinks {
		if err := s.Write(ctx, e); err != nil {
			metrics.AuditSinkErrorsTotal.WithLabelValues(s.Name()).Inc()
			l.logger.Warn("audit sink write failed",
				zap.String("sink", s.Name()),
				zap.String("event_type", string(e.EventType)),
				zap.Error(err),
			)
		}
	}
}

// Close closes every sink that holds resources.
func (l *Log) Close() error {
	var errs []error
	for _, s := range l.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, *Event) {}
