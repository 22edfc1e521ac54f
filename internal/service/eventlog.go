package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"smart_environment/internal/buffer"
	"smart_environment/internal/logger"
	"smart_environment/internal/models"
)

const DefaultJournalCapacity = 200

// EventLogService keeps the most recent dashboard events in memory.
type EventLogService struct {
	events *buffer.Rolling[models.DashboardEvent]
	log    *logger.Logger
	clock  func() time.Time
}

func NewEventLogService(capacity int, log *logger.Logger) *EventLogService {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &EventLogService{
		events: buffer.NewRolling[models.DashboardEvent](capacity),
		log:    logger.OrNop(log),
		clock:  time.Now,
	}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	eventType := normalizeEventType(f.Type)
	return from, to, eventType, nil
}

// Record appends an event, stamping its ID and time.
func (s *EventLogService) Record(_ context.Context, typ, description string, metadata any) {
	e := models.DashboardEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.clock().UTC(),
		Type:        normalizeEventType(typ),
		Description: description,
		Metadata:    metadata,
	}
	s.events.Push(e)
	s.log.Debugw("event_recorded", "type", e.Type, "event_id", e.EventID)
}

// List returns events within [From, To] (inclusive) matching Type, oldest first.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.DashboardEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}

	out := make([]models.DashboardEvent, 0)
	for _, e := range s.events.Snapshot() {
		if !from.IsZero() && e.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && e.OccurredAt.After(to) {
			continue
		}
		if typ != "" && e.Type != typ {
			continue
		}
		out = append(out, e)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}
