package audit

import (
	"context"
	"log/slog"
)

// recentLimit caps the number of events shown on the profile page.
const recentLimit = 20

// EventService records and lists security events.
type EventService interface {
	// Record stores an event. Failures are logged, never returned, so a
	// broken event store cannot block a sign-in.
	Record(ctx context.Context, event Event)

	// Recent returns the latest events of a subject, newest first.
	Recent(ctx context.Context, subject string) ([]Event, error)
}

// eventService implements EventService.
type eventService struct {
	repo EventRepository
}

// NewEventService creates a new event service with the given repository.
func NewEventService(repo EventRepository) EventService {
	return &eventService{repo: repo}
}

func (s *eventService) Record(ctx context.Context, event Event) {
	if event.Action == "" {
		slog.Warn("dropping security event without action", slog.String("subject", event.Subject))
		return
	}

	// The request context may be cancelled once the redirect is written.
	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Insert(ctx, &event); err != nil {
		slog.Error("failed to write security event",
			slog.String("subject", event.Subject),
			slog.String("action", event.Action),
			slog.Any("error", err),
		)
	}
}

func (s *eventService) Recent(ctx context.Context, subject string) ([]Event, error) {
	if subject == "" {
		return nil, nil
	}
	return s.repo.ListBySubject(ctx, subject, recentLimit)
}
