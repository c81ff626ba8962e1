package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventRepository defines the data access contract for security events.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type EventRepository interface {
	// Insert stores a new event and sets its ID.
	Insert(ctx context.Context, event *Event) error

	// ListBySubject returns the most recent events of a subject, newest first.
	ListBySubject(ctx context.Context, subject string, limit int) ([]Event, error)
}

// eventRepository implements EventRepository with MariaDB queries.
type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new repository backed by the given DB pool.
func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

// Insert stores an event. The details map is serialized to JSON; nil
// details are stored as SQL NULL.
func (r *eventRepository) Insert(ctx context.Context, event *Event) error {
	var detailsJSON []byte
	if event.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshaling event details: %w", err)
		}
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO security_events (subject, action, client_id, remote_ip, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.Subject, event.Action, event.ClientID, event.RemoteIP, detailsJSON, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting security event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting security event id: %w", err)
	}
	event.ID = id
	return nil
}

func (r *eventRepository) ListBySubject(ctx context.Context, subject string, limit int) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subject, action, client_id, remote_ip, details, created_at
		 FROM security_events WHERE subject = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		subject, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing security events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var detailsJSON []byte
		if err := rows.Scan(&e.ID, &e.Subject, &e.Action, &e.ClientID, &e.RemoteIP, &detailsJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning security event: %w", err)
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling event details: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating security events: %w", err)
	}
	return events, nil
}
