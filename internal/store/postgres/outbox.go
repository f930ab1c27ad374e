package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmalikabdul/qnext-antrian-sub000/internal/models"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func insertTicketEvent(ctx context.Context, tx pgx.Tx, eventType string, ticket models.Ticket) error {
	payload, err := json.Marshal(map[string]interface{}{"ticket": ticket})
	if err != nil {
		return err
	}
	var counterID int64
	if ticket.CounterID != nil {
		counterID = *ticket.CounterID
	}
	return insertOutboxEvent(ctx, tx, eventType, ticket.ServiceID, counterID, payload)
}

func insertTicketIDEvent(ctx context.Context, tx pgx.Tx, eventType string, ticket models.Ticket) error {
	payload, err := json.Marshal(map[string]interface{}{"ticket_id": ticket.ID})
	if err != nil {
		return err
	}
	var counterID int64
	if ticket.CounterID != nil {
		counterID = *ticket.CounterID
	}
	return insertOutboxEvent(ctx, tx, eventType, ticket.ServiceID, counterID, payload)
}

func insertBookingEvent(ctx context.Context, tx pgx.Tx, booking models.Booking) error {
	payload, err := json.Marshal(map[string]interface{}{"booking": booking})
	if err != nil {
		return err
	}
	return insertOutboxEvent(ctx, tx, store.EventNewBooking, booking.ServiceID, 0, payload)
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, eventType string, serviceID, counterID int64, payload []byte) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, type, service_id, counter_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), eventType, serviceID, counterID, payload, time.Now().UTC())
	return err
}

func (s *Store) ListOutboxEvents(ctx context.Context, after store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	lastID := after.LastEventID
	if lastID == "" {
		lastID = "00000000-0000-0000-0000-000000000000"
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, type, service_id, counter_id, payload, created_at
		FROM outbox_events
		WHERE (created_at, event_id) > ($1, $2)
		ORDER BY created_at ASC, event_id ASC
		LIMIT $3
	`, after.LastEventTime, lastID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.Type, &event.ServiceID, &event.CounterID, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetOutboxOffset(ctx context.Context) (store.OutboxOffset, error) {
	var offset store.OutboxOffset
	row := s.pool.QueryRow(ctx, `
		SELECT last_event_time, last_event_id
		FROM outbox_offsets
		WHERE id = 1
	`)
	if err := row.Scan(&offset.LastEventTime, &offset.LastEventID); err != nil {
		if err == pgx.ErrNoRows {
			return store.OutboxOffset{LastEventTime: time.Unix(0, 0).UTC()}, nil
		}
		return store.OutboxOffset{}, err
	}
	return offset, nil
}

func (s *Store) UpdateOutboxOffset(ctx context.Context, offset store.OutboxOffset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO outbox_offsets (id, last_event_time, last_event_id)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET last_event_time = EXCLUDED.last_event_time, last_event_id = EXCLUDED.last_event_id
	`, offset.LastEventTime, offset.LastEventID)
	return err
}
