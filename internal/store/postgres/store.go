package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mmalikabdul/qnext-antrian-sub000/internal/models"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements store.QueueStore on postgres. All invariants that span a
// read-then-write sequence (per-day sequence allocation, single serving
// ticket per counter, one-time booking redemption) are enforced inside a
// single transaction here.
type Store struct {
	pool       *pgxpool.Pool
	loc        *time.Location
	sessionTTL time.Duration
}

type Options struct {
	// Location is the deployment-local timezone used for every calendar-day
	// computation ("today", booking dates, operating windows).
	Location   *time.Location
	SessionTTL time.Duration
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	loc := options.Location
	if loc == nil {
		loc = time.Local
	}
	ttl := options.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Store{pool: pool, loc: loc, sessionTTL: ttl}
}

func (s *Store) today(at time.Time) models.Date {
	return models.DateOf(at.In(s.loc))
}

func (s *Store) IssueTicket(ctx context.Context, input store.IssueTicketInput) (models.Ticket, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var ticket models.Ticket
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		ticket, err = s.issueTicketTx(ctx, tx, input.ServiceID, input.BookingID, createdAt)
		return err
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

// issueTicketTx is the shared issuance path used by walk-in creation and
// booking redemption. It must run inside a transaction: the sequence upsert
// serializes concurrent issuance per (service, day), and the stats upsert
// and outbox insert commit together with the ticket row.
func (s *Store) issueTicketTx(ctx context.Context, tx pgx.Tx, serviceID int64, bookingID *int64, createdAt time.Time) (models.Ticket, error) {
	service, err := lookupService(ctx, tx, serviceID)
	if err != nil {
		return models.Ticket{}, err
	}

	queueDate := s.today(createdAt)
	sequence, err := nextTicketSequence(ctx, tx, serviceID, queueDate)
	if err != nil {
		return models.Ticket{}, err
	}
	number := store.FormatTicketNumber(service.Code, sequence)

	ticket := models.Ticket{
		ServiceID: serviceID,
		QueueDate: queueDate,
		Sequence:  sequence,
		Number:    number,
		Status:    models.StatusWaiting,
		BookingID: bookingID,
		CreatedAt: createdAt,
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO tickets (service_id, queue_date, sequence, number, status, booking_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, serviceID, queueDate.String(), sequence, number, models.StatusWaiting, bookingID, createdAt)
	if err := row.Scan(&ticket.ID); err != nil {
		return models.Ticket{}, err
	}

	if err := recordIssuance(ctx, tx, serviceID, queueDate, service.DailyQuota); err != nil {
		return models.Ticket{}, err
	}

	if err := insertTicketEvent(ctx, tx, store.EventNewTicket, ticket); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

// nextTicketSequence allocates the next 1-based sequence for (service, day)
// via an atomic upsert; the row lock it takes serializes concurrent issuance
// for the same key without blocking other services.
func nextTicketSequence(ctx context.Context, tx pgx.Tx, serviceID int64, queueDate models.Date) (int, error) {
	var next int
	row := tx.QueryRow(ctx, `
		INSERT INTO ticket_sequences (service_id, queue_date, next_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (service_id, queue_date)
		DO UPDATE SET next_number = ticket_sequences.next_number + 1
		RETURNING next_number
	`, serviceID, queueDate.String())
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// recordIssuance upserts the per-(service, day) stats row: first write
// creates it with total 1, later writes increment and refresh the quota
// snapshot. Never decremented.
func recordIssuance(ctx context.Context, tx pgx.Tx, serviceID int64, statDate models.Date, quotaSnapshot int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO daily_service_stats (stat_date, service_id, total_tickets, quota_snapshot)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (stat_date, service_id)
		DO UPDATE SET total_tickets = daily_service_stats.total_tickets + 1, quota_snapshot = EXCLUDED.quota_snapshot
	`, statDate.String(), serviceID, quotaSnapshot)
	return err
}

func (s *Store) CallNext(ctx context.Context, input store.CallNextInput) (models.Ticket, error) {
	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}
	queueDate := s.today(calledAt)

	var ticket models.Ticket
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		// Lock the counter row first so two CallNext calls for the same
		// counter serialize on the busy check.
		var counterStatus string
		row := tx.QueryRow(ctx, `
			SELECT status FROM counters WHERE id = $1 FOR UPDATE
		`, input.CounterID)
		if err := row.Scan(&counterStatus); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrCounterNotFound
			}
			return err
		}
		if counterStatus != models.CounterActive {
			return store.ErrCounterUnavailable
		}

		var servingNumber string
		row = tx.QueryRow(ctx, `
			SELECT number FROM tickets
			WHERE counter_id = $1 AND queue_date = $2 AND status = $3
			LIMIT 1
		`, input.CounterID, queueDate.String(), models.StatusServing)
		if err := row.Scan(&servingNumber); err == nil {
			return &store.CounterBusyError{TicketNumber: servingNumber}
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		// FIFO by creation order with id as the stable tie-break; SKIP
		// LOCKED keeps two counters racing for the head from both claiming
		// the same ticket.
		row = tx.QueryRow(ctx, `
			WITH next_ticket AS (
				SELECT id FROM tickets
				WHERE service_id = $1 AND queue_date = $2 AND status = $3
				ORDER BY created_at ASC, id ASC
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			)
			UPDATE tickets
			SET status = $4,
				counter_id = $5,
				called_at = $6
			FROM next_ticket
			WHERE tickets.id = next_ticket.id
			RETURNING tickets.id, tickets.service_id, tickets.queue_date, tickets.sequence, tickets.number,
				tickets.status, tickets.counter_id, tickets.booking_id, tickets.created_at, tickets.called_at, tickets.finished_at
		`, input.ServiceID, queueDate.String(), models.StatusWaiting, models.StatusServing, input.CounterID, calledAt)
		var err error
		ticket, err = scanTicket(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrQueueEmpty
			}
			return err
		}

		return insertTicketEvent(ctx, tx, store.EventCallTicket, ticket)
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) RecallTicket(ctx context.Context, ticketID int64) (models.Ticket, error) {
	var ticket models.Ticket
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		ticket, err = getTicketTx(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if !store.ValidTransition("recall", ticket.Status) {
			return store.ErrInvalidState
		}
		// No mutation: recall only re-announces the serving ticket.
		return insertTicketEvent(ctx, tx, store.EventRecallTicket, ticket)
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) CompleteTicket(ctx context.Context, ticketID int64) (models.Ticket, error) {
	return s.finishTicket(ctx, ticketID, models.StatusDone, store.EventCompleteTicket)
}

func (s *Store) SkipTicket(ctx context.Context, ticketID int64) (models.Ticket, error) {
	return s.finishTicket(ctx, ticketID, models.StatusSkipped, store.EventSkipTicket)
}

// finishTicket drives the two terminal transitions. The guarded UPDATE only
// matches a serving ticket, so done/skipped stay terminal and completing a
// ticket that was never called is rejected rather than silently allowed.
func (s *Store) finishTicket(ctx context.Context, ticketID int64, toStatus, eventType string) (models.Ticket, error) {
	finishedAt := time.Now().UTC()

	var ticket models.Ticket
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE tickets
			SET status = $1,
				finished_at = $2
			WHERE id = $3 AND status = $4
			RETURNING id, service_id, queue_date, sequence, number, status, counter_id, booking_id, created_at, called_at, finished_at
		`, toStatus, finishedAt, ticketID, models.StatusServing)
		var err error
		ticket, err = scanTicket(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				if _, lookupErr := getTicketTx(ctx, tx, ticketID); lookupErr != nil {
					return lookupErr
				}
				return store.ErrInvalidState
			}
			return err
		}
		return insertTicketIDEvent(ctx, tx, eventType, ticket)
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID int64) (models.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, service_id, queue_date, sequence, number, status, counter_id, booking_id, created_at, called_at, finished_at
		FROM tickets
		WHERE id = $1
	`, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) SnapshotTickets(ctx context.Context, serviceID int64, date models.Date) ([]models.Ticket, error) {
	if date.IsZero() {
		date = s.today(time.Now())
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, service_id, queue_date, sequence, number, status, counter_id, booking_id, created_at, called_at, finished_at
		FROM tickets
		WHERE service_id = $1 AND queue_date = $2 AND status IN ($3, $4)
		ORDER BY created_at ASC, id ASC
	`, serviceID, date.String(), models.StatusWaiting, models.StatusServing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) GetActiveTicket(ctx context.Context, counterID int64, date models.Date) (models.Ticket, bool, error) {
	if date.IsZero() {
		date = s.today(time.Now())
	}
	row := s.pool.QueryRow(ctx, `
		SELECT id, service_id, queue_date, sequence, number, status, counter_id, booking_id, created_at, called_at, finished_at
		FROM tickets
		WHERE counter_id = $1 AND queue_date = $2 AND status = $3
		ORDER BY called_at DESC
		LIMIT 1
	`, counterID, date.String(), models.StatusServing)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func lookupService(ctx context.Context, queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, serviceID int64) (models.Service, error) {
	var service models.Service
	row := queryer.QueryRow(ctx, `
		SELECT id, name, code, daily_quota, open_time, close_time
		FROM services
		WHERE id = $1
	`, serviceID)
	if err := row.Scan(&service.ID, &service.Name, &service.Code, &service.DailyQuota, &service.OpenTime, &service.CloseTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, store.ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return service, nil
}

func getTicketTx(ctx context.Context, tx pgx.Tx, ticketID int64) (models.Ticket, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, service_id, queue_date, sequence, number, status, counter_id, booking_id, created_at, called_at, finished_at
		FROM tickets
		WHERE id = $1
	`, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var ticket models.Ticket
	var queueDate time.Time
	var counterID sql.NullInt64
	var bookingID sql.NullInt64
	var calledAt sql.NullTime
	var finishedAt sql.NullTime
	if err := row.Scan(&ticket.ID, &ticket.ServiceID, &queueDate, &ticket.Sequence, &ticket.Number,
		&ticket.Status, &counterID, &bookingID, &ticket.CreatedAt, &calledAt, &finishedAt); err != nil {
		return models.Ticket{}, err
	}
	ticket.QueueDate = models.DateOf(queueDate)
	ticket.CounterID = nullInt64Ptr(counterID)
	ticket.BookingID = nullInt64Ptr(bookingID)
	ticket.CalledAt = nullTimePtr(calledAt)
	ticket.FinishedAt = nullTimePtr(finishedAt)
	return ticket, nil
}

func nullInt64Ptr(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	return &value.Int64
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	return &value.Time
}
