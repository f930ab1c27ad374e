package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mmalikabdul/qnext-antrian-sub000/internal/models"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/store"

	"github.com/jackc/pgx/v5"
)

const bookingCodeAttempts = 5

func (s *Store) CheckAvailability(ctx context.Context, serviceID int64, date models.Date) (store.Availability, error) {
	service, err := lookupService(ctx, s.pool, serviceID)
	if err != nil {
		return store.Availability{}, err
	}
	used, err := countOnlineBookings(ctx, s.pool, serviceID, date)
	if err != nil {
		return store.Availability{}, err
	}
	return store.ComputeAvailability(service.DailyQuota, used), nil
}

// countOnlineBookings counts committed online bookings for (service, date).
// Cancelled bookings release their slot; offline check-ins never held one.
func countOnlineBookings(ctx context.Context, queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, serviceID int64, date models.Date) (int, error) {
	var used int
	row := queryer.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE service_id = $1 AND booking_date = $2 AND channel = $3 AND status <> $4
	`, serviceID, date.String(), models.ChannelOnline, models.BookingCancelled)
	if err := row.Scan(&used); err != nil {
		return 0, err
	}
	return used, nil
}

func (s *Store) CreateBooking(ctx context.Context, input store.CreateBookingInput) (models.Booking, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var booking models.Booking
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		// Lock the service row: the quota check and the insert must not
		// interleave with a concurrent booking for the same service.
		service, err := lockService(ctx, tx, input.ServiceID)
		if err != nil {
			return err
		}

		bookingDate := input.Date
		if input.Channel == models.ChannelOffline {
			// Offline check-ins are always dated today, whatever the
			// caller sent, and bypass the quota gate.
			bookingDate = s.today(createdAt)
		}

		holiday, err := isHoliday(ctx, tx, bookingDate)
		if err != nil {
			return err
		}
		if holiday {
			return store.ErrHolidayClosed
		}

		if input.Channel == models.ChannelOnline {
			used, err := countOnlineBookings(ctx, tx, input.ServiceID, bookingDate)
			if err != nil {
				return err
			}
			if availability := store.ComputeAvailability(service.DailyQuota, used); !availability.Available {
				return store.ErrQuotaExceeded
			}
		}

		booking = models.Booking{
			ServiceID:    input.ServiceID,
			BookingDate:  bookingDate,
			Channel:      input.Channel,
			Status:       models.BookingPending,
			VisitorName:  input.VisitorName,
			VisitorPhone: input.VisitorPhone,
			CreatedAt:    createdAt,
		}
		for attempt := 0; ; attempt++ {
			booking.Code = store.GenerateBookingCode(service.Code, createdAt.In(s.loc))
			row := tx.QueryRow(ctx, `
				INSERT INTO bookings (code, service_id, booking_date, channel, status, visitor_name, visitor_phone, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (code) DO NOTHING
				RETURNING id
			`, booking.Code, booking.ServiceID, bookingDate.String(), booking.Channel, booking.Status,
				booking.VisitorName, booking.VisitorPhone, createdAt)
			err := row.Scan(&booking.ID)
			if err == nil {
				break
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			if attempt+1 >= bookingCodeAttempts {
				return errors.New("booking code generation exhausted")
			}
		}

		return insertBookingEvent(ctx, tx, booking)
	})
	if err != nil {
		return models.Booking{}, err
	}
	return booking, nil
}

// RedeemBooking flips a pending booking to used and issues its ticket in one
// transaction. A crash cannot leave a used booking without a ticket or a
// pending booking that already produced one.
func (s *Store) RedeemBooking(ctx context.Context, code string, serviceID int64) (models.Ticket, error) {
	now := time.Now().UTC()

	var ticket models.Ticket
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		booking, err := lockBookingByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if booking.ServiceID != serviceID {
			return store.ErrServiceMismatch
		}
		switch booking.Status {
		case models.BookingUsed:
			return store.ErrBookingUsed
		case models.BookingCancelled:
			return store.ErrBookingCancelled
		case models.BookingExpired:
			return store.ErrBookingExpired
		}
		if booking.BookingDate != s.today(now) {
			return store.ErrWrongDate
		}

		ticket, err = s.issueTicketTx(ctx, tx, serviceID, &booking.ID, now)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE bookings
			SET status = $1,
				ticket_id = $2,
				checked_in_at = $3
			WHERE id = $4
		`, models.BookingUsed, ticket.ID, now, booking.ID)
		return err
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) GetBookingByCode(ctx context.Context, code string) (models.Booking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, code, service_id, booking_date, channel, status, ticket_id, visitor_name, visitor_phone, created_at, checked_in_at
		FROM bookings
		WHERE code = $1
	`, code)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, store.ErrBookingNotFound
		}
		return models.Booking{}, err
	}
	return booking, nil
}

// ExpireBookings marks pending bookings dated before the cutoff as expired.
// Run from the background sweeper; the engine itself only honors the status.
func (s *Store) ExpireBookings(ctx context.Context, before models.Date, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE bookings
		SET status = $1
		WHERE id IN (
			SELECT id FROM bookings
			WHERE status = $2 AND booking_date < $3
			ORDER BY booking_date ASC
			LIMIT $4
		)
	`, models.BookingExpired, models.BookingPending, before.String(), batchSize)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func lockService(ctx context.Context, tx pgx.Tx, serviceID int64) (models.Service, error) {
	var service models.Service
	row := tx.QueryRow(ctx, `
		SELECT id, name, code, daily_quota, open_time, close_time
		FROM services
		WHERE id = $1
		FOR UPDATE
	`, serviceID)
	if err := row.Scan(&service.ID, &service.Name, &service.Code, &service.DailyQuota, &service.OpenTime, &service.CloseTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, store.ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return service, nil
}

func lockBookingByCode(ctx context.Context, tx pgx.Tx, code string) (models.Booking, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, code, service_id, booking_date, channel, status, ticket_id, visitor_name, visitor_phone, created_at, checked_in_at
		FROM bookings
		WHERE code = $1
		FOR UPDATE
	`, code)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, store.ErrBookingNotFound
		}
		return models.Booking{}, err
	}
	return booking, nil
}

func isHoliday(ctx context.Context, tx pgx.Tx, date models.Date) (bool, error) {
	var exists bool
	row := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM holidays WHERE date = $1)
	`, date.String())
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanBooking(row pgx.Row) (models.Booking, error) {
	var booking models.Booking
	var bookingDate time.Time
	var ticketID sql.NullInt64
	var checkedInAt sql.NullTime
	if err := row.Scan(&booking.ID, &booking.Code, &booking.ServiceID, &bookingDate, &booking.Channel,
		&booking.Status, &ticketID, &booking.VisitorName, &booking.VisitorPhone, &booking.CreatedAt, &checkedInAt); err != nil {
		return models.Booking{}, err
	}
	booking.BookingDate = models.DateOf(bookingDate)
	booking.TicketID = nullInt64Ptr(ticketID)
	booking.CheckedInAt = nullTimePtr(checkedInAt)
	return booking, nil
}
