package store

import (
	"errors"
	"fmt"
)

var (
	ErrServiceNotFound    = errors.New("service not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrCounterNotFound    = errors.New("counter not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrQueueEmpty         = errors.New("no waiting ticket")
	ErrInvalidState       = errors.New("invalid ticket state")
	ErrCounterUnavailable = errors.New("counter unavailable")
	ErrQuotaExceeded      = errors.New("booking quota exceeded")
	ErrServiceMismatch    = errors.New("booking belongs to another service")
	ErrBookingUsed        = errors.New("booking already used")
	ErrBookingCancelled   = errors.New("booking cancelled")
	ErrBookingExpired     = errors.New("booking expired")
	ErrWrongDate          = errors.New("booking is for another date")
	ErrHolidayClosed      = errors.New("closed for holiday")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrBadCredentials     = errors.New("invalid username or password")
)

// CounterBusyError reports a CallNext attempt against a counter that still
// holds a serving ticket. Callers show the conflicting number to the staff.
type CounterBusyError struct {
	TicketNumber string
}

func (e *CounterBusyError) Error() string {
	return fmt.Sprintf("counter busy serving %s", e.TicketNumber)
}
