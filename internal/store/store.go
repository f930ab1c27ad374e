package store

import (
	"context"
	"time"

	"github.com/mmalikabdul/qnext-antrian-sub000/internal/models"
)

type IssueTicketInput struct {
	ServiceID int64
	BookingID *int64
	CreatedAt time.Time
}

type CreateBookingInput struct {
	ServiceID    int64
	Date         models.Date
	Channel      string
	VisitorName  string
	VisitorPhone string
	CreatedAt    time.Time
}

type CallNextInput struct {
	ServiceID int64
	CounterID int64
	StaffID   *int64
	CalledAt  time.Time
}

// ServiceStatus is the calendar-gate answer consumed by kiosk UIs: whether
// the service is inside its operating window right now and whether today is
// a holiday.
type ServiceStatus struct {
	Service models.Service `json:"service"`
	Open    bool           `json:"open"`
	Holiday bool           `json:"holiday"`
}

type Session struct {
	SessionID string
	UserID    int64
	Role      string
	ExpiresAt time.Time
}

type LoginInput struct {
	Username string
	Password string
}

type LoginResult struct {
	Session Session
	User    models.User
}

// QueueStore is the engine's storage boundary. Every method that mutates
// state executes as one atomic unit; implementations retry internally on
// storage write conflicts and otherwise surface the sentinel errors of this
// package unchanged.
type QueueStore interface {
	// Sequencer.
	IssueTicket(ctx context.Context, input IssueTicketInput) (models.Ticket, error)

	// Quota gate and booking ledger.
	CheckAvailability(ctx context.Context, serviceID int64, date models.Date) (Availability, error)
	CreateBooking(ctx context.Context, input CreateBookingInput) (models.Booking, error)
	RedeemBooking(ctx context.Context, code string, serviceID int64) (models.Ticket, error)
	GetBookingByCode(ctx context.Context, code string) (models.Booking, error)
	ExpireBookings(ctx context.Context, before models.Date, batchSize int) (int, error)

	// Counter-call orchestrator.
	CallNext(ctx context.Context, input CallNextInput) (models.Ticket, error)
	RecallTicket(ctx context.Context, ticketID int64) (models.Ticket, error)
	CompleteTicket(ctx context.Context, ticketID int64) (models.Ticket, error)
	SkipTicket(ctx context.Context, ticketID int64) (models.Ticket, error)

	// Display reads. Staleness here only affects UI latency.
	GetTicket(ctx context.Context, ticketID int64) (models.Ticket, error)
	SnapshotTickets(ctx context.Context, serviceID int64, date models.Date) ([]models.Ticket, error)
	GetActiveTicket(ctx context.Context, counterID int64, date models.Date) (models.Ticket, bool, error)

	// Read-only administrative facts and stats.
	ListServices(ctx context.Context, at time.Time) ([]ServiceStatus, error)
	GetService(ctx context.Context, serviceID int64) (models.Service, error)
	ListCounters(ctx context.Context) ([]models.Counter, error)
	UpdateCounterStatus(ctx context.Context, counterID int64, status string) (models.Counter, error)
	ListHolidays(ctx context.Context, year int) ([]models.Holiday, error)
	DailyStats(ctx context.Context, date models.Date) ([]models.DailyServiceStat, error)

	// Notifier feed.
	ListOutboxEvents(ctx context.Context, after OutboxOffset, limit int) ([]OutboxEvent, error)
	GetOutboxOffset(ctx context.Context) (OutboxOffset, error)
	UpdateOutboxOffset(ctx context.Context, offset OutboxOffset) error

	// Staff sessions.
	Login(ctx context.Context, input LoginInput) (LoginResult, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
}
