package models

import "time"

type Ticket struct {
	ID         int64      `json:"id"`
	ServiceID  int64      `json:"service_id"`
	QueueDate  Date       `json:"queue_date"`
	Sequence   int        `json:"sequence"`
	Number     string     `json:"number"`
	Status     string     `json:"status"`
	CounterID  *int64     `json:"counter_id,omitempty"`
	BookingID  *int64     `json:"booking_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	CalledAt   *time.Time `json:"called_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

const (
	StatusWaiting = "waiting"
	StatusServing = "serving"
	StatusDone    = "done"
	StatusSkipped = "skipped"
)
