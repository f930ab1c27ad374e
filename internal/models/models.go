package models

import "time"

type Service struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	DailyQuota int    `json:"daily_quota"`
	OpenTime   string `json:"open_time"`
	CloseTime  string `json:"close_time"`
}

type Counter struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

const (
	CounterActive   = "active"
	CounterInactive = "inactive"
	CounterBreak    = "break"
)

type Booking struct {
	ID           int64      `json:"id"`
	Code         string     `json:"code"`
	ServiceID    int64      `json:"service_id"`
	BookingDate  Date       `json:"booking_date"`
	Channel      string     `json:"channel"`
	Status       string     `json:"status"`
	TicketID     *int64     `json:"ticket_id,omitempty"`
	VisitorName  string     `json:"visitor_name,omitempty"`
	VisitorPhone string     `json:"visitor_phone,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
}

const (
	ChannelOnline  = "online"
	ChannelOffline = "offline"

	BookingPending   = "pending"
	BookingUsed      = "used"
	BookingCancelled = "cancelled"
	BookingExpired   = "expired"
)

// DailyServiceStat accumulates issuance per (service, day). It is written
// inside the ticket-issuance transaction and never decremented.
type DailyServiceStat struct {
	ServiceID     int64  `json:"service_id"`
	ServiceName   string `json:"service_name,omitempty"`
	StatDate      Date   `json:"stat_date"`
	TotalTickets  int    `json:"total_tickets"`
	QuotaSnapshot int    `json:"quota_snapshot"`
}

type Holiday struct {
	ID   int64  `json:"id"`
	Date Date   `json:"date"`
	Name string `json:"name"`
}

type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}
