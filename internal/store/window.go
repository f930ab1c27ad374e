package store

import (
	"strconv"
	"strings"
	"time"
)

// WithinWindow reports whether the wall-clock of at falls inside the
// [open, close) operating window. Times are "HH:MM" in the same location as
// at; malformed or empty bounds disable the gate (always open).
func WithinWindow(openTime, closeTime string, at time.Time) bool {
	open, okOpen := parseClock(openTime)
	close, okClose := parseClock(closeTime)
	if !okOpen || !okClose {
		return true
	}
	minute := at.Hour()*60 + at.Minute()
	return minute >= open && minute < close
}

func parseClock(value string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
