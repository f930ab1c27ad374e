package store

// UnlimitedRemaining is reported when a service has no daily quota.
const UnlimitedRemaining = 9999

type Availability struct {
	Available bool `json:"available"`
	Remaining int  `json:"remaining"`
	Quota     int  `json:"quota"`
}

// ComputeAvailability derives remaining online-booking capacity from the
// quota in force and the count of committed (non-cancelled) online bookings.
// Quota 0 means unlimited. Offline bookings never enter usedOnline.
func ComputeAvailability(quota, usedOnline int) Availability {
	if quota <= 0 {
		return Availability{Available: true, Remaining: UnlimitedRemaining, Quota: 0}
	}
	remaining := quota - usedOnline
	if remaining < 0 {
		remaining = 0
	}
	return Availability{Available: remaining > 0, Remaining: remaining, Quota: quota}
}
