package store

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// GenerateBookingCode builds the human-typable redemption code:
// "B" + uppercase service code + "-" + four random digits + HHMM of the
// creation instant, e.g. "BA-48211530". Uniqueness is enforced by the
// bookings table; callers retry on collision.
func GenerateBookingCode(serviceCode string, now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	var random int64
	if err == nil {
		random = n.Int64()
	} else {
		random = now.UnixNano() % 10000
	}
	return fmt.Sprintf("B%s-%04d%s", strings.ToUpper(serviceCode), random, now.Format("1504"))
}
