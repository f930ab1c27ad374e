package store

import (
	"fmt"
	"strings"
)

const ticketNumberPad = 3

// FormatTicketNumber renders the display number printed on tickets and read
// out by the voice announcer: uppercase service code, dash, sequence padded
// to three digits. Sequence 7 for code "A" yields "A-007".
func FormatTicketNumber(serviceCode string, sequence int) string {
	return fmt.Sprintf("%s-%0*d", strings.ToUpper(serviceCode), ticketNumberPad, sequence)
}
