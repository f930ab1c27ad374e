package store

import (
	"testing"

	"github.com/mmalikabdul/qnext-antrian-sub000/internal/models"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		want   bool
	}{
		{"call_next", models.StatusWaiting, true},
		{"call_next", models.StatusServing, false},
		{"recall", models.StatusServing, true},
		{"recall", models.StatusWaiting, false},
		{"complete", models.StatusServing, true},
		{"complete", models.StatusDone, false},
		{"complete", models.StatusSkipped, false},
		{"skip", models.StatusServing, true},
		{"skip", models.StatusWaiting, false},
		{"skip", models.StatusDone, false},
		{"unknown", models.StatusServing, false},
	}

	for _, tc := range cases {
		got := ValidTransition(tc.action, tc.from)
		if got != tc.want {
			t.Fatalf("ValidTransition(%q, %q) = %v, want %v", tc.action, tc.from, got, tc.want)
		}
	}
}
