package store

import "github.com/mmalikabdul/qnext-antrian-sub000/internal/models"

// transitionMap lists the statuses each staff action may start from.
// Done and skipped are terminal.
var transitionMap = map[string][]string{
	"call_next": {models.StatusWaiting},
	"recall":    {models.StatusServing},
	"complete":  {models.StatusServing},
	"skip":      {models.StatusServing},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
