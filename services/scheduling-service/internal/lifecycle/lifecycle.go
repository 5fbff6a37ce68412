// Package lifecycle holds the appointment status transition table. Any
// transition not listed here is illegal; terminal states have no entries.
package lifecycle

import "github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"

var transitions = map[model.Status][]model.Status{
	model.StatusPending: {
		model.StatusApproved,
		model.StatusCanceled,
		model.StatusPending, // reschedule keeps/returns pending
	},
	model.StatusApproved: {
		model.StatusCanceled,
		model.StatusCompleted,
		model.StatusPending, // reschedule resets to pending
	},
}

// CanTransition reports whether from→to is listed in the transition table.
func CanTransition(from, to model.Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
