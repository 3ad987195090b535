// Package workflow drives recommendations through the approval and
// execution lifecycle. Every state change is validated against the
// transition table and recorded in the audit ledger before its side
// effects run.
package workflow

import (
	"fmt"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// transitions is the complete set of legal recommendation state changes.
// Anything not listed is rejected with ErrInvalidTransition.
var transitions = map[models.RecommendationStatus][]models.RecommendationStatus{
	models.StatusProposed: {
		models.StatusPendingApproval,
	},
	models.StatusPendingApproval: {
		models.StatusApproved,
		models.StatusRejected,
		// Stale evidence sends the recommendation back for re-evaluation.
		models.StatusProposed,
	},
	models.StatusApproved: {
		models.StatusExecuting,
	},
	models.StatusExecuting: {
		models.StatusCompleted,
		models.StatusFailed,
	},
	models.StatusCompleted: {
		models.StatusRolledBack,
	},
	// Rejected, Failed and RolledBack are terminal.
	models.StatusRejected:   nil,
	models.StatusFailed:     nil,
	models.StatusRolledBack: nil,
}

// ValidateTransition returns nil when from → to is a legal state change.
func ValidateTransition(from, to models.RecommendationStatus) error {
	allowed, ok := transitions[from]
	if !ok {
		return fmt.Errorf("unknown state %q: %w", from, models.ErrInvalidTransition)
	}
	for _, next := range allowed {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%s -> %s: %w", from, to, models.ErrInvalidTransition)
}
