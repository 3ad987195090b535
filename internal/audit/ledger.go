// Package audit provides the append-only ledger recording every state
// transition and executed action in the decision engine.
//
// Entries are written ahead of the transition's side effects: the workflow
// appends the Executing entry before the provider call, and the terminal
// entry after it returns. A ledger write failure is fatal to the pipeline
// run, since continuing would break crash reconciliation.
package audit

import (
	"context"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// Ledger is the append-only audit store. Sequence numbers are assigned by
// the ledger itself: strictly increasing and gapless within a partition.
type Ledger interface {
	// Append assigns the next sequence number in entry.Partition, persists
	// the entry, and returns it with SequenceNo populated. Entries are
	// immutable once appended.
	Append(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error)

	// Entries returns all entries for a partition in sequence order.
	Entries(ctx context.Context, partition string) ([]models.AuditEntry, error)

	// EntriesByEntity returns all entries for one entity in sequence
	// order, across partitions.
	EntriesByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]models.AuditEntry, error)

	// LastByEntity returns the most recent entry for an entity, or nil
	// when the entity has no audit history.
	LastByEntity(ctx context.Context, entityType models.EntityType, entityID string) (*models.AuditEntry, error)
}
