package audit

import (
	"context"
	"sync"
	"time"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// MemoryLedger is the in-process Ledger used by tests and single-node runs.
// Safe for concurrent use.
type MemoryLedger struct {
	mu         sync.Mutex
	partitions map[string][]models.AuditEntry
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{partitions: make(map[string][]models.AuditEntry)}
}

// Append implements Ledger. The next sequence number is the partition length
// plus one, which keeps the sequence gapless by construction.
func (l *MemoryLedger) Append(_ context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.SequenceNo = uint64(len(l.partitions[entry.Partition])) + 1
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.partitions[entry.Partition] = append(l.partitions[entry.Partition], entry)
	return entry, nil
}

// Entries implements Ledger.
func (l *MemoryLedger) Entries(_ context.Context, partition string) ([]models.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.partitions[partition]
	out := make([]models.AuditEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// EntriesByEntity implements Ledger.
func (l *MemoryLedger) EntriesByEntity(_ context.Context, entityType models.EntityType, entityID string) ([]models.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.AuditEntry
	for _, entries := range l.partitions {
		for _, e := range entries {
			if e.EntityType == entityType && e.EntityID == entityID {
				out = append(out, e)
			}
		}
	}
	sortBySequence(out)
	return out, nil
}

// LastByEntity implements Ledger.
func (l *MemoryLedger) LastByEntity(ctx context.Context, entityType models.EntityType, entityID string) (*models.AuditEntry, error) {
	entries, err := l.EntriesByEntity(ctx, entityType, entityID)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	last := entries[len(entries)-1]
	return &last, nil
}

// sortBySequence orders entries by timestamp then sequence number.
// Cross-partition entity histories have no global sequence; the timestamp
// establishes order and the sequence number breaks same-timestamp ties
// within a partition.
func sortBySequence(entries []models.AuditEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && earlier(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func earlier(a, b models.AuditEntry) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.SequenceNo < b.SequenceNo
}
