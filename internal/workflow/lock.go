package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// LockManager grants exclusive per-resource execution locks so that at most
// one action runs against a resource at a time. Acquisition waits up to the
// configured timeout and then fails with ErrLockTimeout; it never blocks a
// pipeline run indefinitely.
type LockManager struct {
	mu      sync.Mutex
	held    map[string]chan struct{}
	timeout time.Duration
}

// NewLockManager returns a lock manager with the given acquisition timeout.
// A non-positive timeout falls back to 30 seconds.
func NewLockManager(timeout time.Duration) *LockManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LockManager{
		held:    make(map[string]chan struct{}),
		timeout: timeout,
	}
}

// Acquire takes the exclusive lock for resourceID, waiting up to the
// manager's timeout. The returned release function must be called exactly
// once; releasing wakes the next waiter.
func (m *LockManager) Acquire(ctx context.Context, resourceID string) (release func(), err error) {
	deadline := time.NewTimer(m.timeout)
	defer deadline.Stop()

	for {
		m.mu.Lock()
		ch, taken := m.held[resourceID]
		if !taken {
			done := make(chan struct{})
			m.held[resourceID] = done
			m.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					m.mu.Lock()
					delete(m.held, resourceID)
					m.mu.Unlock()
					close(done)
				})
			}, nil
		}
		m.mu.Unlock()

		select {
		case <-ch:
			// Holder released; retry the take.
		case <-deadline.C:
			return nil, fmt.Errorf("acquiring lock for %s: %w", resourceID, models.ErrLockTimeout)
		case <-ctx.Done():
			return nil, fmt.Errorf("acquiring lock for %s: %w", resourceID, ctx.Err())
		}
	}
}
