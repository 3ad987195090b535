package workflow

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// rollbackInitiated is the ledger-only state marker appended before a
// rollback's inverse call. It never appears as a stored recommendation
// status; its presence without a following RolledBack entry tells the
// reconciler a rollback was interrupted.
const rollbackInitiated = "RollingBack"

// ActionInvoker is the provider automation surface the executor calls.
// Implementations wrap real provider SDKs; tests stub it.
type ActionInvoker interface {
	// Invoke performs the optimization action against the resource.
	// Failures wrap models.ErrProviderCallFailed when retryable.
	Invoke(ctx context.Context, action models.ActionType, resourceID string, params map[string]string) error

	// State returns the provider-observed state of the resource. The
	// executor checks it between retries and during crash reconciliation
	// instead of assuming calls are idempotent.
	State(ctx context.Context, resourceID string) (models.ResourceState, error)
}

// expectedState maps an action to the provider state that proves it already
// took effect. Actions without a distinguishing state return false.
func expectedState(action models.ActionType) (models.ResourceState, bool) {
	switch action {
	case models.ActionStop:
		return models.ResourceStopped, true
	case models.ActionStart:
		return models.ResourceActive, true
	default:
		return "", false
	}
}

// inverseAction returns the action that undoes the given one, or
// ErrIrreversibleAction when no inverse exists.
func inverseAction(rec *models.Recommendation) (models.ActionType, map[string]string, error) {
	switch rec.ActionType {
	case models.ActionStop:
		return models.ActionStart, nil, nil
	case models.ActionRightsize:
		prior, ok := rec.ActionParams["previous_capacity"]
		if !ok {
			return "", nil, fmt.Errorf("rightsize rollback for %s lacks previous_capacity: %w",
				rec.ID, models.ErrIrreversibleAction)
		}
		return models.ActionRightsize, map[string]string{"target_capacity": prior}, nil
	case models.ActionSchedule:
		return models.ActionUnschedule, nil, nil
	case models.ActionDelete:
		return "", nil, fmt.Errorf("delete of %s cannot be undone: %w",
			rec.ResourceID, models.ErrIrreversibleAction)
	default:
		return "", nil, fmt.Errorf("no inverse for action %q: %w",
			rec.ActionType, models.ErrIrreversibleAction)
	}
}

// Execute runs an Approved recommendation against the provider under the
// per-resource lock. The Executing audit entry is durable before the first
// provider call; the terminal entry follows the outcome. Lock acquisition
// failure leaves the recommendation Approved for a later run.
func (w *Workflow) Execute(ctx context.Context, recommendationID string) (*models.Recommendation, error) {
	rec, err := w.store.GetRecommendation(ctx, recommendationID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(rec.Status, models.StatusExecuting); err != nil {
		return rec, fmt.Errorf("recommendation %s: %w", rec.ID, err)
	}

	release, err := w.locks.Acquire(ctx, rec.ResourceID)
	if err != nil {
		w.logger.Warn("execution deferred, resource locked",
			zap.String("recommendation_id", rec.ID),
			zap.String("resource_id", rec.ResourceID),
			zap.Error(err))
		return rec, err
	}
	defer release()

	// Re-read under the lock: a concurrent executor may have won the race
	// and already moved this recommendation past Approved.
	rec, err = w.store.GetRecommendation(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if err := w.transition(ctx, rec, models.StatusExecuting, "executor", ""); err != nil {
		return rec, err
	}

	// Rightsize needs the prior capacity on record before the provider call,
	// or the inverse action has nothing to restore.
	if err := w.recordPriorCapacity(ctx, rec); err != nil {
		return rec, err
	}

	if err := w.invokeWithRetry(ctx, rec, rec.ActionType, rec.ActionParams); err != nil {
		if terr := w.transition(ctx, rec, models.StatusFailed, "executor", err.Error()); terr != nil {
			return rec, terr
		}
		return rec, err
	}

	if err := w.transition(ctx, rec, models.StatusCompleted, "executor", ""); err != nil {
		return rec, err
	}
	w.applyResourceEffect(ctx, rec, rec.ActionType, rec.ActionParams)
	return rec, nil
}

// recordPriorCapacity persists the resource's current provisioned capacity
// into the recommendation's params before a rightsize executes. Without it
// the inverse action is undefined and rollback reports ErrIrreversibleAction.
func (w *Workflow) recordPriorCapacity(ctx context.Context, rec *models.Recommendation) error {
	if rec.ActionType != models.ActionRightsize {
		return nil
	}
	if _, ok := rec.ActionParams["previous_capacity"]; ok {
		return nil
	}
	res, err := w.store.GetResource(ctx, rec.ResourceID)
	if err != nil || res.ProvisionedCapacity <= 0 {
		w.logger.Warn("prior capacity unavailable, rightsize will be irreversible",
			zap.String("recommendation_id", rec.ID),
			zap.String("resource_id", rec.ResourceID),
			zap.Error(err))
		return nil
	}
	if rec.ActionParams == nil {
		rec.ActionParams = make(map[string]string)
	}
	rec.ActionParams["previous_capacity"] = strconv.FormatFloat(res.ProvisionedCapacity, 'f', -1, 64)
	if err := w.store.SaveRecommendation(ctx, rec); err != nil {
		return fmt.Errorf("persisting prior capacity for %s: %w", rec.ID, err)
	}
	return nil
}

// invokeWithRetry calls the provider with bounded exponential backoff.
// Before each retry it asks the provider for the resource state: when the
// previous attempt actually took effect despite its error, the retry is
// skipped rather than re-invoking a non-idempotent action.
func (w *Workflow) invokeWithRetry(ctx context.Context, rec *models.Recommendation, action models.ActionType, params map[string]string) error {
	var lastErr error
	backoff := w.cfg.RetryBackoff

	// Attempts counts the operation in flight. A rollback of an executed
	// recommendation starts its own count instead of inheriting the
	// execution's.
	rec.Attempts = 0

	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if applied, ok := w.actionApplied(ctx, rec.ResourceID, action); ok && applied {
				w.logger.Info("previous attempt took effect, skipping retry",
					zap.String("recommendation_id", rec.ID),
					zap.Int("attempt", attempt))
				return nil
			}
			w.sleep(backoff)
			backoff *= 2
		}

		rec.Attempts++
		if err := w.store.SaveRecommendation(ctx, rec); err != nil {
			return fmt.Errorf("persisting attempt count for %s: %w", rec.ID, err)
		}

		lastErr = w.invoker.Invoke(ctx, action, rec.ResourceID, params)
		if lastErr == nil {
			return nil
		}
		w.logger.Warn("provider call failed",
			zap.String("recommendation_id", rec.ID),
			zap.String("resource_id", rec.ResourceID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}
	return fmt.Errorf("action %s on %s exhausted %d attempts: %w (%v)",
		action, rec.ResourceID, w.cfg.MaxAttempts, models.ErrProviderCallFailed, lastErr)
}

// actionApplied reports whether the provider state shows the action already
// in effect. The second return is false when the action has no
// distinguishing state or the provider cannot be queried.
func (w *Workflow) actionApplied(ctx context.Context, resourceID string, action models.ActionType) (applied, ok bool) {
	want, ok := expectedState(action)
	if !ok {
		return false, false
	}
	state, err := w.invoker.State(ctx, resourceID)
	if err != nil {
		return false, false
	}
	return state == want, true
}

// applyResourceEffect mirrors a completed action onto the tracked resource
// entity. Best effort: the provider is the source of truth and ingestion
// will converge the entity either way.
func (w *Workflow) applyResourceEffect(ctx context.Context, rec *models.Recommendation, action models.ActionType, params map[string]string) {
	res, err := w.store.GetResource(ctx, rec.ResourceID)
	if err != nil {
		return
	}
	switch action {
	case models.ActionStop:
		res.State = models.ResourceStopped
	case models.ActionStart:
		res.State = models.ResourceActive
	case models.ActionRightsize:
		if v, err := strconv.ParseFloat(params["target_capacity"], 64); err == nil && v > 0 {
			res.ProvisionedCapacity = v
		}
	}
	if err := w.store.SaveResource(ctx, res); err != nil {
		w.logger.Warn("resource state update failed",
			zap.String("resource_id", rec.ResourceID), zap.Error(err))
	}
}

// Rollback undoes a Completed recommendation by invoking the inverse action
// under a fresh resource lock. Irreversible actions fail with
// ErrIrreversibleAction and leave the recommendation Completed.
func (w *Workflow) Rollback(ctx context.Context, recommendationID, actor string) (*models.Recommendation, error) {
	rec, err := w.store.GetRecommendation(ctx, recommendationID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(rec.Status, models.StatusRolledBack); err != nil {
		return rec, fmt.Errorf("recommendation %s: %w", rec.ID, err)
	}

	inverse, params, err := inverseAction(rec)
	if err != nil {
		return rec, err
	}

	release, err := w.locks.Acquire(ctx, rec.ResourceID)
	if err != nil {
		return rec, err
	}
	defer release()

	// The initiation entry is durable before the inverse call: a crash
	// mid-rollback leaves a trace the reconciler can resolve.
	if _, err := w.ledger.Append(ctx, models.AuditEntry{
		Partition:  rec.ResourceID,
		EntityType: models.EntityRecommendation,
		EntityID:   rec.ID,
		FromState:  string(rec.Status),
		ToState:    rollbackInitiated,
		Actor:      actor,
		Timestamp:  w.now(),
		Detail:     "inverse action " + string(inverse),
	}); err != nil {
		return rec, fmt.Errorf("recording rollback initiation for %s: %w", rec.ID, err)
	}

	if err := w.invokeWithRetry(ctx, rec, inverse, params); err != nil {
		return rec, fmt.Errorf("rollback of %s: %w", rec.ID, err)
	}
	if err := w.transition(ctx, rec, models.StatusRolledBack, actor, "inverse action "+string(inverse)); err != nil {
		return rec, err
	}
	w.applyResourceEffect(ctx, rec, inverse, params)
	return rec, nil
}
