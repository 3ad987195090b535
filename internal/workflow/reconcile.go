package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// Reconcile resolves recommendations stranded mid-operation by a crash. For
// each one it queries the provider for the resource's actual state: an
// Executing recommendation whose action evidently took effect completes,
// otherwise it fails and stays eligible for manual review. Completed
// recommendations whose trail ends at a rollback initiation entry are
// resolved the same way against the inverse action. Run once at startup,
// before any new executions.
func (w *Workflow) Reconcile(ctx context.Context) error {
	if err := w.reconcileExecuting(ctx); err != nil {
		return err
	}
	return w.reconcileRollbacks(ctx)
}

func (w *Workflow) reconcileExecuting(ctx context.Context) error {
	stranded, err := w.store.ListRecommendations(ctx, models.StatusExecuting)
	if err != nil {
		return fmt.Errorf("listing executing recommendations: %w", err)
	}

	for _, rec := range stranded {
		last, err := w.ledger.LastByEntity(ctx, models.EntityRecommendation, rec.ID)
		if err != nil {
			return fmt.Errorf("reading audit trail for %s: %w", rec.ID, err)
		}
		if last == nil || last.ToState != string(models.StatusExecuting) {
			// Ledger and store disagree; the ledger is authoritative but
			// this needs a human, so leave the recommendation alone.
			w.logger.Error("audit trail inconsistent with store",
				zap.String("recommendation_id", rec.ID),
				zap.Any("last_entry", last))
			continue
		}

		applied, known := w.actionApplied(ctx, rec.ResourceID, rec.ActionType)
		switch {
		case known && applied:
			if err := w.transition(ctx, rec, models.StatusCompleted, "reconciler",
				"provider state confirms action after restart"); err != nil {
				return err
			}
			w.applyResourceEffect(ctx, rec, rec.ActionType, rec.ActionParams)
		default:
			if err := w.transition(ctx, rec, models.StatusFailed, "reconciler",
				"outcome unconfirmed after restart"); err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcileRollbacks resolves rollbacks interrupted between the initiation
// entry and the RolledBack transition. A confirmed inverse transitions the
// recommendation to RolledBack; an unconfirmed one stays Completed and the
// rollback remains re-runnable.
func (w *Workflow) reconcileRollbacks(ctx context.Context) error {
	completed, err := w.store.ListRecommendations(ctx, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("listing completed recommendations: %w", err)
	}

	for _, rec := range completed {
		last, err := w.ledger.LastByEntity(ctx, models.EntityRecommendation, rec.ID)
		if err != nil {
			return fmt.Errorf("reading audit trail for %s: %w", rec.ID, err)
		}
		if last == nil || last.ToState != rollbackInitiated {
			continue
		}

		inverse, params, err := inverseAction(rec)
		if err != nil {
			// Initiation required a defined inverse; a missing one now means
			// the params were mutated since. Leave it for a human.
			w.logger.Error("stranded rollback has no inverse",
				zap.String("recommendation_id", rec.ID), zap.Error(err))
			continue
		}

		applied, known := w.actionApplied(ctx, rec.ResourceID, inverse)
		if known && applied {
			if err := w.transition(ctx, rec, models.StatusRolledBack, "reconciler",
				"provider state confirms inverse after restart"); err != nil {
				return err
			}
			w.applyResourceEffect(ctx, rec, inverse, params)
			continue
		}
		w.logger.Warn("rollback outcome unconfirmed after restart, staying completed",
			zap.String("recommendation_id", rec.ID),
			zap.String("resource_id", rec.ResourceID))
	}
	return nil
}
