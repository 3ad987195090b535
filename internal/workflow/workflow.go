package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/audit"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/policy"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/storage"
)

// AutoApproveActor is recorded as the approving actor when a recommendation
// clears the policy auto-approval gate without a human decision.
const AutoApproveActor = "auto-approve-policy"

// DefaultEvidenceMaxAge is how old supporting evidence may be before a
// submission is bounced back to Proposed for re-evaluation.
const DefaultEvidenceMaxAge = 24 * time.Hour

// Config tunes the workflow. Zero values select defaults.
type Config struct {
	// EvidenceMaxAge is the maximum age of supporting evidence at
	// submission time.
	EvidenceMaxAge time.Duration

	// LockTimeout bounds the wait for a per-resource execution lock.
	LockTimeout time.Duration

	// MaxAttempts bounds provider call retries per execution.
	MaxAttempts int

	// RetryBackoff is the base delay between attempts; it doubles each
	// retry.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.EvidenceMaxAge <= 0 {
		c.EvidenceMaxAge = DefaultEvidenceMaxAge
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Second
	}
	return c
}

// Workflow owns the recommendation lifecycle: submission, approval
// decisions, execution, rollback and crash reconciliation.
type Workflow struct {
	store   storage.Store
	ledger  audit.Ledger
	policy  *policy.PolicyConfig
	invoker ActionInvoker
	locks   *LockManager
	logger  *zap.Logger
	cfg     Config

	// now is replaceable in tests.
	now func() time.Time

	// sleep is replaceable in tests to skip retry backoff.
	sleep func(time.Duration)
}

// New assembles a workflow over the given store, ledger and provider
// automation interface.
func New(store storage.Store, ledger audit.Ledger, pol *policy.PolicyConfig, invoker ActionInvoker, logger *zap.Logger, cfg Config) *Workflow {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		store:   store,
		ledger:  ledger,
		policy:  pol,
		invoker: invoker,
		locks:   NewLockManager(cfg.LockTimeout),
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// transition validates and applies a state change, appending the audit entry
// BEFORE persisting the new status. The entry being durable first is what
// makes crash reconciliation possible.
func (w *Workflow) transition(ctx context.Context, rec *models.Recommendation, to models.RecommendationStatus, actor, detail string) error {
	if err := ValidateTransition(rec.Status, to); err != nil {
		return fmt.Errorf("recommendation %s: %w", rec.ID, err)
	}

	entry := models.AuditEntry{
		Partition:  rec.ResourceID,
		EntityType: models.EntityRecommendation,
		EntityID:   rec.ID,
		FromState:  string(rec.Status),
		ToState:    string(to),
		Actor:      actor,
		Timestamp:  w.now(),
		Detail:     detail,
	}
	if _, err := w.ledger.Append(ctx, entry); err != nil {
		return fmt.Errorf("recording transition for %s: %w", rec.ID, err)
	}

	rec.Status = to
	rec.UpdatedAt = w.now()
	if err := w.store.SaveRecommendation(ctx, rec); err != nil {
		return fmt.Errorf("persisting transition for %s: %w", rec.ID, err)
	}

	w.logger.Info("recommendation transitioned",
		zap.String("recommendation_id", rec.ID),
		zap.String("resource_id", rec.ResourceID),
		zap.String("from", entry.FromState),
		zap.String("to", entry.ToState),
		zap.String("actor", actor))
	return nil
}

// Submit moves a Proposed recommendation to PendingApproval after validating
// that its supporting evidence is fresh. Recommendations that clear the
// policy auto-approval gate continue straight to Approved.
func (w *Workflow) Submit(ctx context.Context, recommendationID string) (*models.Recommendation, error) {
	rec, err := w.store.GetRecommendation(ctx, recommendationID)
	if err != nil {
		return nil, err
	}

	if err := w.checkEvidence(ctx, rec); err != nil {
		return rec, err
	}

	if err := w.transition(ctx, rec, models.StatusPendingApproval, "submitter", ""); err != nil {
		return rec, err
	}

	if policy.ShouldAutoApprove(rec, w.policy) {
		dec := &models.ApprovalDecision{
			RecommendationID: rec.ID,
			Decision:         models.DecisionApprove,
			Actor:            AutoApproveActor,
			Timestamp:        w.now(),
			Rationale: fmt.Sprintf("savings %.2f USD/month within auto-approval cap",
				rec.EstimatedMonthlySavings),
		}
		if err := w.store.SaveDecision(ctx, dec); err != nil {
			return rec, fmt.Errorf("recording auto-approval for %s: %w", rec.ID, err)
		}
		if err := w.transition(ctx, rec, models.StatusApproved, AutoApproveActor, dec.Rationale); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// checkEvidence verifies every evidence reference resolves to a stored
// anomaly event or forecast series and is younger than the configured maximum
// age. A dangling reference fails the same way a stale one does: the
// recommendation goes back for re-evaluation, never forward on unverifiable
// support.
func (w *Workflow) checkEvidence(ctx context.Context, rec *models.Recommendation) error {
	cutoff := w.now().Add(-w.cfg.EvidenceMaxAge)
	for _, ev := range rec.Evidence {
		if ev.GeneratedAt.Before(cutoff) {
			return fmt.Errorf("recommendation %s: evidence %s from %s: %w",
				rec.ID, ev.Kind, ev.GeneratedAt.Format(time.RFC3339), models.ErrEvidenceStale)
		}
		switch ev.Kind {
		case models.EvidenceAnomaly:
			if _, err := w.store.GetAnomaly(ctx, ev.ID); err != nil {
				return fmt.Errorf("recommendation %s: anomaly evidence %s unresolvable: %w",
					rec.ID, ev.ID, models.ErrEvidenceStale)
			}
		case models.EvidenceForecast:
			if _, err := w.store.CurrentForecast(ctx, ev.Dimension); err != nil {
				return fmt.Errorf("recommendation %s: forecast evidence for %s unresolvable: %w",
					rec.ID, ev.Dimension, models.ErrEvidenceStale)
			}
		default:
			return fmt.Errorf("recommendation %s: unknown evidence kind %q: %w",
				rec.ID, ev.Kind, models.ErrEvidenceStale)
		}
	}
	return nil
}

// Decide records a human approval decision against a PendingApproval
// recommendation and applies the matching transition.
func (w *Workflow) Decide(ctx context.Context, decision models.ApprovalDecision) (*models.Recommendation, error) {
	rec, err := w.store.GetRecommendation(ctx, decision.RecommendationID)
	if err != nil {
		return nil, err
	}

	var to models.RecommendationStatus
	switch decision.Decision {
	case models.DecisionApprove:
		to = models.StatusApproved
	case models.DecisionReject:
		to = models.StatusRejected
	default:
		return rec, fmt.Errorf("unknown decision %q for %s", decision.Decision, rec.ID)
	}

	if err := ValidateTransition(rec.Status, to); err != nil {
		return rec, fmt.Errorf("recommendation %s: %w", rec.ID, err)
	}

	if decision.Timestamp.IsZero() {
		decision.Timestamp = w.now()
	}
	if err := w.store.SaveDecision(ctx, &decision); err != nil {
		return rec, fmt.Errorf("recording decision for %s: %w", rec.ID, err)
	}
	if err := w.transition(ctx, rec, to, decision.Actor, decision.Rationale); err != nil {
		return rec, err
	}
	return rec, nil
}

// Withdraw returns a PendingApproval recommendation to Proposed, for
// re-evaluation with fresh evidence. Only PendingApproval recommendations
// can be withdrawn.
func (w *Workflow) Withdraw(ctx context.Context, recommendationID, actor, reason string) (*models.Recommendation, error) {
	rec, err := w.store.GetRecommendation(ctx, recommendationID)
	if err != nil {
		return nil, err
	}
	if err := w.transition(ctx, rec, models.StatusProposed, actor, reason); err != nil {
		return rec, err
	}
	return rec, nil
}
