package models

import "errors"

// Error taxonomy for the decision engine. Callers classify failures with
// errors.Is against these sentinels; wrapped context travels via %w.
var (
	// ErrMalformedRecord marks a raw billing record missing a resource ID
	// or timestamp. Recoverable: the record is skipped and logged.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownCurrency marks a record whose currency has no entry in the
	// conversion table. Recoverable: the record is skipped and logged.
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrInsufficientHistory marks a dimension with too little trailing
	// history to fit a forecast. Recoverable: the dimension is skipped
	// for this run.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrEvidenceStale marks a recommendation whose supporting evidence is
	// older than the configured maximum age. Recoverable: the
	// recommendation returns to Proposed for re-evaluation.
	ErrEvidenceStale = errors.New("evidence stale")

	// ErrLockTimeout marks a failed acquisition of the per-resource
	// execution lock within the bounded wait. The recommendation remains
	// Approved for a later retry.
	ErrLockTimeout = errors.New("lock timeout")

	// ErrProviderCallFailed marks a provider automation call that errored
	// or timed out. Retried with backoff up to the configured bound, then
	// surfaced as a Failed recommendation.
	ErrProviderCallFailed = errors.New("provider call failed")

	// ErrIrreversibleAction marks a rollback request against an action
	// type that defines no inverse operation. Fatal to that rollback
	// request only.
	ErrIrreversibleAction = errors.New("irreversible action")

	// ErrInvalidTransition marks an attempted state change not present in
	// the workflow transition table.
	ErrInvalidTransition = errors.New("invalid state transition")
)
