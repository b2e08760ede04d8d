package model

import "errors"

// Error taxonomy for the limit order client. Callers match with errors.Is;
// wrapped causes stay available through errors.Unwrap.
var (
	// ErrInvalidOrderSpec rejects malformed construction input. Never retried.
	ErrInvalidOrderSpec = errors.New("invalid order spec")

	// ErrSigningDeclined means the signer refused or failed to produce a
	// signature. Never retried.
	ErrSigningDeclined = errors.New("signing declined")

	// ErrEndpointUnavailable means a single read endpoint failed. Only
	// surfaced when every redundant endpoint failed for the same query.
	ErrEndpointUnavailable = errors.New("read endpoint unavailable")

	// ErrPollIncomplete means at least one remaining-amount read failed
	// during a synchronization round. The round's snapshot is suppressed and
	// the round is retried on the next tick.
	ErrPollIncomplete = errors.New("poll incomplete")

	// ErrSubmissionFailed means the order book rejected a broadcast.
	// Resubmission requires explicit caller action.
	ErrSubmissionFailed = errors.New("order submission failed")
)
