package swap

import "errors"

// Pipeline failures. Each step surfaces its own error so callers can tell
// a clean refusal (no quote) from an ambiguous one (confirm timeout).
var (
	// ErrQuoteUnavailable means the aggregator produced no usable quote.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrBuildFailed means the aggregator could not build the swap transaction.
	ErrBuildFailed = errors.New("swap build failed")

	// ErrSignFailed means local signing failed. The key never leaves the process.
	ErrSignFailed = errors.New("transaction signing failed")

	// ErrSubmitFailed means neither the protected relay nor the public
	// broadcast accepted the transaction.
	ErrSubmitFailed = errors.New("transaction submission failed")

	// ErrConfirmTimeout means the transaction was broadcast but did not
	// confirm within budget. This does NOT prove it never landed: only
	// balance reconciliation can settle the outcome later.
	ErrConfirmTimeout = errors.New("confirmation timed out; on-chain outcome unknown")
)
