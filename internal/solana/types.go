package solana

import "errors"

// Lamports per SOL.
const LamportsPerSOL = 1_000_000_000

// WSOLMint is the wrapped SOL mint, the input side of every buy and the
// output side of every sell.
const WSOLMint = "So11111111111111111111111111111111111111112"

// ErrTransactionFailed marks a transaction that landed on chain but failed
// execution. Unlike a timeout there is no ambiguity: the swap did not happen.
var ErrTransactionFailed = errors.New("transaction failed on chain")

// TokenBalance is an owner's total holding of one mint.
type TokenBalance struct {
	RawAmount uint64  // base units across all token accounts
	UIAmount  float64 // raw / 10^decimals
	Decimals  int
}

// SignatureStatus is the confirmation state of one transaction signature.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64 // nil once rooted
	ConfirmationStatus string // "processed" | "confirmed" | "finalized"
	Err                interface{}
}

// Confirmed reports whether the transaction reached at least the
// confirmed commitment without an execution error.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil || s.Err != nil {
		return false
	}
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}
