package solana

import "context"

// WSClient defines the Solana WebSocket subscription surface the engine uses.
// It is a confirmation fast path only; getSignatureStatuses over HTTP remains
// the authority when the socket is unavailable.
type WSClient interface {
	// WaitForSignature subscribes to a signature at confirmed commitment and
	// blocks until the notification arrives or ctx expires. A nil return
	// means the transaction confirmed without an execution error.
	WaitForSignature(ctx context.Context, signature string) error

	// Close closes the WebSocket connection.
	Close() error
}
