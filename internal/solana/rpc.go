package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface the engine uses.
type RPCClient interface {
	// GetBalance retrieves the lamport balance of an address.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetTokenBalance sums the balance of a mint across every token account
	// the owner holds, returning raw units, UI amount and mint decimals.
	GetTokenBalance(ctx context.Context, owner, mint string) (*TokenBalance, error)

	// GetAccountData retrieves raw account data for an address.
	// Returns nil data if the account does not exist.
	GetAccountData(ctx context.Context, address string) ([]byte, error)

	// SendTransaction broadcasts a signed, base58-encoded transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, signedTxBase58 string) (string, error)

	// GetSignatureStatuses retrieves confirmation status for signatures.
	// Unknown signatures yield nil entries.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}
