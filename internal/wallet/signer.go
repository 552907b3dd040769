package wallet

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Signer holds one decrypted agent key for the duration of one swap or
// order operation. Callers must Destroy it when the operation finishes.
type Signer struct {
	priv    ed25519.PrivateKey
	address string
}

// ErrSignerDestroyed is returned when signing after Destroy.
var ErrSignerDestroyed = errors.New("signer already destroyed")

// Address returns the base58 public key of the signer.
func (s *Signer) Address() string {
	return s.address
}

// Sign signs arbitrary bytes.
func (s *Signer) Sign(message []byte) ([]byte, error) {
	if s.priv == nil {
		return nil, ErrSignerDestroyed
	}
	return ed25519.Sign(s.priv, message), nil
}

// SignTransaction signs a serialized Solana transaction in wire format
// (compact-u16 signature count, signature array, message) and returns the
// fully signed transaction. The signer must be the fee payer, whose
// signature occupies slot zero.
func (s *Signer) SignTransaction(tx []byte) ([]byte, error) {
	if s.priv == nil {
		return nil, ErrSignerDestroyed
	}

	numSigs, offset, err := decodeCompactU16(tx)
	if err != nil {
		return nil, fmt.Errorf("decode signature count: %w", err)
	}
	if numSigs < 1 {
		return nil, errors.New("transaction reserves no signature slots")
	}

	msgStart := offset + numSigs*ed25519.SignatureSize
	if msgStart >= len(tx) {
		return nil, errors.New("transaction shorter than its signature table")
	}

	message := tx[msgStart:]
	signature := ed25519.Sign(s.priv, message)

	signed := make([]byte, len(tx))
	copy(signed, tx)
	copy(signed[offset:], signature)
	return signed, nil
}

// Destroy wipes the private key material. Safe to call twice.
func (s *Signer) Destroy() {
	zero(s.priv)
	s.priv = nil
}

// EncodeBase58 is a convenience for wire encoding signed transactions.
func EncodeBase58(b []byte) string {
	return base58.Encode(b)
}

// decodeCompactU16 reads a Solana compact-u16 length prefix.
func decodeCompactU16(b []byte) (value, bytesRead int, err error) {
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, errors.New("truncated compact-u16")
		}
		elem := int(b[i])
		value |= (elem & 0x7f) << (7 * i)
		if elem&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, errors.New("compact-u16 too long")
}
