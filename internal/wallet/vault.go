// Package wallet decrypts custodial agent signing keys on demand.
// Decrypted material lives only inside a Signer and is wiped after use;
// nothing decrypted is ever written back to storage.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/scrypt"
)

// Encrypted key layout: base64(salt[16] || nonce[12] || ciphertext).
const (
	saltSize  = 16
	nonceSize = 12
	seedSize  = ed25519.SeedSize
)

// Vault errors.
var (
	ErrEmptySecret    = errors.New("vault secret must not be empty")
	ErrMalformedKey   = errors.New("malformed encrypted key")
	ErrDecryptFailed  = errors.New("key decryption failed")
	ErrWalletMismatch = errors.New("decrypted key does not match wallet address")
	ErrKeyNotOnCurve  = errors.New("derived public key is not a valid curve point")
)

// Vault derives per-record AES-256-GCM keys from a process-wide secret.
type Vault struct {
	secret []byte
}

// NewVault creates a Vault from the process-wide secret.
func NewVault(secret string) (*Vault, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Vault{secret: []byte(secret)}, nil
}

// deriveKey stretches the vault secret with the per-record salt.
func (v *Vault) deriveKey(salt []byte) ([]byte, error) {
	key, err := scrypt.Key(v.secret, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Encrypt seals a 32-byte ed25519 seed with a fresh salt and nonce.
// Used by agent provisioning and test fixtures.
func (v *Vault) Encrypt(seed []byte) (string, error) {
	if len(seed) != seedSize {
		return "", fmt.Errorf("seed must be %d bytes, got %d", seedSize, len(seed))
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	key, err := v.deriveKey(salt)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, seed, nil)

	out := make([]byte, 0, saltSize+nonceSize+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Signer decrypts the agent's signing key and returns a one-shot Signer.
// walletAddress is the agent's stored base58 pubkey; a mismatch between it
// and the decrypted key is a hard error, never a retry with another secret.
func (v *Vault) Signer(encryptedKey, walletAddress string) (*Signer, error) {
	blob, err := base64.StdEncoding.DecodeString(encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(blob) < saltSize+nonceSize+seedSize {
		return nil, ErrMalformedKey
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	sealed := blob[saltSize+nonceSize:]

	key, err := v.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	seed, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	if len(seed) != seedSize {
		zero(seed)
		return nil, ErrMalformedKey
	}

	priv := ed25519.NewKeyFromSeed(seed)
	zero(seed)

	pub := priv.Public().(ed25519.PublicKey)
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		zero(priv)
		return nil, ErrKeyNotOnCurve
	}

	address := base58.Encode(pub)
	if address != walletAddress {
		zero(priv)
		return nil, ErrWalletMismatch
	}

	return &Signer{priv: priv, address: address}, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
