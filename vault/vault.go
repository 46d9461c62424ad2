// Package vault defines the cryptographic capability set used by
// identities: key generation, signing, verification and key deletion.
//
// Any type implementing Vault is interchangeable. Backends live in
// subpackages: vaultmem keeps keys in memory, vaultbolt seals them in
// a Bolt database, vaultfile keeps one age-encrypted file per key, and
// vaultrpc talks to a vault served over gRPC by another process or
// machine.
//
// Private key material never leaves a Vault through this interface;
// callers only ever hold a KeyID.
package vault

import (
	"context"
	"fmt"
)

// SecretType is the algorithm of a key held in a vault.
type SecretType uint8

const (
	// Ed25519 keys sign with PureEdDSA.
	Ed25519 SecretType = 1 + iota
	// NistP256 keys sign with ECDSA over SHA-256, ASN.1 encoded.
	NistP256
)

func (t SecretType) String() string {
	switch t {
	case Ed25519:
		return "ed25519"
	case NistP256:
		return "p256"
	}
	return fmt.Sprintf("SecretType(%d)", uint8(t))
}

// Valid reports whether t names a supported algorithm.
func (t SecretType) Valid() bool {
	return t == Ed25519 || t == NistP256
}

// SecretAttributes describe a key at generation time.
type SecretAttributes struct {
	Type SecretType
	// Persistent asks the backend to keep the key across restarts,
	// where the backend distinguishes.
	Persistent bool
}

// KeyID names a key inside one vault.
type KeyID string

// PublicKey is the public half of a vault key.
//
// For Ed25519, Data is the 32 byte public key. For NistP256, Data is
// the uncompressed SEC 1 point.
type PublicKey struct {
	Type SecretType
	Data []byte
}

// Equal reports whether p and o are the same key.
func (p PublicKey) Equal(o PublicKey) bool {
	if p.Type != o.Type || len(p.Data) != len(o.Data) {
		return false
	}
	for i := range p.Data {
		if p.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// Vault is the capability set an identity needs from a key store.
//
// Every method may block on a remote backend and must honor ctx.
// Failures of the backend itself are reported as
// *OperationFailedError.
type Vault interface {
	// GenerateKey creates a new key and returns its id.
	GenerateKey(ctx context.Context, attrs SecretAttributes) (KeyID, error)

	// PublicKey returns the public half of key.
	PublicKey(ctx context.Context, key KeyID) (PublicKey, error)

	// SecretAttributes returns the attributes key was created with.
	SecretAttributes(ctx context.Context, key KeyID) (SecretAttributes, error)

	// Sign signs message with key.
	Sign(ctx context.Context, key KeyID, message []byte) ([]byte, error)

	// Verify checks signature over message under pub. A signature
	// that does not verify is (false, nil), not an error.
	Verify(ctx context.Context, pub PublicKey, message, signature []byte) (bool, error)

	// DeleteKey removes key. Deleting a missing key fails.
	DeleteKey(ctx context.Context, key KeyID) error
}
