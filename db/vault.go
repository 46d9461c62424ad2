package db

import (
	"errors"

	"bazil.org/attest/tokens"
	"github.com/boltdb/bolt"
)

var ErrSecretNotFound = errors.New("vault secret not found")

var bucketVault = []byte(tokens.BucketVault)

func (tx *Tx) initVaultSecrets() error {
	_, err := tx.CreateBucketIfNotExists(bucketVault)
	return err
}

func (tx *Tx) VaultSecrets() *VaultSecrets {
	return &VaultSecrets{tx.Bucket(bucketVault)}
}

// VaultSecrets holds sealed key material, by vault key id. The
// database never sees plaintext secrets.
type VaultSecrets struct {
	b *bolt.Bucket
}

// Get returns the sealed secret for key id.
//
// If no such secret exists, returns ErrSecretNotFound.
func (v *VaultSecrets) Get(id string) ([]byte, error) {
	sealed := v.b.Get([]byte(id))
	if sealed == nil {
		return nil, ErrSecretNotFound
	}
	return sealed, nil
}

func (v *VaultSecrets) Put(id string, sealed []byte) error {
	return v.b.Put([]byte(id), sealed)
}

// Delete removes the secret for key id.
//
// If no such secret exists, returns ErrSecretNotFound.
func (v *VaultSecrets) Delete(id string) error {
	k := []byte(id)
	if v.b.Get(k) == nil {
		return ErrSecretNotFound
	}
	return v.b.Delete(k)
}
