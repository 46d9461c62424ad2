// Package vaultbolt is a vault that keeps sealed secrets in the node
// database.
//
// Every secret is sealed with NaCl secretbox under a master secret
// supplied by the caller, so the database file alone does not reveal
// key material.
package vaultbolt

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"bazil.org/attest/db"
	"bazil.org/attest/vault"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

type Vault struct {
	db     *db.DB
	secret *[32]byte
}

var _ vault.Vault = (*Vault)(nil)

func New(db *db.DB, secret *[32]byte) *Vault {
	return &Vault{
		db:     db,
		secret: secret,
	}
}

// Corrupt is returned when a stored secret fails to open, or opens to
// key material that does not match its key id.
type Corrupt struct {
	Key vault.KeyID
}

func (c Corrupt) Error() string {
	return fmt.Sprintf("corrupt sealed secret: %s", c.Key)
}

var _ = error(Corrupt{})

func (v *Vault) seal(s *vault.Secret) ([]byte, error) {
	plain, err := s.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plain, &nonce, v.secret), nil
}

func (v *Vault) open(key vault.KeyID, sealed []byte) (*vault.Secret, error) {
	if len(sealed) < nonceSize {
		return nil, Corrupt{Key: key}
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed)
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, v.secret)
	if !ok {
		return nil, Corrupt{Key: key}
	}
	var s vault.Secret
	if err := s.UnmarshalBinary(plain); err != nil {
		return nil, err
	}
	// catch records moved between keys
	pub, err := s.PublicKey()
	if err != nil {
		return nil, err
	}
	if vault.KeyIDFor(pub) != key {
		return nil, Corrupt{Key: key}
	}
	return &s, nil
}

func (v *Vault) get(op string, key vault.KeyID) (*vault.Secret, error) {
	var s *vault.Secret
	load := func(tx *db.Tx) error {
		sealed, err := tx.VaultSecrets().Get(string(key))
		if err == db.ErrSecretNotFound {
			return vault.ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		s, err = v.open(key, sealed)
		return err
	}
	if err := v.db.View(load); err != nil {
		return nil, vault.Failed(op, key, err)
	}
	return s, nil
}

func (v *Vault) GenerateKey(ctx context.Context, attrs vault.SecretAttributes) (vault.KeyID, error) {
	s, err := vault.GenerateSecret(nil, attrs)
	if err != nil {
		return "", vault.Failed("generate", "", err)
	}
	return v.Import(s)
}

// Import seals existing key material into the vault.
func (v *Vault) Import(s *vault.Secret) (vault.KeyID, error) {
	pub, err := s.PublicKey()
	if err != nil {
		return "", vault.Failed("import", "", err)
	}
	key := vault.KeyIDFor(pub)
	sealed, err := v.seal(s)
	if err != nil {
		return "", vault.Failed("import", key, err)
	}
	put := func(tx *db.Tx) error {
		return tx.VaultSecrets().Put(string(key), sealed)
	}
	if err := v.db.Update(put); err != nil {
		return "", vault.Failed("import", key, err)
	}
	return key, nil
}

func (v *Vault) PublicKey(ctx context.Context, key vault.KeyID) (vault.PublicKey, error) {
	s, err := v.get("public key", key)
	if err != nil {
		return vault.PublicKey{}, err
	}
	pub, err := s.PublicKey()
	return pub, vault.Failed("public key", key, err)
}

func (v *Vault) SecretAttributes(ctx context.Context, key vault.KeyID) (vault.SecretAttributes, error) {
	s, err := v.get("secret attributes", key)
	if err != nil {
		return vault.SecretAttributes{}, err
	}
	return s.Attributes, nil
}

func (v *Vault) Sign(ctx context.Context, key vault.KeyID, message []byte) ([]byte, error) {
	s, err := v.get("sign", key)
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(message)
	return sig, vault.Failed("sign", key, err)
}

func (v *Vault) Verify(ctx context.Context, pub vault.PublicKey, message, signature []byte) (bool, error) {
	return vault.VerifySignature(pub, message, signature), nil
}

func (v *Vault) DeleteKey(ctx context.Context, key vault.KeyID) error {
	del := func(tx *db.Tx) error {
		err := tx.VaultSecrets().Delete(string(key))
		if err == db.ErrSecretNotFound {
			return vault.ErrKeyNotFound
		}
		return err
	}
	return vault.Failed("delete", key, v.db.Update(del))
}
