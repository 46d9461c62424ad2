// Package vaultmem is a vault that keeps keys in process memory.
package vaultmem

import (
	"context"
	"sync"

	"bazil.org/attest/vault"
)

type Vault struct {
	mu   sync.Mutex
	keys map[vault.KeyID]*vault.Secret
}

var _ vault.Vault = (*Vault)(nil)

func New() *Vault {
	return &Vault{
		keys: make(map[vault.KeyID]*vault.Secret),
	}
}

func (v *Vault) get(op string, key vault.KeyID) (*vault.Secret, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.keys[key]
	if !ok {
		return nil, vault.Failed(op, key, vault.ErrKeyNotFound)
	}
	return s, nil
}

func (v *Vault) GenerateKey(ctx context.Context, attrs vault.SecretAttributes) (vault.KeyID, error) {
	secret, err := vault.GenerateSecret(nil, attrs)
	if err != nil {
		return "", vault.Failed("generate", "", err)
	}
	return v.Import(secret)
}

// Import adds existing key material to the vault.
func (v *Vault) Import(secret *vault.Secret) (vault.KeyID, error) {
	pub, err := secret.PublicKey()
	if err != nil {
		return "", vault.Failed("import", "", err)
	}
	id := vault.KeyIDFor(pub)
	v.mu.Lock()
	v.keys[id] = secret
	v.mu.Unlock()
	return id, nil
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
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.keys[key]; !ok {
		return vault.Failed("delete", key, vault.ErrKeyNotFound)
	}
	delete(v.keys, key)
	return nil
}
