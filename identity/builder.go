package identity

import (
	"context"
	"fmt"

	"bazil.org/attest/vault"
)

// Builder provisions an identity's keys.
type Builder struct {
	vaults  Vaults
	key     vault.KeyID
	keyType vault.SecretType
	credKey vault.KeyID
}

// NewBuilder starts an identity that will use a random Ed25519
// primary key unless told otherwise.
func NewBuilder(vaults Vaults) *Builder {
	return &Builder{
		vaults:  vaults,
		keyType: vault.Ed25519,
	}
}

// WithExistingKey uses a key already present in the identity vault
// as the primary key. The key must be of type typ.
func (b *Builder) WithExistingKey(key vault.KeyID, typ vault.SecretType) *Builder {
	b.key = key
	b.keyType = typ
	return b
}

// WithRandomKey generates a fresh primary key of type typ.
func (b *Builder) WithRandomKey(typ vault.SecretType) *Builder {
	b.key = ""
	b.keyType = typ
	return b
}

// WithExistingCredentialKey uses a key already present in the
// credential vault for signing credentials.
func (b *Builder) WithExistingCredentialKey(key vault.KeyID) *Builder {
	b.credKey = key
	return b
}

// Build provisions the keys and signs the identity attestation.
func (b *Builder) Build(ctx context.Context) (*Identity, error) {
	if b.vaults.Identity == nil {
		return nil, fmt.Errorf("identity vault is required")
	}
	if !b.keyType.Valid() {
		return nil, vault.ErrUnsupportedType
	}

	key := b.key
	if key == "" {
		var err error
		key, err = b.vaults.Identity.GenerateKey(ctx, vault.SecretAttributes{Type: b.keyType, Persistent: true})
		if err != nil {
			return nil, err
		}
	} else {
		attrs, err := b.vaults.Identity.SecretAttributes(ctx, key)
		if err != nil {
			return nil, err
		}
		if attrs.Type != b.keyType {
			return nil, fmt.Errorf("key %s is %v, not %v", key, attrs.Type, b.keyType)
		}
	}
	pub, err := b.vaults.Identity.PublicKey(ctx, key)
	if err != nil {
		return nil, err
	}

	i := &Identity{
		vaults:  b.vaults,
		id:      IdentifierFor(pub),
		key:     key,
		pub:     pub,
		credKey: key,
		credPub: pub,
	}

	switch {
	case b.credKey != "":
		i.credKey = b.credKey
	case b.vaults.separate():
		i.credKey, err = b.vaults.Credential.GenerateKey(ctx, vault.SecretAttributes{Type: vault.Ed25519, Persistent: true})
		if err != nil {
			return nil, err
		}
	}
	if i.credKey != i.key || b.vaults.separate() {
		i.credPub, err = b.vaults.credential().PublicKey(ctx, i.credKey)
		if err != nil {
			return nil, err
		}
	}

	i.export, err = i.attest(ctx)
	if err != nil {
		return nil, err
	}
	return i, nil
}
