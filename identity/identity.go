// Package identity manages cryptographic identities: a stable
// identifier backed by a primary key held in a vault, plus a key used
// to sign credentials.
//
// Identities can be exported as a self-certifying attestation and
// imported by peers, who learn the identifier and public keys without
// gaining any vault access.
package identity

import (
	"context"
	"errors"
	"sync"

	"bazil.org/attest/tokens"
	"bazil.org/attest/vault"
)

// ErrAuthenticationFailed is returned when an identity attestation,
// or a signature claimed to be made by an identity, does not verify.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Vaults assigns vaults to key roles. Credential may be nil, in which
// case the identity vault holds both keys.
type Vaults struct {
	Identity   vault.Vault
	Credential vault.Vault
}

func (v Vaults) credential() vault.Vault {
	if v.Credential == nil {
		return v.Identity
	}
	return v.Credential
}

func (v Vaults) separate() bool {
	return v.Credential != nil && v.Credential != v.Identity
}

// Identity is a local identity, able to sign through its vaults.
type Identity struct {
	vaults  Vaults
	id      Identifier
	key     vault.KeyID
	pub     vault.PublicKey
	credKey vault.KeyID
	credPub vault.PublicKey
	export  []byte

	mu         sync.Mutex
	credential []byte
}

// Create makes a new identity with a random Ed25519 primary key.
func Create(ctx context.Context, vaults Vaults) (*Identity, error) {
	return NewBuilder(vaults).Build(ctx)
}

func (i *Identity) Identifier() Identifier {
	return i.id
}

func (i *Identity) KeyID() vault.KeyID {
	return i.key
}

func (i *Identity) PublicKey() vault.PublicKey {
	return i.pub
}

// CredentialKeyID returns the key used to sign credentials. It is the
// primary key unless a separate credential key was provisioned.
func (i *Identity) CredentialKeyID() vault.KeyID {
	return i.credKey
}

func (i *Identity) CredentialPublicKey() vault.PublicKey {
	return i.credPub
}

func (i *Identity) Vaults() Vaults {
	return i.vaults
}

// Sign signs message with the primary key.
func (i *Identity) Sign(ctx context.Context, message []byte) ([]byte, error) {
	return i.vaults.Identity.Sign(ctx, i.key, message)
}

// SignCredential signs message with the credential key.
func (i *Identity) SignCredential(ctx context.Context, message []byte) ([]byte, error) {
	return i.vaults.credential().Sign(ctx, i.credKey, message)
}

// Export returns the attestation peers pass to Import.
func (i *Identity) Export() ([]byte, error) {
	return append([]byte(nil), i.export...), nil
}

// ToPublic returns the public half of i, with no vault access.
func (i *Identity) ToPublic() *PublicIdentity {
	return &PublicIdentity{
		Identifier:    i.id,
		PublicKey:     i.pub,
		CredentialKey: i.credPub,
		export:        i.export,
	}
}

// SetCredential attaches an issued credential, in its serialized
// form, for later presentation to peers.
func (i *Identity) SetCredential(c []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.credential = append([]byte(nil), c...)
}

// Credential returns a copy of the attached credential, or nil.
func (i *Identity) Credential() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]byte(nil), i.credential...)
}

// Delete removes the keys of i from their vaults. The identity is
// unusable afterwards.
func (i *Identity) Delete(ctx context.Context) error {
	if i.credKey != i.key || i.vaults.separate() {
		if err := i.vaults.credential().DeleteKey(ctx, i.credKey); err != nil {
			return err
		}
	}
	return i.vaults.Identity.DeleteKey(ctx, i.key)
}

// PublicIdentity is a peer or authority identity learned through
// Import.
type PublicIdentity struct {
	Identifier    Identifier
	PublicKey     vault.PublicKey
	CredentialKey vault.PublicKey
	export        []byte
}

// Export returns the attestation this identity was imported from.
func (p *PublicIdentity) Export() []byte {
	return append([]byte(nil), p.export...)
}

// Verify checks a signature made with the primary key.
func (p *PublicIdentity) Verify(message, signature []byte) bool {
	return vault.VerifySignature(p.PublicKey, message, signature)
}

// VerifyCredential checks a signature made with the credential key.
func (p *PublicIdentity) VerifyCredential(message, signature []byte) bool {
	return vault.VerifySignature(p.CredentialKey, message, signature)
}

func proofMessage(id Identifier, pub vault.PublicKey) []byte {
	return keyMessage(tokens.SignIdentityProof, id, pub)
}

func credentialKeyMessage(id Identifier, pub vault.PublicKey) []byte {
	return keyMessage(tokens.SignCredentialKey, id, pub)
}

func keyMessage(context string, id Identifier, pub vault.PublicKey) []byte {
	buf := make([]byte, 0, len(context)+Size+1+len(pub.Data))
	buf = append(buf, context...)
	buf = append(buf, id[:]...)
	buf = append(buf, byte(pub.Type))
	buf = append(buf, pub.Data...)
	return buf
}
