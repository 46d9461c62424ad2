package identity

import (
	"context"
	"fmt"

	"bazil.org/attest/codec"
	"bazil.org/attest/vault"
)

type exportedKey struct {
	Type      vault.SecretType `cbor:"1,keyasint"`
	PublicKey []byte           `cbor:"2,keyasint"`
	Signature []byte           `cbor:"3,keyasint"`
}

// exported is the identity attestation. The credential key is absent
// when the primary key signs credentials.
type exported struct {
	Identifier    []byte           `cbor:"1,keyasint"`
	KeyType       vault.SecretType `cbor:"2,keyasint"`
	PublicKey     []byte           `cbor:"3,keyasint"`
	Proof         []byte           `cbor:"4,keyasint"`
	CredentialKey *exportedKey     `cbor:"5,keyasint,omitempty"`
}

func (i *Identity) attest(ctx context.Context) ([]byte, error) {
	proof, err := i.Sign(ctx, proofMessage(i.id, i.pub))
	if err != nil {
		return nil, err
	}
	e := exported{
		Identifier: i.id[:],
		KeyType:    i.pub.Type,
		PublicKey:  i.pub.Data,
		Proof:      proof,
	}
	if !i.credPub.Equal(i.pub) {
		sig, err := i.Sign(ctx, credentialKeyMessage(i.id, i.credPub))
		if err != nil {
			return nil, err
		}
		e.CredentialKey = &exportedKey{
			Type:      i.credPub.Type,
			PublicKey: i.credPub.Data,
			Signature: sig,
		}
	}
	return codec.Marshal(e)
}

func authFailed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrAuthenticationFailed}, args...)...)
}

// Import verifies an identity attestation. If expected is not nil,
// the attestation must be for that identifier.
//
// Every failure matches ErrAuthenticationFailed.
func Import(expected *Identifier, blob []byte) (*PublicIdentity, error) {
	var e exported
	if err := codec.Unmarshal(blob, &e); err != nil {
		return nil, authFailed("bad identity encoding: %v", err)
	}
	if !e.KeyType.Valid() {
		return nil, authFailed("unsupported key type %d", e.KeyType)
	}
	var claimed Identifier
	if err := claimed.UnmarshalBinary(e.Identifier); err != nil {
		return nil, authFailed("%v", err)
	}
	pub := vault.PublicKey{Type: e.KeyType, Data: e.PublicKey}
	id := IdentifierFor(pub)
	if id != claimed {
		return nil, authFailed("identifier %v does not match key", claimed)
	}
	if expected != nil && *expected != id {
		return nil, authFailed("got identity %v, expected %v", id, *expected)
	}
	if !vault.VerifySignature(pub, proofMessage(id, pub), e.Proof) {
		return nil, authFailed("bad proof of possession for %v", id)
	}

	p := &PublicIdentity{
		Identifier:    id,
		PublicKey:     pub,
		CredentialKey: pub,
		export:        append([]byte(nil), blob...),
	}
	if ck := e.CredentialKey; ck != nil {
		if !ck.Type.Valid() {
			return nil, authFailed("unsupported credential key type %d", ck.Type)
		}
		credPub := vault.PublicKey{Type: ck.Type, Data: ck.PublicKey}
		if !vault.VerifySignature(pub, credentialKeyMessage(id, credPub), ck.Signature) {
			return nil, authFailed("bad credential key attestation for %v", id)
		}
		p.CredentialKey = credPub
	}
	return p, nil
}
