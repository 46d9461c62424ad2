// Package credential issues and verifies signed attribute
// statements.
//
// A credential states that an issuer vouches for a set of attributes
// about a subject, until an expiry time. It is signed with the
// issuer's credential key, and trusted only when that issuer is one of
// the verifier's authorities.
package credential

import (
	"context"
	"errors"
	"time"

	"bazil.org/attest/codec"
	"bazil.org/attest/identity"
	"bazil.org/attest/tokens"
)

var (
	ErrInvalidSignature = errors.New("credential signature is invalid")
	ErrExpired          = errors.New("credential has expired")
	ErrUntrustedIssuer  = errors.New("credential issuer is not trusted")
	ErrSubjectMismatch  = errors.New("credential subject does not match")
)

// SchemaID tags the meaning of a credential's attribute set.
type SchemaID uint64

// Credential is a signed attribute statement.
type Credential struct {
	Subject    identity.Identifier
	Issuer     identity.Identifier
	SchemaID   SchemaID
	Attributes map[string][]byte
	Expires    time.Time
	Signature  []byte
}

// AttributeSet is what verifying a credential proves.
type AttributeSet struct {
	Subject    identity.Identifier
	Issuer     identity.Identifier
	SchemaID   SchemaID
	Attributes map[string][]byte
	Expires    time.Time
}

// Get returns the value of attribute name.
func (a *AttributeSet) Get(name string) ([]byte, bool) {
	v, ok := a.Attributes[name]
	return v, ok
}

// Expired reports whether the set is no longer valid at now.
func (a *AttributeSet) Expired(now time.Time) bool {
	return !now.Before(a.Expires)
}

// Clone returns a deep copy of a.
func (a *AttributeSet) Clone() *AttributeSet {
	c := *a
	c.Attributes = copyAttributes(a.Attributes)
	return &c
}

func copyAttributes(attrs map[string][]byte) map[string][]byte {
	c := make(map[string][]byte, len(attrs))
	for k, v := range attrs {
		c[k] = append([]byte(nil), v...)
	}
	return c
}

// wire is the serialized form. The signature covers the encoding of
// the same struct with Signature empty.
type wire struct {
	Subject    []byte            `cbor:"1,keyasint"`
	Issuer     []byte            `cbor:"2,keyasint"`
	SchemaID   uint64            `cbor:"3,keyasint"`
	Attributes map[string][]byte `cbor:"4,keyasint"`
	Expires    int64             `cbor:"5,keyasint"`
	Signature  []byte            `cbor:"6,keyasint,omitempty"`
}

func (c *Credential) wire() *wire {
	attrs := c.Attributes
	if attrs == nil {
		attrs = map[string][]byte{}
	}
	return &wire{
		Subject:    c.Subject[:],
		Issuer:     c.Issuer[:],
		SchemaID:   uint64(c.SchemaID),
		Attributes: attrs,
		Expires:    c.Expires.Unix(),
		Signature:  c.Signature,
	}
}

// signedMessage is the byte string the issuer signs.
func (c *Credential) signedMessage() ([]byte, error) {
	w := c.wire()
	w.Signature = nil
	payload, err := codec.Marshal(w)
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, len(tokens.SignCredential)+len(payload))
	msg = append(msg, tokens.SignCredential...)
	msg = append(msg, payload...)
	return msg, nil
}

// MarshalBinary returns the serialized credential.
func (c *Credential) MarshalBinary() ([]byte, error) {
	return codec.Marshal(c.wire())
}

// Decode parses a serialized credential. It does not verify it.
func Decode(data []byte) (*Credential, error) {
	var w wire
	if err := codec.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	c := &Credential{
		SchemaID:   SchemaID(w.SchemaID),
		Attributes: w.Attributes,
		Expires:    time.Unix(w.Expires, 0),
		Signature:  w.Signature,
	}
	if c.Attributes == nil {
		c.Attributes = map[string][]byte{}
	}
	if err := c.Subject.UnmarshalBinary(w.Subject); err != nil {
		return nil, err
	}
	if err := c.Issuer.UnmarshalBinary(w.Issuer); err != nil {
		return nil, err
	}
	return c, nil
}

// Issue creates a credential for subject signed by issuer, valid for
// ttl from now. Use Builder to set a schema.
func Issue(ctx context.Context, issuer *identity.Identity, subject identity.Identifier, attrs map[string][]byte, ttl time.Duration) (*Credential, error) {
	return IssueAt(ctx, issuer, subject, attrs, ttl, time.Now())
}

// IssueAt is Issue with an explicit clock.
func IssueAt(ctx context.Context, issuer *identity.Identity, subject identity.Identifier, attrs map[string][]byte, ttl time.Duration, now time.Time) (*Credential, error) {
	return issue(ctx, issuer, subject, 0, attrs, now.Add(ttl))
}

func issue(ctx context.Context, issuer *identity.Identity, subject identity.Identifier, schema SchemaID, attrs map[string][]byte, expires time.Time) (*Credential, error) {
	c := &Credential{
		Subject:    subject,
		Issuer:     issuer.Identifier(),
		SchemaID:   schema,
		Attributes: copyAttributes(attrs),
		// wire precision is one second; round up so a fresh credential
		// is never already expired
		Expires: expires.Add(time.Second - 1).Truncate(time.Second),
	}
	msg, err := c.signedMessage()
	if err != nil {
		return nil, err
	}
	c.Signature, err = issuer.SignCredential(ctx, msg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Verify checks c against the trusted authorities at the current
// time. If expected is not nil, the credential must be about that
// subject.
func Verify(expected *identity.Identifier, authorities []*identity.PublicIdentity, c *Credential) (*AttributeSet, error) {
	return VerifyAt(expected, authorities, c, time.Now())
}

// VerifyAt is Verify with an explicit clock.
//
// Checks run in a fixed order: expiry, issuer trust, signature,
// subject. The first failure is returned.
func VerifyAt(expected *identity.Identifier, authorities []*identity.PublicIdentity, c *Credential, now time.Time) (*AttributeSet, error) {
	if !now.Before(c.Expires) {
		return nil, ErrExpired
	}
	var issuer *identity.PublicIdentity
	for _, a := range authorities {
		if a.Identifier == c.Issuer {
			issuer = a
			break
		}
	}
	if issuer == nil {
		return nil, ErrUntrustedIssuer
	}
	msg, err := c.signedMessage()
	if err != nil {
		return nil, err
	}
	if !issuer.VerifyCredential(msg, c.Signature) {
		return nil, ErrInvalidSignature
	}
	if expected != nil && *expected != c.Subject {
		return nil, ErrSubjectMismatch
	}
	set := &AttributeSet{
		Subject:    c.Subject,
		Issuer:     c.Issuer,
		SchemaID:   c.SchemaID,
		Attributes: copyAttributes(c.Attributes),
		Expires:    c.Expires,
	}
	return set, nil
}
