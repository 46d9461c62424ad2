package access_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bazil.org/attest/access"
	"bazil.org/attest/attrstore"
	"bazil.org/attest/credential"
	"bazil.org/attest/identity"
	"bazil.org/attest/routing"
	"bazil.org/attest/vault/vaultmem"
)

func newIdentifier(t testing.TB) identity.Identifier {
	id, err := identity.Create(context.Background(), identity.Vaults{Identity: vaultmem.New()})
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}
	return id.Identifier()
}

func store(t testing.TB, s attrstore.Writer, id identity.Identifier, attrs map[string][]byte) {
	set := &credential.AttributeSet{
		Subject:    id,
		Attributes: attrs,
		Expires:    time.Now().Add(time.Hour),
	}
	if err := s.PutAttributes(context.Background(), id, set); err != nil {
		t.Fatalf("put: %v", err)
	}
}

func message(sender *identity.Identifier) *routing.Message {
	msg := &routing.Message{
		Onward:  routing.NewRoute("counter"),
		Payload: []byte("hi"),
	}
	if sender != nil {
		msg.SetSender(*sender)
	}
	return msg
}

func TestNoSender(t *testing.T) {
	s := attrstore.NewMemory()
	ac := access.NewCredentialAccessControl(nil, s)
	if ac.IsAuthorized(context.Background(), message(nil)) {
		t.Error("message without sender was authorized")
	}
}

func TestNoAttributes(t *testing.T) {
	s := attrstore.NewMemory()
	ac := access.NewCredentialAccessControl(nil, s)
	id := newIdentifier(t)
	if ac.IsAuthorized(context.Background(), message(&id)) {
		t.Error("sender without attributes was authorized")
	}
}

func TestRequired(t *testing.T) {
	s := attrstore.NewMemory()
	required := []access.Attribute{
		{Name: "role", Value: []byte("member")},
		{Name: "project", Value: []byte("attest")},
	}
	ac := access.NewCredentialAccessControl(required, attrstore.ReadOnly(s))

	member := newIdentifier(t)
	store(t, s, member, map[string][]byte{
		"role":    []byte("member"),
		"project": []byte("attest"),
		"other":   []byte("ignored"),
	})
	partial := newIdentifier(t)
	store(t, s, partial, map[string][]byte{
		"role": []byte("member"),
	})
	wrong := newIdentifier(t)
	store(t, s, wrong, map[string][]byte{
		"role":    []byte("guest"),
		"project": []byte("attest"),
	})

	ctx := context.Background()
	if !ac.IsAuthorized(ctx, message(&member)) {
		t.Error("member was refused")
	}
	if ac.IsAuthorized(ctx, message(&partial)) {
		t.Error("sender missing an attribute was authorized")
	}
	if ac.IsAuthorized(ctx, message(&wrong)) {
		t.Error("sender with a wrong value was authorized")
	}
}

func TestExpiredAttributes(t *testing.T) {
	s := attrstore.NewMemory()
	id := newIdentifier(t)
	set := &credential.AttributeSet{
		Subject:    id,
		Attributes: map[string][]byte{"role": []byte("member")},
		Expires:    time.Now().Add(-time.Second),
	}
	if err := s.PutAttributes(context.Background(), id, set); err != nil {
		t.Fatalf("put: %v", err)
	}
	ac := access.NewCredentialAccessControl(nil, s)
	if ac.IsAuthorized(context.Background(), message(&id)) {
		t.Error("expired attributes authorized the sender")
	}
}

type failingReader struct{}

func (failingReader) GetAttributes(ctx context.Context, id identity.Identifier) (*credential.AttributeSet, error) {
	return nil, errors.New("beep")
}

func TestStorageError(t *testing.T) {
	ac := access.NewCredentialAccessControl(nil, failingReader{})
	id := newIdentifier(t)
	if ac.IsAuthorized(context.Background(), message(&id)) {
		t.Error("storage error authorized the sender")
	}
}

func TestRequiredIsCopied(t *testing.T) {
	s := attrstore.NewMemory()
	id := newIdentifier(t)
	store(t, s, id, map[string][]byte{"role": []byte("member")})
	required := []access.Attribute{{Name: "role", Value: []byte("member")}}
	ac := access.NewCredentialAccessControl(required, s)
	required[0].Name = "admin"
	if !ac.IsAuthorized(context.Background(), message(&id)) {
		t.Error("changing the caller's slice changed the access control")
	}
}
