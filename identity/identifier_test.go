package identity_test

import (
	"testing"

	"bazil.org/attest/identity"
	"bazil.org/attest/vault"
)

var sampleID = identity.Identifier{
	0x4d, 0x0e, 0x62, 0x5e, 0xff, 0x41, 0x00, 0x6a,
	0x18, 0xb3, 0xbf, 0xda, 0x35, 0xb1, 0x40, 0xfc,
	0xad, 0x91, 0x78, 0xfe,
}

func TestIdentifierString(t *testing.T) {
	if g, e := sampleID.String(), "Ijw8grzz9erygwgfuz9pdmcky91s3n686"; g != e {
		t.Errorf("wrong identifier output: %q != %q", g, e)
	}
}

func TestIdentifierSet(t *testing.T) {
	var id identity.Identifier
	if err := id.Set("Ijw8grzz9erygwgfuz9pdmcky91s3n686"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if g, e := id, sampleID; g != e {
		t.Errorf("wrong identifier value: %v != %v", g, e)
	}
}

func TestIdentifierSetBadPrefix(t *testing.T) {
	var id identity.Identifier
	err := id.Set("jw8grzz9erygwgfuz9pdmcky91s3n686")
	if err == nil {
		t.Fatal("expected an error from Set")
	}
	if g, e := err.Error(), "not a valid identifier: missing I prefix"; g != e {
		t.Errorf("wrong error message: %q != %q", g, e)
	}
}

func TestIdentifierSetBadShort(t *testing.T) {
	var id identity.Identifier
	err := id.Set("Iybnd")
	if err == nil {
		t.Fatal("expected an error from Set")
	}
}

func TestIdentifierForDependsOnType(t *testing.T) {
	data := make([]byte, 32)
	a := identity.IdentifierFor(vault.PublicKey{Type: vault.Ed25519, Data: data})
	b := identity.IdentifierFor(vault.PublicKey{Type: vault.NistP256, Data: data})
	if a == b {
		t.Errorf("key type does not affect identifier: %v", a)
	}
	if again := identity.IdentifierFor(vault.PublicKey{Type: vault.Ed25519, Data: data}); again != a {
		t.Errorf("identifier not stable: %v != %v", again, a)
	}
}
