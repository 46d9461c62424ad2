package vaultbolt_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bazil.org/attest/db"
	"bazil.org/attest/vault"
	"bazil.org/attest/vault/vaultbolt"
	"bazil.org/attest/vault/vaulttest"
)

func openDB(t *testing.T) *db.DB {
	d, err := db.Open(filepath.Join(t.TempDir(), "vault.bolt"), 0600, nil)
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestCapabilities(t *testing.T) {
	secret := &[32]byte{1, 2, 3}
	vaulttest.Check(t, vaultbolt.New(openDB(t), secret))
}

func TestWrongMasterSecret(t *testing.T) {
	d := openDB(t)
	ctx := context.Background()
	v1 := vaultbolt.New(d, &[32]byte{1})
	key, err := v1.GenerateKey(ctx, vault.SecretAttributes{Type: vault.Ed25519, Persistent: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	v2 := vaultbolt.New(d, &[32]byte{2})
	_, err = v2.Sign(ctx, key, []byte("x"))
	if !errors.Is(err, vault.ErrOperationFailed) {
		t.Fatalf("expected ErrOperationFailed, got %v", err)
	}
	var corrupt vaultbolt.Corrupt
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected Corrupt, got %v", err)
	}
	if g, e := corrupt.Key, key; g != e {
		t.Errorf("wrong key in error: %q != %q", g, e)
	}
}

func TestPersistsAcrossInstances(t *testing.T) {
	d := openDB(t)
	ctx := context.Background()
	secret := &[32]byte{7}
	key, err := vaultbolt.New(d, secret).GenerateKey(ctx, vault.SecretAttributes{Type: vault.NistP256, Persistent: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	v := vaultbolt.New(d, secret)
	sig, err := v.Sign(ctx, key, []byte("msg"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	pub, err := v.PublicKey(ctx, key)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	if !vault.VerifySignature(pub, []byte("msg"), sig) {
		t.Error("signature did not verify")
	}
}
