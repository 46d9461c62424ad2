// Package vaulttest checks that a vault backend implements the
// vault capability set.
package vaulttest

import (
	"context"
	"errors"
	"testing"

	"bazil.org/attest/vault"
)

// Check runs the capability checks against v. The vault must be
// empty of the keys it generates here, but may hold others.
func Check(t *testing.T, v vault.Vault) {
	t.Run("SignVerify", func(t *testing.T) {
		for _, typ := range []vault.SecretType{vault.Ed25519, vault.NistP256} {
			checkSignVerify(t, v, typ)
		}
	})
	t.Run("SecretAttributes", func(t *testing.T) { checkAttributes(t, v) })
	t.Run("Delete", func(t *testing.T) { checkDelete(t, v) })
	t.Run("Missing", func(t *testing.T) { checkMissing(t, v) })
}

func checkSignVerify(t *testing.T, v vault.Vault, typ vault.SecretType) {
	ctx := context.Background()
	key, err := v.GenerateKey(ctx, vault.SecretAttributes{Type: typ})
	if err != nil {
		t.Fatalf("generate %v: %v", typ, err)
	}
	pub, err := v.PublicKey(ctx, key)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	if g, e := pub.Type, typ; g != e {
		t.Errorf("wrong public key type: %v != %v", g, e)
	}
	msg := []byte("hello, world")
	sig, err := v.Sign(ctx, key, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ok, err := v.Verify(ctx, pub, msg, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Errorf("%v signature did not verify", typ)
	}
	ok, err = v.Verify(ctx, pub, []byte("hello, world!"), sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Errorf("%v signature verified over the wrong message", typ)
	}
}

func checkAttributes(t *testing.T, v vault.Vault) {
	ctx := context.Background()
	want := vault.SecretAttributes{Type: vault.NistP256, Persistent: true}
	key, err := v.GenerateKey(ctx, want)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	got, err := v.SecretAttributes(ctx, key)
	if err != nil {
		t.Fatalf("secret attributes: %v", err)
	}
	if got != want {
		t.Errorf("wrong attributes: %+v != %+v", got, want)
	}
}

func checkDelete(t *testing.T, v vault.Vault) {
	ctx := context.Background()
	key, err := v.GenerateKey(ctx, vault.SecretAttributes{Type: vault.Ed25519})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := v.DeleteKey(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := v.Sign(ctx, key, []byte("x")); !errors.Is(err, vault.ErrOperationFailed) {
		t.Errorf("sign after delete: expected ErrOperationFailed, got %v", err)
	}
	if err := v.DeleteKey(ctx, key); !errors.Is(err, vault.ErrOperationFailed) {
		t.Errorf("second delete: expected ErrOperationFailed, got %v", err)
	}
}

func checkMissing(t *testing.T, v vault.Vault) {
	ctx := context.Background()
	_, err := v.PublicKey(ctx, "ed25519-nosuchkey")
	if !errors.Is(err, vault.ErrOperationFailed) {
		t.Errorf("expected ErrOperationFailed, got %v", err)
	}
}
