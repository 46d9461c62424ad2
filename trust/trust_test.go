package trust_test

import (
	"context"
	"errors"
	"testing"

	"bazil.org/attest/identity"
	"bazil.org/attest/trust"
)

var (
	alice = identity.Identifier{0x01}
	bob   = identity.Identifier{0x02}
)

func check(t *testing.T, p trust.Policy, id identity.Identifier) bool {
	t.Helper()
	ok, err := p.Check(context.Background(), id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	return ok
}

func TestAllowAll(t *testing.T) {
	if !check(t, trust.AllowAll, alice) {
		t.Error("AllowAll rejected")
	}
}

func TestIdentifiers(t *testing.T) {
	p := trust.Trusted(alice)
	if !check(t, p, alice) {
		t.Error("listed identifier rejected")
	}
	if check(t, p, bob) {
		t.Error("unlisted identifier accepted")
	}
	if check(t, trust.Trusted(), alice) {
		t.Error("empty allow-list accepted")
	}
}

func TestCombinators(t *testing.T) {
	onlyBob := trust.Func(func(ctx context.Context, id identity.Identifier) (bool, error) {
		return id == bob, nil
	})
	if check(t, trust.All(trust.Trusted(alice, bob), onlyBob), alice) {
		t.Error("All accepted when one policy rejected")
	}
	if !check(t, trust.All(trust.Trusted(alice, bob), onlyBob), bob) {
		t.Error("All rejected when every policy accepted")
	}
	if !check(t, trust.Any(trust.Trusted(alice), onlyBob), bob) {
		t.Error("Any rejected when one policy accepted")
	}
	if check(t, trust.Any(), alice) {
		t.Error("empty Any accepted")
	}
}

func TestFuncError(t *testing.T) {
	boom := errors.New("boom")
	p := trust.All(trust.Func(func(ctx context.Context, id identity.Identifier) (bool, error) {
		return true, boom
	}))
	ok, err := p.Check(context.Background(), alice)
	if ok {
		t.Error("accepted despite error")
	}
	if g, e := err, boom; g != e {
		t.Errorf("wrong error: %v != %v", g, e)
	}
}
