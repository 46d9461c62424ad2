package credential_test

import (
	"context"
	"flag"
	"math/rand"
	"testing"
	"testing/quick"

	"bazil.org/attest/identity"
	"bazil.org/attest/vault/vaultmem"
	entropy "github.com/tv42/seed"
)

var seed uint64

func init() {
	// keep this as uint64 just because negative numbers are uglier and can be confused with -opt
	flag.Uint64Var(&seed, "seed", 0, "seed to initialize random number generator")
}

func quickConfig(t testing.TB) *quick.Config {
	if seed == 0 {
		seed = uint64(entropy.Seed())
	}
	t.Logf("Seed is %d", seed)
	return &quick.Config{
		MaxCount: 50,
		Rand:     rand.New(rand.NewSource(int64(seed))),
	}
}

func newIdentity(t testing.TB) *identity.Identity {
	id, err := identity.Create(context.Background(), identity.Vaults{Identity: vaultmem.New()})
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}
	return id
}
