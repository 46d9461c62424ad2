package attrstore

import (
	"context"
	"flag"
	"math/rand"
	"path/filepath"
	"testing"
	"testing/quick"
	"time"

	"bazil.org/attest/db"
	"bazil.org/attest/identity"
	"bazil.org/attest/vault/vaultmem"
	"github.com/boltdb/bolt"
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
		Rand: rand.New(rand.NewSource(int64(seed))),
	}
}

func newTestDB(t testing.TB) *db.DB {
	path := filepath.Join(t.TempDir(), "attest-test.bolt")
	d, err := db.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Nanosecond})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func newIdentifier(t testing.TB) identity.Identifier {
	id, err := identity.Create(context.Background(), identity.Vaults{Identity: vaultmem.New()})
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}
	return id.Identifier()
}
