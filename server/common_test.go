package server_test

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"bazil.org/attest/config"
	"bazil.org/attest/credential"
	"bazil.org/attest/identity"
	"bazil.org/attest/server"
	"bazil.org/attest/vault/vaultmem"
)

func testConfig(t testing.TB, backend string) *config.Config {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Vault.Backend = backend
	cfg.SweepInterval = 0
	return cfg
}

func open(t testing.TB, cfg *config.Config, opts ...server.AppOption) *server.App {
	app, err := server.New(cfg, opts...)
	if err != nil {
		t.Fatalf("opening node: %v", err)
	}
	return app
}

func newAuthority(t testing.TB) *identity.Identity {
	id, err := identity.Create(context.Background(), identity.Vaults{Identity: vaultmem.New()})
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}
	return id
}

// trustAuthority writes authority to a file in the data directory and
// lists it in cfg.
func trustAuthority(t testing.TB, cfg *config.Config, authority *identity.Identity) {
	buf, err := authority.Export()
	if err != nil {
		t.Fatalf("export authority: %v", err)
	}
	name := "authority-" + authority.Identifier().String()
	if err := ioutil.WriteFile(filepath.Join(cfg.DataDir, name), buf, 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Exchange.Authorities = append(cfg.Exchange.Authorities, name)
}

func issueTo(t testing.TB, authority *identity.Identity, subject identity.Identifier, attrs map[string][]byte) []byte {
	c, err := credential.Issue(context.Background(), authority, subject, attrs, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	buf, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal credential: %v", err)
	}
	return buf
}
