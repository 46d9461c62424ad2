package server

import (
	"crypto/rand"
	"fmt"
	"io/ioutil"
	"os"

	"google.golang.org/grpc"

	"bazil.org/attest/config"
	"bazil.org/attest/util/edtls"
	"bazil.org/attest/util/grpcedtls"
	"bazil.org/attest/util/grpcunix"
	"bazil.org/attest/vault"
	"bazil.org/attest/vault/vaultbolt"
	"bazil.org/attest/vault/vaultfile"
	"bazil.org/attest/vault/vaultmem"
	"bazil.org/attest/vault/vaultrpc"
)

// loadOrCreateSecret reads the 32 byte secret at path, generating and
// saving one if the file does not exist.
func loadOrCreateSecret(path string) (*[32]byte, error) {
	var secret [32]byte
	buf, err := ioutil.ReadFile(path)
	switch {
	case err == nil:
		if len(buf) != len(secret) {
			return nil, fmt.Errorf("vault secret is the wrong size: length=%d", len(buf))
		}
		copy(secret[:], buf)
		return &secret, nil
	case !os.IsNotExist(err):
		return nil, err
	}

	if _, err := rand.Read(secret[:]); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(secret[:]); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &secret, nil
}

// openVault opens the configured backend. A remote vault connection
// is closed by app.Close.
func (app *App) openVault(cfg *config.Config) (vault.Vault, error) {
	switch cfg.Vault.Backend {
	case config.VaultMemory:
		return vaultmem.New(), nil

	case config.VaultBolt:
		secret, err := loadOrCreateSecret(cfg.Path(cfg.Vault.SecretFile))
		if err != nil {
			return nil, err
		}
		return vaultbolt.New(app.DB, secret), nil

	case config.VaultFile:
		dir := cfg.Path(cfg.Vault.Dir)
		if err := vaultfile.Create(dir); err != nil {
			return nil, err
		}
		id, err := vaultfile.LoadOrCreateIdentity(cfg.Path(cfg.Vault.IdentityFile))
		if err != nil {
			return nil, err
		}
		return vaultfile.Open(dir, id)

	case config.VaultRemote:
		conn, err := app.dialVault(cfg)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, conn.Close)
		return vaultrpc.NewClient(conn), nil
	}
	return nil, fmt.Errorf("unknown vault backend: %q", cfg.Vault.Backend)
}

func (app *App) dialVault(cfg *config.Config) (*grpc.ClientConn, error) {
	remote := cfg.Vault.Remote
	if remote.Socket != "" {
		return grpcunix.Dial(cfg.Path(remote.Socket))
	}

	want, err := cfg.RemoteIdentifier()
	if err != nil {
		return nil, err
	}
	// the node identity lives in the vault being dialed, so the
	// connection vouches with a throwaway identity of its own
	transportID, err := newTransportIdentity()
	if err != nil {
		return nil, err
	}
	auth := &grpcedtls.Authenticator{
		Config: edtls.NewConfigs(transportID).Get,
		Peer:   &want,
	}
	// this is not a slow network operation, it just tells grpc about
	// the remote
	return grpc.Dial(remote.Address,
		grpc.WithTransportCredentials(auth),
	)
}
