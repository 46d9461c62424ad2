package server

import (
	"context"
	"errors"
	"fmt"

	"bazil.org/attest/credential"
	"bazil.org/attest/db"
	"bazil.org/attest/identity"
	"bazil.org/attest/tokens"
	"bazil.org/attest/vault"
	"bazil.org/attest/vault/vaultmem"
)

// loadOrCreateIdentity returns the node identity named in the
// database, creating and recording one on first run.
//
// Memory vaults forget their keys on exit, so with persist false a
// fresh identity is made every time and nothing is recorded.
func (app *App) loadOrCreateIdentity(ctx context.Context, vaults identity.Vaults, persist bool) (*identity.Identity, error) {
	if !persist {
		return identity.Create(ctx, vaults)
	}

	var key, credKey vault.KeyID
	var cred []byte
	err := app.DB.View(func(tx *db.Tx) error {
		g := tx.Global()
		key = vault.KeyID(g.Get(tokens.GlobalStateIdentityKey))
		credKey = vault.KeyID(g.Get(tokens.GlobalStateCredentialKey))
		if c := g.Get(tokens.GlobalStateCredential); c != nil {
			cred = append([]byte(nil), c...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if key == "" {
		id, err := identity.Create(ctx, vaults)
		if err != nil {
			return nil, err
		}
		err = app.DB.Update(func(tx *db.Tx) error {
			g := tx.Global()
			if err := g.Put(tokens.GlobalStateIdentityKey, []byte(id.KeyID())); err != nil {
				return err
			}
			return g.Put(tokens.GlobalStateCredentialKey, []byte(id.CredentialKeyID()))
		})
		if err != nil {
			return nil, err
		}
		return id, nil
	}

	attrs, err := vaults.Identity.SecretAttributes(ctx, key)
	if err != nil {
		if errors.Is(err, vault.ErrKeyNotFound) {
			return nil, fmt.Errorf("identity key %s is missing from the vault", key)
		}
		return nil, err
	}
	b := identity.NewBuilder(vaults).WithExistingKey(key, attrs.Type)
	if credKey != "" {
		b = b.WithExistingCredentialKey(credKey)
	}
	id, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	if cred != nil {
		id.SetCredential(cred)
	}
	return id, nil
}

// AttachCredential verifies that data is a credential about the node
// identity, records it for later runs and attaches it for
// presentation to peers. The issuer is not checked; that is up to
// whoever the credential is presented to.
func (app *App) AttachCredential(data []byte) error {
	c, err := credential.Decode(data)
	if err != nil {
		return err
	}
	if g, e := c.Subject, app.Identity.Identifier(); g != e {
		return fmt.Errorf("credential is about %v, not this node %v", g, e)
	}
	err = app.DB.Update(func(tx *db.Tx) error {
		return tx.Global().Put(tokens.GlobalStateCredential, data)
	})
	if err != nil {
		return err
	}
	app.Identity.SetCredential(data)
	return nil
}

// newTransportIdentity makes a short-lived identity for vouching on
// connections that cannot use the node identity.
func newTransportIdentity() (*identity.Identity, error) {
	return identity.Create(context.Background(), identity.Vaults{Identity: vaultmem.New()})
}
