// Package vaultfile is a vault that keeps one age-encrypted file per
// key in a directory.
package vaultfile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bazil.org/attest/vault"
	"filippo.io/age"
)

const suffix = ".age"

type Vault struct {
	path     string
	identity *age.X25519Identity
}

var _ vault.Vault = (*Vault)(nil)

var errBadKeyID = errors.New("key id is not a valid file name")

// Open returns a vault over the directory at path. Secrets are
// encrypted to, and decrypted with, identity.
func Open(path string, identity *age.X25519Identity) (*Vault, error) {
	return &Vault{
		path:     path,
		identity: identity,
	}, nil
}

func Create(path string) error {
	err := os.Mkdir(path, 0700)
	if err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}

// LoadOrCreateIdentity reads an age identity from path, generating
// and saving a new one if the file does not exist.
func LoadOrCreateIdentity(path string) (*age.X25519Identity, error) {
	buf, err := os.ReadFile(path)
	if err == nil {
		return age.ParseX25519Identity(strings.TrimSpace(string(buf)))
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(f, identity.String()+"\n"); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return identity, nil
}

func (v *Vault) file(key vault.KeyID) (string, error) {
	name := string(key)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", errBadKeyID
	}
	return filepath.Join(v.path, name+suffix), nil
}

func (v *Vault) get(op string, key vault.KeyID) (*vault.Secret, error) {
	path, err := v.file(key)
	if err != nil {
		return nil, vault.Failed(op, key, vault.ErrKeyNotFound)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vault.Failed(op, key, vault.ErrKeyNotFound)
		}
		return nil, vault.Failed(op, key, err)
	}
	defer f.Close()
	r, err := age.Decrypt(f, v.identity)
	if err != nil {
		return nil, vault.Failed(op, key, err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, vault.Failed(op, key, err)
	}
	var s vault.Secret
	if err := s.UnmarshalBinary(plain); err != nil {
		return nil, vault.Failed(op, key, err)
	}
	return &s, nil
}

func (v *Vault) put(key vault.KeyID, s *vault.Secret) error {
	path, err := v.file(key)
	if err != nil {
		return err
	}
	plain, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, v.identity.Recipient())
	if err != nil {
		return err
	}
	if _, err := w.Write(plain); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(v.path, "put-")
	if err != nil {
		return err
	}
	defer func() {
		// silence errcheck
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	err = os.Link(tmp.Name(), path)
	if err != nil {
		// key ids derive from the public key, so an existing file
		// already holds this secret
		if !os.IsExist(err) {
			return err
		}
	}
	return nil
}

func (v *Vault) GenerateKey(ctx context.Context, attrs vault.SecretAttributes) (vault.KeyID, error) {
	s, err := vault.GenerateSecret(nil, attrs)
	if err != nil {
		return "", vault.Failed("generate", "", err)
	}
	return v.Import(s)
}

// Import encrypts existing key material into the vault.
func (v *Vault) Import(s *vault.Secret) (vault.KeyID, error) {
	pub, err := s.PublicKey()
	if err != nil {
		return "", vault.Failed("import", "", err)
	}
	key := vault.KeyIDFor(pub)
	if err := v.put(key, s); err != nil {
		return "", vault.Failed("import", key, err)
	}
	return key, nil
}

func (v *Vault) PublicKey(ctx context.Context, key vault.KeyID) (vault.PublicKey, error) {
	s, err := v.get("public key", key)
	if err != nil {
		return vault.PublicKey{}, err
	}
	pub, err := s.PublicKey()
	return pub, vault.Failed("public key", key, err)
}

func (v *Vault) SecretAttributes(ctx context.Context, key vault.KeyID) (vault.SecretAttributes, error) {
	s, err := v.get("secret attributes", key)
	if err != nil {
		return vault.SecretAttributes{}, err
	}
	return s.Attributes, nil
}

func (v *Vault) Sign(ctx context.Context, key vault.KeyID, message []byte) ([]byte, error) {
	s, err := v.get("sign", key)
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(message)
	return sig, vault.Failed("sign", key, err)
}

func (v *Vault) Verify(ctx context.Context, pub vault.PublicKey, message, signature []byte) (bool, error) {
	return vault.VerifySignature(pub, message, signature), nil
}

func (v *Vault) DeleteKey(ctx context.Context, key vault.KeyID) error {
	path, err := v.file(key)
	if err != nil {
		return vault.Failed("delete", key, vault.ErrKeyNotFound)
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return vault.Failed("delete", key, vault.ErrKeyNotFound)
		}
		return vault.Failed("delete", key, err)
	}
	return nil
}
