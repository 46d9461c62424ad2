package vault

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"io"

	"bazil.org/attest/tokens"
	"github.com/agl/ed25519"
	"github.com/codahale/blake2"
	"github.com/tv42/zbase32"
)

// Secret is private key material as held by software vaults.
//
// For Ed25519, Data is the 64 byte private key. For NistP256, Data is
// the PKCS #8 DER encoding.
type Secret struct {
	Attributes SecretAttributes
	Data       []byte
}

var errShortSecret = errors.New("secret encoding too short")

// GenerateSecret creates fresh key material of the requested type.
func GenerateSecret(random io.Reader, attrs SecretAttributes) (*Secret, error) {
	if random == nil {
		random = rand.Reader
	}
	switch attrs.Type {
	case Ed25519:
		_, priv, err := ed25519.GenerateKey(random)
		if err != nil {
			return nil, err
		}
		return &Secret{Attributes: attrs, Data: priv[:]}, nil

	case NistP256:
		key, err := ecdsa.GenerateKey(elliptic.P256(), random)
		if err != nil {
			return nil, err
		}
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, err
		}
		return &Secret{Attributes: attrs, Data: der}, nil
	}
	return nil, ErrUnsupportedType
}

func (s *Secret) ed25519Private() (*[ed25519.PrivateKeySize]byte, error) {
	if len(s.Data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key is %d bytes, want %d", len(s.Data), ed25519.PrivateKeySize)
	}
	var priv [ed25519.PrivateKeySize]byte
	copy(priv[:], s.Data)
	return &priv, nil
}

func (s *Secret) p256Private() (*ecdsa.PrivateKey, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(s.Data)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok || key.Curve != elliptic.P256() {
		return nil, errors.New("secret is not a P-256 key")
	}
	return key, nil
}

// PublicKey derives the public half of s.
func (s *Secret) PublicKey() (PublicKey, error) {
	switch s.Attributes.Type {
	case Ed25519:
		priv, err := s.ed25519Private()
		if err != nil {
			return PublicKey{}, err
		}
		// the second half of an ed25519 private key is the public key
		pub := make([]byte, ed25519.PublicKeySize)
		copy(pub, priv[32:])
		return PublicKey{Type: Ed25519, Data: pub}, nil

	case NistP256:
		key, err := s.p256Private()
		if err != nil {
			return PublicKey{}, err
		}
		return PublicKey{Type: NistP256, Data: elliptic.Marshal(key.Curve, key.X, key.Y)}, nil
	}
	return PublicKey{}, ErrUnsupportedType
}

// Sign signs message with s.
func (s *Secret) Sign(message []byte) ([]byte, error) {
	switch s.Attributes.Type {
	case Ed25519:
		priv, err := s.ed25519Private()
		if err != nil {
			return nil, err
		}
		sig := ed25519.Sign(priv, message)
		return sig[:], nil

	case NistP256:
		key, err := s.p256Private()
		if err != nil {
			return nil, err
		}
		digest := sha256.Sum256(message)
		return ecdsa.SignASN1(rand.Reader, key, digest[:])
	}
	return nil, ErrUnsupportedType
}

// MarshalBinary encodes s as type, persistence flag and key material.
func (s *Secret) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 2+len(s.Data))
	buf = append(buf, byte(s.Attributes.Type))
	var persistent byte
	if s.Attributes.Persistent {
		persistent = 1
	}
	buf = append(buf, persistent)
	buf = append(buf, s.Data...)
	return buf, nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (s *Secret) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return errShortSecret
	}
	t := SecretType(data[0])
	if !t.Valid() {
		return ErrUnsupportedType
	}
	s.Attributes = SecretAttributes{Type: t, Persistent: data[1] == 1}
	s.Data = append([]byte(nil), data[2:]...)
	return nil
}

// VerifySignature checks signature over message under pub. It is the
// shared Verify implementation of all software vaults.
func VerifySignature(pub PublicKey, message, signature []byte) bool {
	switch pub.Type {
	case Ed25519:
		if len(pub.Data) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
			return false
		}
		var p [ed25519.PublicKeySize]byte
		var sig [ed25519.SignatureSize]byte
		copy(p[:], pub.Data)
		copy(sig[:], signature)
		return ed25519.Verify(&p, message, &sig)

	case NistP256:
		x, y := elliptic.Unmarshal(elliptic.P256(), pub.Data)
		if x == nil {
			return false
		}
		key := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
		digest := sha256.Sum256(message)
		return ecdsa.VerifyASN1(key, digest[:], signature)
	}
	return false
}

// KeyIDFor derives the key id software vaults use for pub. Ids are
// stable, so generating the same key twice would collide, which for
// freshly generated keys does not happen.
func KeyIDFor(pub PublicKey) KeyID {
	var pers [blake2.PersonalSize]byte
	copy(pers[:], tokens.Blake2bPersonalizationKeyID)
	h := blake2.New(&blake2.Config{
		Size:     20,
		Personal: pers[:],
	})
	// hash.Hash docs say it never fails
	_, _ = h.Write([]byte{byte(pub.Type)})
	_, _ = h.Write(pub.Data)
	return KeyID(pub.Type.String() + "-" + zbase32.EncodeToString(h.Sum(nil)))
}
