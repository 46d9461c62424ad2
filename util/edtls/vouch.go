package edtls

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/binary"

	"bazil.org/attest/identity"
	"bazil.org/attest/tokens"
)

// generated with a reimplementation of
// https://gallery.technet.microsoft.com/scriptcenter/56b78004-40d0-41cf-b95e-6e795b2e8a06
// via http://msdn.microsoft.com/en-us/library/ms677620(VS.85).aspx
var oid = asn1.ObjectIdentifier{1, 2, 840, 113556, 1, 8000, 2554, 31830, 5190, 18203, 20240, 41147, 7688498, 2373901}

// Signer is the part of an identity that can vouch.
type Signer interface {
	Sign(ctx context.Context, message []byte) ([]byte, error)
	Export() ([]byte, error)
}

var _ Signer = (*identity.Identity)(nil)

func vouchMessage(cert *x509.Certificate, tlsPubDer []byte) []byte {
	msg := make([]byte, 0, len(tokens.SignTransportVouchTLS)+8+len(tlsPubDer))
	msg = append(msg, tokens.SignTransportVouchTLS...)
	var notAfter [8]byte
	binary.LittleEndian.PutUint64(notAfter[:], uint64(cert.NotAfter.Unix()))
	msg = append(msg, notAfter[:]...)
	msg = append(msg, tlsPubDer...)
	return msg
}

// Vouch a self-signed certificate that is about to be created with a
// signature by signer.
func Vouch(ctx context.Context, signer Signer, cert *x509.Certificate, tlsPub interface{}) error {
	// note: this is so early the cert is not serialized yet, can't use those fields
	tlsPubDer, err := x509.MarshalPKIXPublicKey(tlsPub)
	if err != nil {
		return err
	}
	sig, err := signer.Sign(ctx, vouchMessage(cert, tlsPubDer))
	if err != nil {
		return err
	}
	export, err := signer.Export()
	if err != nil {
		return err
	}

	env := make([]byte, 0, binary.MaxVarintLen64+len(export)+len(sig))
	env = appendUvarint(env, uint64(len(export)))
	env = append(env, export...)
	env = append(env, sig...)
	ext := pkix.Extension{Id: oid, Value: env}
	cert.ExtraExtensions = append(cert.ExtraExtensions, ext)
	return nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func findVouch(cert *x509.Certificate) (export, sig []byte, ok bool) {
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(oid) {
			continue
		}
		length, n := binary.Uvarint(ext.Value)
		if n <= 0 || length > uint64(len(ext.Value)-n) {
			continue
		}
		rest := ext.Value[n:]
		return rest[:length], rest[length:], true
	}
	return nil, nil, false
}

// Verify a vouch as offered by the TLS peer.
//
// Returns the vouching identity. It is up to the caller to decide
// whether this identity is acceptable.
//
// Does not verify cert.NotAfter against a clock, just its
// authenticity.
func Verify(cert *x509.Certificate) (*identity.PublicIdentity, bool) {
	export, sig, ok := findVouch(cert)
	if !ok {
		return nil, false
	}
	pub, err := identity.Import(nil, export)
	if err != nil {
		return nil, false
	}
	tlsPubDer, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return nil, false
	}
	if !pub.Verify(vouchMessage(cert, tlsPubDer), sig) {
		return nil, false
	}
	return pub, true
}
