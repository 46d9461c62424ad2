package edtls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	"bazil.org/attest/identity"
)

var (
	// ErrNotEdTLS is returned if the TLS peer does not support edtls.
	ErrNotEdTLS = errors.New("peer does not support edtls")
)

// WrongIdentityError is returned if the server identity did not
// match.
type WrongIdentityError struct {
	Identifier identity.Identifier
}

var _ error = (*WrongIdentityError)(nil)

func (e *WrongIdentityError) Error() string {
	return fmt.Sprintf("wrong peer identity: %v", e.Identifier)
}

// PeerIdentity returns the identity the peer of a completed handshake
// vouched for.
func PeerIdentity(c *tls.Conn) (*identity.PublicIdentity, error) {
	s := c.ConnectionState()
	if !s.HandshakeComplete || len(s.PeerCertificates) == 0 {
		return nil, ErrNotEdTLS
	}
	pub, ok := Verify(s.PeerCertificates[0])
	if !ok {
		return nil, ErrNotEdTLS
	}
	return pub, nil
}

// NewClient runs a TLS handshake as client on rawConn. If expected is
// not nil, the server must vouch for that identifier.
func NewClient(rawConn net.Conn, config *tls.Config, expected *identity.Identifier) (*tls.Conn, *identity.PublicIdentity, error) {
	// We do our own verification, with edtls.
	config = config.Clone()
	config.InsecureSkipVerify = true
	c := tls.Client(rawConn, config)
	if err := c.Handshake(); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	pub, err := PeerIdentity(c)
	if err != nil {
		// servers are not supposed to be able to skip certificates
		_ = c.Close()
		return nil, nil, err
	}
	if expected != nil && pub.Identifier != *expected {
		_ = c.Close()
		return nil, nil, &WrongIdentityError{Identifier: pub.Identifier}
	}
	return c, pub, nil
}

// NewServer runs a TLS handshake as server on rawConn. The client
// must vouch for some identity.
func NewServer(rawConn net.Conn, config *tls.Config) (*tls.Conn, *identity.PublicIdentity, error) {
	c := tls.Server(rawConn, config)
	if err := c.Handshake(); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	pub, err := PeerIdentity(c)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return c, pub, nil
}
