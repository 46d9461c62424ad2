// Package grpcedtls authenticates gRPC connections with edtls.
package grpcedtls

import (
	"crypto/tls"
	"errors"
	"net"
	"time"

	"bazil.org/attest/identity"
	"bazil.org/attest/util/edtls"
	"golang.org/x/net/context"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
)

var (
	errMissingTLSConfig = errors.New("missing TLS configuration")
)

// Authenticator is gRPC transport credentials for edtls. Clients set
// Peer to require a server identity.
type Authenticator struct {
	Config func() (*tls.Config, error)
	Peer   *identity.Identifier
}

var _ credentials.TransportCredentials = (*Authenticator)(nil)

// AuthInfo carries the identity the peer vouched for.
type AuthInfo struct {
	Peer *identity.PublicIdentity
}

var _ credentials.AuthInfo = AuthInfo{}

func (AuthInfo) AuthType() string {
	return "edtls"
}

// FromContext returns the identity of the peer of a gRPC call.
func FromContext(ctx context.Context) (pub *identity.PublicIdentity, ok bool) {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return nil, false
	}
	info, ok := p.AuthInfo.(AuthInfo)
	if !ok {
		return nil, false
	}
	return info.Peer, true
}

func (a *Authenticator) ClientHandshake(ctx context.Context, authority string, rawConn net.Conn) (net.Conn, credentials.AuthInfo, error) {
	if a.Config == nil {
		return nil, nil, errMissingTLSConfig
	}
	conf, err := a.Config()
	if err != nil {
		return nil, nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = rawConn.SetDeadline(deadline)
		defer rawConn.SetDeadline(time.Time{})
	}
	c, pub, err := edtls.NewClient(rawConn, conf, a.Peer)
	if err != nil {
		return nil, nil, err
	}
	return c, AuthInfo{Peer: pub}, nil
}

func (a *Authenticator) ServerHandshake(conn net.Conn) (net.Conn, credentials.AuthInfo, error) {
	if a.Config == nil {
		conn.Close()
		return nil, nil, errMissingTLSConfig
	}
	tlsConf, err := a.Config()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	c, pub, err := edtls.NewServer(conn, tlsConf)
	if err != nil {
		return nil, nil, err
	}
	return c, AuthInfo{Peer: pub}, nil
}

func (a *Authenticator) Info() credentials.ProtocolInfo {
	return credentials.ProtocolInfo{
		SecurityProtocol: "edtls",
		SecurityVersion:  "1",
	}
}

func (a *Authenticator) Clone() credentials.TransportCredentials {
	c := *a
	return &c
}

// OverrideServerName is a no-op; servers are known by identity, not
// name.
func (a *Authenticator) OverrideServerName(string) error {
	return nil
}
