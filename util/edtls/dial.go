package edtls

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"bazil.org/attest/identity"
)

var defaultDialer net.Dialer

// Dial connects to a remote peer. If expected is not nil, the peer
// must vouch for that identifier.
func Dial(ctx context.Context, dialer *net.Dialer, network, addr string, config *tls.Config, expected *identity.Identifier) (*tls.Conn, *identity.PublicIdentity, error) {
	if dialer == nil {
		dialer = &defaultDialer
	}
	raw, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}
	c, pub, err := NewClient(raw, config, expected)
	if err != nil {
		_ = raw.Close()
		return nil, nil, err
	}
	_ = raw.SetDeadline(time.Time{})
	return c, pub, nil
}
