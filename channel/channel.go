// Package channel establishes mutually authenticated, encrypted
// message paths between two identities.
//
// A listener worker accepts handshakes. Both sides prove possession
// of their identity keys by signing the exchanged ephemeral keys, and
// each evaluates its trust policy on the identifier the other proved.
// Only then does the initiator get a Channel, whose address forwards
// messages, encrypted, to the peer. Messages coming out of a channel
// carry the peer identifier as their authenticated sender.
package channel

import (
	"context"
	"time"

	"bazil.org/attest/identity"
	"bazil.org/attest/routing"
	"bazil.org/attest/trust"
)

// DefaultTimeout bounds a handshake when no timeout is given.
const DefaultTimeout = 10 * time.Second

var (
	// ErrAuthenticationFailed is returned by Create when the peer
	// fails to prove its identity or the trust policy rejects it.
	ErrAuthenticationFailed = identity.ErrAuthenticationFailed

	// ErrTimedOut is returned by Create when the handshake does not
	// finish in time. Creating the channel may be retried.
	ErrTimedOut = routing.ErrTimedOut
)

// Options configure the initiating side.
type Options struct {
	// Policy decides whether to trust the responder. Required.
	Policy trust.Policy
	// Timeout bounds the handshake. Zero means DefaultTimeout.
	Timeout time.Duration
}

// ListenerOptions configure the responding side.
type ListenerOptions struct {
	// Policy decides whether to trust initiators. Required.
	Policy trust.Policy
	// Timeout bounds each handshake. Zero means DefaultTimeout.
	Timeout time.Duration
	// Established, if set, is called for each accepted channel.
	Established func(*Channel)
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Channel is an established secure channel.
type Channel struct {
	node      *routing.Node
	encryptor routing.Address
	decryptor routing.Address
	peer      *identity.PublicIdentity
}

// Address is where to send messages into the channel. The rest of the
// onward route is followed on the peer's node.
func (ch *Channel) Address() routing.Address {
	return ch.encryptor
}

// Route returns a route through the channel to addrs on the peer's
// node.
func (ch *Channel) Route(addrs ...routing.Address) routing.Route {
	return routing.NewRoute(ch.encryptor).Append(addrs...)
}

// DecryptorAddress is where the peer's encrypted frames arrive.
func (ch *Channel) DecryptorAddress() routing.Address {
	return ch.decryptor
}

// Peer returns the identifier the peer proved during the handshake.
func (ch *Channel) Peer() identity.Identifier {
	return ch.peer.Identifier
}

func (ch *Channel) PeerIdentity() *identity.PublicIdentity {
	return ch.peer
}

// Stop closes the channel and waits for its workers to finish.
func (ch *Channel) Stop() {
	// one of these may already be gone
	_ = ch.node.Stop(ch.encryptor)
	_ = ch.node.Stop(ch.decryptor)
}

// stopLater stops both workers without waiting. It is safe to call
// from their own handlers and stop notifications.
func (ch *Channel) stopLater() {
	go ch.Stop()
}

type result struct {
	ch  *Channel
	err error
}

// Create performs a handshake with the listener at the end of route,
// as local. It returns only once the channel is established.
func Create(ctx context.Context, node *routing.Node, local *identity.Identity, route routing.Route, opts Options) (*Channel, error) {
	if opts.Policy == nil {
		return nil, errNoPolicy
	}
	eph, err := newEphemeral()
	if err != nil {
		return nil, err
	}
	results := make(chan result, 1)
	d := &decryptor{
		node:      node,
		local:     local,
		policy:    opts.Policy,
		initiator: true,
		eph:       eph,
		remote:    routing.NewRoute(route...),
		results:   results,
	}
	addr := routing.RandomAddress("sc.")
	d.self = addr
	if err := node.Start(addr, d); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeoutOr(opts.Timeout))
	defer timer.Stop()
	select {
	case r := <-results:
		if r.err != nil {
			return nil, r.err
		}
		return r.ch, nil
	case <-timer.C:
		_ = node.Stop(addr)
		return nil, ErrTimedOut
	case <-ctx.Done():
		_ = node.Stop(addr)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimedOut
		}
		return nil, ctx.Err()
	}
}

// Listen starts a listener at addr accepting handshakes for local.
func Listen(node *routing.Node, local *identity.Identity, addr routing.Address, opts ListenerOptions) error {
	if opts.Policy == nil {
		return errNoPolicy
	}
	l := &listener{
		local: local,
		opts:  opts,
	}
	return node.Start(addr, l)
}
