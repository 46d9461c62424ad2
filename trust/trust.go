// Package trust decides which peers a secure channel accepts.
//
// A policy is evaluated once per handshake, against the identifier the
// peer proved ownership of.
package trust

import (
	"context"

	"bazil.org/attest/identity"
)

// Policy decides whether to trust a peer.
type Policy interface {
	Check(ctx context.Context, peer identity.Identifier) (bool, error)
}

type allowAll struct{}

func (allowAll) Check(ctx context.Context, peer identity.Identifier) (bool, error) {
	return true, nil
}

// AllowAll trusts every peer that completes the handshake.
var AllowAll Policy = allowAll{}

// Identifiers is an allow-list.
type Identifiers map[identity.Identifier]struct{}

var _ Policy = Identifiers(nil)

// Trusted returns an allow-list of ids.
func Trusted(ids ...identity.Identifier) Identifiers {
	l := make(Identifiers, len(ids))
	for _, id := range ids {
		l[id] = struct{}{}
	}
	return l
}

func (l Identifiers) Check(ctx context.Context, peer identity.Identifier) (bool, error) {
	_, ok := l[peer]
	return ok, nil
}

// Func adapts a predicate to a Policy.
type Func func(ctx context.Context, peer identity.Identifier) (bool, error)

var _ Policy = Func(nil)

func (fn Func) Check(ctx context.Context, peer identity.Identifier) (bool, error) {
	return fn(ctx, peer)
}

type allOf []Policy

// All trusts a peer only when every policy does. An empty All trusts
// everyone.
func All(policies ...Policy) Policy {
	return allOf(policies)
}

func (a allOf) Check(ctx context.Context, peer identity.Identifier) (bool, error) {
	for _, p := range a {
		ok, err := p.Check(ctx, peer)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

type anyOf []Policy

// Any trusts a peer when at least one policy does.
func Any(policies ...Policy) Policy {
	return anyOf(policies)
}

func (a anyOf) Check(ctx context.Context, peer identity.Identifier) (bool, error) {
	for _, p := range a {
		ok, err := p.Check(ctx, peer)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
