package routing

import (
	"context"
)

// AccessControl gates messages into or out of a mailbox.
//
// Implementations must be free of side effects; denial drops the
// message without telling the sender.
type AccessControl interface {
	IsAuthorized(ctx context.Context, msg *Message) bool
}

// AccessControlFunc adapts a function to AccessControl.
type AccessControlFunc func(ctx context.Context, msg *Message) bool

func (fn AccessControlFunc) IsAuthorized(ctx context.Context, msg *Message) bool {
	return fn(ctx, msg)
}

type allowAll struct{}

func (allowAll) IsAuthorized(ctx context.Context, msg *Message) bool { return true }

type denyAll struct{}

func (denyAll) IsAuthorized(ctx context.Context, msg *Message) bool { return false }

var (
	// AllowAll lets every message through. It is the default for both
	// directions.
	AllowAll AccessControl = allowAll{}

	// DenyAll lets nothing through. As an outgoing gate it keeps a
	// worker from sending or relaying anything.
	DenyAll AccessControl = denyAll{}
)
