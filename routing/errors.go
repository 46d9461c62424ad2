package routing

import (
	"errors"
)

var (
	// ErrRoutingFailure means a message could not be delivered: the
	// address is unknown, the mailbox is closed, or the hop limit was
	// reached.
	ErrRoutingFailure = errors.New("routing failure")

	// ErrTimedOut means an expected message did not arrive in time.
	// The operation may be retried.
	ErrTimedOut = errors.New("timed out")

	ErrAddressInUse = errors.New("address already in use")
	ErrShutdown     = errors.New("node is shut down")
	errNotDetached  = errors.New("receive on a worker context")
)
