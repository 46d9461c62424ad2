package routing

import (
	"context"
)

// Worker handles messages delivered to its mailbox, one at a time, in
// arrival order.
type Worker interface {
	HandleMessage(c *Context, msg *Message) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(c *Context, msg *Message) error

func (fn WorkerFunc) HandleMessage(c *Context, msg *Message) error {
	return fn(c, msg)
}

// Initializer is implemented by workers that need setup before their
// first message. An error aborts Start.
type Initializer interface {
	Initialize(c *Context) error
}

// Shutdowner is implemented by workers that release resources when
// stopped. It runs after every message accepted before the stop.
type Shutdowner interface {
	Shutdown(c *Context) error
}

type workerConfig struct {
	incoming AccessControl
	outgoing AccessControl
	aliases  []Address
}

type WorkerOption func(*workerConfig)

// Incoming gates messages delivered to the worker.
func Incoming(ac AccessControl) WorkerOption {
	return func(conf *workerConfig) {
		conf.incoming = ac
	}
}

// Outgoing gates messages the worker sends or forwards.
func Outgoing(ac AccessControl) WorkerOption {
	return func(conf *workerConfig) {
		conf.outgoing = ac
	}
}

// Aliases adds more addresses for the same mailbox.
func Aliases(addrs ...Address) WorkerOption {
	return func(conf *workerConfig) {
		conf.aliases = append(conf.aliases, addrs...)
	}
}

// Context is what a worker, or a detached receiver, uses to talk to
// the node. The embedded context is canceled when the mailbox stops.
type Context struct {
	context.Context
	node *Node
	mb   *mailbox
}

// Address returns the primary address of the mailbox.
func (c *Context) Address() Address {
	return c.mb.addrs[0]
}

func (c *Context) Node() *Node {
	return c.node
}

// Send delivers payload along route, with this mailbox as the return
// route.
func (c *Context) Send(route Route, payload []byte) error {
	msg := &Message{
		Onward:  NewRoute(route...),
		Return:  NewRoute(c.Address()),
		Payload: payload,
	}
	return c.node.send(c, c.mb, msg)
}

// Forward delivers msg along its onward route unchanged. Use
// Message.Forwarded to step past the current hop first.
func (c *Context) Forward(msg *Message) error {
	return c.node.send(c, c.mb, msg)
}

// Receive waits for the next authorized message to a detached
// context. If ctx ends first, the error is ErrTimedOut for a deadline
// and ctx.Err() otherwise.
func (c *Context) Receive(ctx context.Context) (*Message, error) {
	if c.mb.worker != nil {
		return nil, errNotDetached
	}
	for {
		it, err := c.mb.dequeue(ctx)
		if err != nil {
			return nil, err
		}
		if it.stop {
			c.mb.finish(c)
			return nil, ErrRoutingFailure
		}
		if c.mb.admit(c, it.msg) {
			return it.msg, nil
		}
	}
}

// Stop asks the mailbox to stop after the messages already queued.
// It does not wait, so a worker may call it on itself.
func (c *Context) Stop() {
	c.mb.requestStop()
	if c.mb.worker == nil {
		c.mb.finish(c)
	}
}
