// Package routing delivers messages between workers.
//
// Every worker owns a mailbox served by its own goroutine. Messages
// travel along routes of addresses; at each hop the sending mailbox's
// outgoing access control runs when the message is sent, and the
// receiving mailbox's incoming access control runs right before the
// handler would see it. Denied messages vanish without a trace for
// the sender.
package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Transport resolves addresses of one scheme to a local mailbox that
// carries messages to their destination, connecting as needed.
type Transport interface {
	Resolve(ctx context.Context, addr Address) (Address, error)
}

type nodeConfig struct {
	debug func(msg interface{})
}

type NodeOption func(*nodeConfig)

// Debug sets a function to receive debug events. The events are
// structs from this package.
func Debug(fn func(msg interface{})) NodeOption {
	return func(conf *nodeConfig) {
		conf.debug = fn
	}
}

func nop(msg interface{}) {}

// Node is a set of mailboxes that can reach each other, and remote
// nodes through transports.
type Node struct {
	debug func(msg interface{})

	mu         sync.Mutex
	closed     bool
	mailboxes  map[Address]*mailbox
	transports map[string]Transport
	wg         sync.WaitGroup
}

func NewNode(opts ...NodeOption) *Node {
	conf := nodeConfig{debug: nop}
	for _, opt := range opts {
		opt(&conf)
	}
	return &Node{
		debug:      conf.debug,
		mailboxes:  make(map[Address]*mailbox),
		transports: make(map[string]Transport),
	}
}

// Debug emits a debug event through the node's debug function.
func (n *Node) Debug(msg interface{}) {
	n.debug(msg)
}

// RegisterTransport routes addresses with the given scheme through t.
func (n *Node) RegisterTransport(scheme string, t Transport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transports[scheme] = t
}

func (n *Node) register(w Worker, addr Address, opts []WorkerOption) (*Context, error) {
	conf := workerConfig{
		incoming: AllowAll,
		outgoing: AllowAll,
	}
	for _, opt := range opts {
		opt(&conf)
	}
	ctx, cancel := context.WithCancel(context.Background())
	mb := &mailbox{
		node:     n,
		addrs:    append([]Address{addr}, conf.aliases...),
		worker:   w,
		incoming: conf.incoming,
		outgoing: conf.outgoing,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	c := &Context{Context: ctx, node: n, mb: mb}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		cancel()
		return nil, ErrShutdown
	}
	for _, a := range mb.addrs {
		if a == "" || a.Scheme() != "" {
			cancel()
			return nil, errors.New("invalid local address: " + string(a))
		}
		if _, ok := n.mailboxes[a]; ok {
			cancel()
			return nil, ErrAddressInUse
		}
	}
	for _, a := range mb.addrs {
		n.mailboxes[a] = mb
	}
	n.wg.Add(1)
	return c, nil
}

func (n *Node) unregister(mb *mailbox) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, a := range mb.addrs {
		if n.mailboxes[a] == mb {
			delete(n.mailboxes, a)
		}
	}
}

// Start runs w at addr. If w implements Initializer, Start returns
// after Initialize, with its error.
func (n *Node) Start(addr Address, w Worker, opts ...WorkerOption) error {
	if w == nil {
		return errors.New("nil worker")
	}
	c, err := n.register(w, addr, opts)
	if err != nil {
		return err
	}
	if init, ok := w.(Initializer); ok {
		if err := init.Initialize(c); err != nil {
			c.mb.requestStop()
			c.mb.finish(c)
			return err
		}
	}
	n.debug(WorkerStarted{Address: addr})
	go c.mb.serve(c)
	return nil
}

// NewContext creates a detached mailbox at addr, for code that is not
// a worker to send and receive messages. An empty addr picks a random
// one. Stop the context when done with it.
func (n *Node) NewContext(addr Address, opts ...WorkerOption) (*Context, error) {
	if addr == "" {
		addr = RandomAddress("app.")
	}
	return n.register(nil, addr, opts)
}

// Send delivers payload to route from a fresh detached context that
// cannot receive replies.
func (n *Node) Send(ctx context.Context, route Route, payload []byte) error {
	c, err := n.NewContext("")
	if err != nil {
		return err
	}
	defer c.Stop()
	return c.Send(route, payload)
}

// Stop stops the mailbox at addr and waits for it to finish. It must
// not be called from that mailbox's own handler; use Context.Stop
// there.
func (n *Node) Stop(addr Address) error {
	n.mu.Lock()
	mb, ok := n.mailboxes[addr]
	n.mu.Unlock()
	if !ok {
		return ErrRoutingFailure
	}
	mb.requestStop()
	if mb.worker == nil {
		mb.finish(nil)
	}
	<-mb.done
	return nil
}

// NotifyOnStop calls fn after the mailbox at addr stops. If the
// mailbox has already stopped, fn is called right away.
func (n *Node) NotifyOnStop(addr Address, fn func()) error {
	n.mu.Lock()
	mb, ok := n.mailboxes[addr]
	n.mu.Unlock()
	if !ok {
		return ErrRoutingFailure
	}
	mb.mu.Lock()
	if mb.finished {
		mb.mu.Unlock()
		go fn()
		return nil
	}
	mb.onStop = append(mb.onStop, fn)
	mb.mu.Unlock()
	return nil
}

// Shutdown stops every mailbox and waits for them. The node accepts
// no new workers afterwards.
func (n *Node) Shutdown() {
	n.mu.Lock()
	n.closed = true
	var all []*mailbox
	seen := make(map[*mailbox]struct{})
	for _, mb := range n.mailboxes {
		if _, ok := seen[mb]; ok {
			continue
		}
		seen[mb] = struct{}{}
		all = append(all, mb)
	}
	n.mu.Unlock()

	for _, mb := range all {
		mb.requestStop()
		if mb.worker == nil {
			mb.finish(nil)
		}
	}
	n.wg.Wait()
}

func (n *Node) lookup(ctx context.Context, addr Address) (*mailbox, error) {
	n.mu.Lock()
	mb, ok := n.mailboxes[addr]
	var t Transport
	if !ok {
		t = n.transports[addr.Scheme()]
	}
	n.mu.Unlock()
	if ok {
		return mb, nil
	}
	if t == nil || addr.Scheme() == "" {
		return nil, ErrRoutingFailure
	}
	local, err := t.Resolve(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w: %w", addr, ErrRoutingFailure, err)
	}
	n.mu.Lock()
	mb, ok = n.mailboxes[local]
	n.mu.Unlock()
	if !ok {
		return nil, ErrRoutingFailure
	}
	return mb, nil
}

// send moves msg one hop, from mailbox from to the first address of
// its onward route.
func (n *Node) send(ctx context.Context, from *mailbox, msg *Message) error {
	if !from.outgoing.IsAuthorized(ctx, msg) {
		n.debug(Dropped{Address: from.addrs[0], Direction: "outgoing", Onward: msg.Onward.String()})
		return nil
	}
	err := n.deliver(ctx, msg)
	if err != nil {
		n.debug(Undeliverable{From: from.addrs[0], Onward: msg.Onward.String(), Error: err.Error()})
	}
	return err
}

func (n *Node) deliver(ctx context.Context, msg *Message) error {
	next, ok := msg.Onward.Next()
	if !ok {
		return ErrRoutingFailure
	}
	if msg.Hops >= MaxHops {
		return ErrRoutingFailure
	}
	mb, err := n.lookup(ctx, next)
	if err != nil {
		return err
	}
	if next.Scheme() != "" {
		// the transport mailbox takes over this hop
		msg.Onward = msg.Onward.Step().Prepend(mb.addrs[0])
	}
	msg.Hops++
	return mb.enqueue(item{msg: msg})
}
