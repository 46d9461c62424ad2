// Package tcp carries routed messages between nodes over TLS
// connections.
//
// Addresses look like "tcp:host:port". Resolving one dials the remote
// node, or reuses an existing connection, and returns the local
// address of a worker that forwards everything it receives over that
// connection. Messages read from a connection get the worker's address
// prepended to their return route, so replies find their way back.
//
// Both ends of a connection vouch for their node identity with edtls.
// The identity proven this way only authenticates the hop; secure
// channels run end to end on top of it.
package tcp

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"bazil.org/attest/identity"
	"bazil.org/attest/pb"
	"bazil.org/attest/routing"
	"bazil.org/attest/util/edtls"
	"bazil.org/attest/util/trylisten"
	"bazil.org/attest/wire"
)

// Scheme is the address scheme the transport registers.
const Scheme = "tcp"

// MaxFrameSize bounds a single frame read from a connection.
const MaxFrameSize = 1 << 20

// HandshakeTimeout bounds connecting and the TLS handshake.
const HandshakeTimeout = 10 * time.Second

var errClosed = errors.New("tcp transport is closed")

// Options configure a Transport.
type Options struct {
	// Debug receives debug events, structs from this package.
	Debug func(msg interface{})

	// Peers pins the identifier expected behind a "host:port".
	// Other remotes may be any identity.
	Peers map[string]identity.Identifier

	// Dialer is used for outgoing connections, if set.
	Dialer *net.Dialer
}

// Transport connects one node to others.
type Transport struct {
	node    *routing.Node
	configs *edtls.Configs
	debug   func(msg interface{})
	peers   map[string]identity.Identifier
	dialer  *net.Dialer

	mu        sync.Mutex
	closed    bool
	dialed    map[string]routing.Address
	workers   map[routing.Address]struct{}
	listeners []net.Listener
	wg        sync.WaitGroup
}

var _ routing.Transport = (*Transport)(nil)

func nop(msg interface{}) {}

// New creates a transport for node, vouching as local, and registers
// it for Scheme.
func New(node *routing.Node, local *identity.Identity, opts Options) *Transport {
	t := &Transport{
		node:    node,
		configs: edtls.NewConfigs(local),
		debug:   opts.Debug,
		peers:   make(map[string]identity.Identifier, len(opts.Peers)),
		dialer:  opts.Dialer,
		dialed:  make(map[string]routing.Address),
		workers: make(map[routing.Address]struct{}),
	}
	if t.debug == nil {
		t.debug = nop
	}
	for k, v := range opts.Peers {
		t.peers[k] = v
	}
	node.RegisterTransport(Scheme, t)
	return t
}

// Address returns the routing address for a remote "host:port".
func Address(hostport string) routing.Address {
	return routing.Address(Scheme + ":" + hostport)
}

// Listen accepts connections on addr. If the port is taken, a dynamic
// one is used; the returned address is the one actually listened on.
func (t *Transport) Listen(addr string) (net.Addr, error) {
	laddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	l, err := trylisten.ListenTCP("tcp", laddr)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		l.Close()
		return nil, errClosed
	}
	t.listeners = append(t.listeners, l)
	t.wg.Add(1)
	t.mu.Unlock()

	t.debug(Listening{Address: l.Addr().String()})
	go t.serve(l)
	return l.Addr(), nil
}

func (t *Transport) serve(l net.Listener) {
	defer t.wg.Done()
	for {
		raw, err := l.Accept()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				t.debug(AcceptFailed{Error: err.Error()})
			}
			return
		}
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.accept(raw)
		}()
	}
}

func (t *Transport) accept(raw net.Conn) {
	conf, err := t.configs.Get()
	if err != nil {
		raw.Close()
		t.debug(AcceptFailed{Remote: raw.RemoteAddr().String(), Error: err.Error()})
		return
	}
	_ = raw.SetDeadline(time.Now().Add(HandshakeTimeout))
	c, peer, err := edtls.NewServer(raw, conf)
	if err != nil {
		t.debug(AcceptFailed{Remote: raw.RemoteAddr().String(), Error: err.Error()})
		return
	}
	_ = raw.SetDeadline(time.Time{})
	if _, err := t.start(c, peer, ""); err != nil {
		c.Close()
		t.debug(AcceptFailed{Remote: raw.RemoteAddr().String(), Error: err.Error()})
	}
}

// Resolve returns the local worker for a "tcp:host:port" address,
// connecting if there is none.
func (t *Transport) Resolve(ctx context.Context, addr routing.Address) (routing.Address, error) {
	hostport := strings.TrimPrefix(string(addr), Scheme+":")
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", errClosed
	}
	if local, ok := t.dialed[hostport]; ok {
		t.mu.Unlock()
		return local, nil
	}
	var expected *identity.Identifier
	if id, ok := t.peers[hostport]; ok {
		expected = &id
	}
	t.mu.Unlock()

	conf, err := t.configs.Get()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
	defer cancel()
	c, peer, err := edtls.Dial(ctx, t.dialer, "tcp", hostport, conf, expected)
	if err != nil {
		t.debug(DialFailed{Remote: hostport, Error: err.Error()})
		return "", err
	}
	return t.start(c, peer, hostport)
}

// start runs a worker for an authenticated connection. Dialed
// connections are remembered under hostport, unless a concurrent
// Resolve got there first.
func (t *Transport) start(c *tls.Conn, peer *identity.PublicIdentity, hostport string) (routing.Address, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		c.Close()
		return "", errClosed
	}
	if hostport != "" {
		if local, ok := t.dialed[hostport]; ok {
			t.mu.Unlock()
			c.Close()
			return local, nil
		}
	}
	addr := routing.RandomAddress("tcp.")
	if hostport != "" {
		t.dialed[hostport] = addr
	}
	t.workers[addr] = struct{}{}
	t.mu.Unlock()

	w := &conn{
		transport: t,
		conn:      c,
		peer:      peer,
		hostport:  hostport,
	}
	if err := t.node.Start(addr, w); err != nil {
		t.forget(hostport, addr)
		c.Close()
		return "", err
	}
	t.debug(Connected{
		Address: addr,
		Remote:  c.RemoteAddr().String(),
		Peer:    peer.Identifier.String(),
	})
	return addr, nil
}

func (t *Transport) forget(hostport string, addr routing.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.workers, addr)
	if hostport != "" && t.dialed[hostport] == addr {
		delete(t.dialed, hostport)
	}
}

// Close stops listening and closes every connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	listeners := t.listeners
	t.listeners = nil
	var conns []routing.Address
	for addr := range t.workers {
		conns = append(conns, addr)
	}
	t.mu.Unlock()

	for _, l := range listeners {
		l.Close()
	}
	for _, addr := range conns {
		// may already be gone
		_ = t.node.Stop(addr)
	}
	t.wg.Wait()
	return nil
}

// conn is the worker for one connection. Its handler writes frames;
// a separate goroutine reads them.
type conn struct {
	transport *Transport
	conn      *tls.Conn
	peer      *identity.PublicIdentity
	hostport  string
	done      chan struct{}
}

var _ routing.Initializer = (*conn)(nil)
var _ routing.Shutdowner = (*conn)(nil)

func (w *conn) Initialize(c *routing.Context) error {
	w.done = make(chan struct{})
	w.transport.wg.Add(1)
	go w.read(c)
	return nil
}

func (w *conn) HandleMessage(c *routing.Context, msg *routing.Message) error {
	tm := &wire.TransportMessage{
		Onward:  msg.Onward.Step().Strings(),
		Return:  msg.Return.Strings(),
		Payload: msg.Payload,
		Hops:    uint32(msg.Hops),
	}
	buf, err := pb.MarshalPrefix(tm, MaxFrameSize)
	if err != nil {
		return err
	}
	if _, err := w.conn.Write(buf); err != nil {
		c.Stop()
		return err
	}
	return nil
}

func (w *conn) read(c *routing.Context) {
	defer w.transport.wg.Done()
	defer close(w.done)
	r := bufio.NewReader(w.conn)
	for {
		var tm wire.TransportMessage
		err := pb.UnmarshalPrefix(r, MaxFrameSize, &tm)
		if err == pb.EmptyMessage {
			continue
		}
		if err != nil {
			w.transport.debug(Disconnected{
				Address: c.Address(),
				Remote:  w.conn.RemoteAddr().String(),
				Error:   err.Error(),
			})
			c.Stop()
			return
		}
		if len(tm.Onward) == 0 {
			continue
		}
		msg := &routing.Message{
			Onward:  routing.RouteFromStrings(tm.Onward),
			Return:  routing.RouteFromStrings(tm.Return).Prepend(c.Address()),
			Payload: tm.Payload,
			Hops:    int(tm.Hops),
		}
		if err := c.Forward(msg); err != nil {
			w.transport.debug(routing.Undeliverable{
				From:   c.Address(),
				Onward: msg.Onward.String(),
				Error:  err.Error(),
			})
		}
	}
}

func (w *conn) Shutdown(c *routing.Context) error {
	w.transport.forget(w.hostport, c.Address())
	err := w.conn.Close()
	<-w.done
	return err
}
