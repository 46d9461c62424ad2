package routing_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bazil.org/attest/routing"
)

func receive(t *testing.T, c *routing.Context) *routing.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := c.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	return msg
}

func expectNothing(t *testing.T, c *routing.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	msg, err := c.Receive(ctx)
	if err != routing.ErrTimedOut {
		t.Fatalf("expected ErrTimedOut, got %v %+v", err, msg)
	}
}

type echo struct{}

func (echo) HandleMessage(c *routing.Context, msg *routing.Message) error {
	return c.Send(msg.Return, msg.Payload)
}

func TestEcho(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	if err := node.Start("echo", echo{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	c, err := node.NewContext("app")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Send(routing.NewRoute("echo"), []byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := receive(t, c)
	if g, e := string(msg.Payload), "hello"; g != e {
		t.Errorf("wrong payload: %q != %q", g, e)
	}
	if g, e := msg.Return.String(), "echo"; g != e {
		t.Errorf("wrong return route: %q != %q", g, e)
	}
}

func TestOrderPreserved(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	if err := node.Start("echo", echo{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	c, err := node.NewContext("")
	if err != nil {
		t.Fatal(err)
	}
	const n = 100
	for i := 0; i < n; i++ {
		if err := c.Send(routing.NewRoute("echo"), []byte(fmt.Sprint(i))); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	for i := 0; i < n; i++ {
		msg := receive(t, c)
		if g, e := string(msg.Payload), fmt.Sprint(i); g != e {
			t.Fatalf("out of order: %q != %q", g, e)
		}
	}
}

func TestUnknownAddress(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	c, err := node.NewContext("")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Send(routing.NewRoute("nowhere"), nil); err != routing.ErrRoutingFailure {
		t.Errorf("expected ErrRoutingFailure, got %v", err)
	}
	if err := c.Send(routing.NewRoute("tcp:localhost:1"), nil); err != routing.ErrRoutingFailure {
		t.Errorf("unregistered scheme: expected ErrRoutingFailure, got %v", err)
	}
}

func TestAddressInUse(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	if err := node.Start("w", echo{}, routing.Aliases("w2")); err != nil {
		t.Fatal(err)
	}
	if err := node.Start("w2", echo{}); err != routing.ErrAddressInUse {
		t.Errorf("expected ErrAddressInUse, got %v", err)
	}
}

func TestAlias(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	if err := node.Start("echo", echo{}, routing.Aliases("echo2")); err != nil {
		t.Fatal(err)
	}
	c, err := node.NewContext("")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Send(routing.NewRoute("echo2"), []byte("x")); err != nil {
		t.Fatalf("send: %v", err)
	}
	receive(t, c)
}

// relay forwards everything one hop onward.
type relay struct{}

func (relay) HandleMessage(c *routing.Context, msg *routing.Message) error {
	fwd := msg.Forwarded()
	fwd.Return = fwd.Return.Prepend(c.Address())
	return c.Forward(fwd)
}

func TestRelayReturnRoute(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	if err := node.Start("relay", relay{}); err != nil {
		t.Fatal(err)
	}
	if err := node.Start("echo", echo{}); err != nil {
		t.Fatal(err)
	}
	c, err := node.NewContext("app")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Send(routing.NewRoute("relay", "echo"), []byte("via")); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := receive(t, c)
	if g, e := string(msg.Payload), "via"; g != e {
		t.Errorf("wrong payload: %q != %q", g, e)
	}
	if g, e := msg.Return.String(), "relay => echo"; g != e {
		t.Errorf("wrong return route: %q != %q", g, e)
	}
}

func TestOutgoingDenyAll(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	if err := node.Start("relay", relay{}, routing.Outgoing(routing.DenyAll)); err != nil {
		t.Fatal(err)
	}
	sink, err := node.NewContext("sink")
	if err != nil {
		t.Fatal(err)
	}
	c, err := node.NewContext("")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Send(routing.NewRoute("relay", "sink"), []byte("x")); err != nil {
		t.Fatalf("send: %v", err)
	}
	expectNothing(t, sink)
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (w *counter) HandleMessage(c *routing.Context, msg *routing.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.n++
	return nil
}

func (w *counter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

func TestIncomingGate(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	w := &counter{}
	onlyYes := routing.AccessControlFunc(func(ctx context.Context, msg *routing.Message) bool {
		return string(msg.Payload) == "yes"
	})
	if err := node.Start("counter", w, routing.Incoming(onlyYes)); err != nil {
		t.Fatal(err)
	}
	c, err := node.NewContext("")
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"no", "yes", "no", "yes"} {
		// denial is silent
		if err := c.Send(routing.NewRoute("counter"), []byte(p)); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if err := node.Stop("counter"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if g, e := w.count(), 2; g != e {
		t.Errorf("wrong number of deliveries: %d != %d", g, e)
	}
}

type loop struct{}

func (loop) HandleMessage(c *routing.Context, msg *routing.Message) error {
	fwd := *msg
	fwd.Onward = routing.NewRoute(c.Address())
	return c.Forward(&fwd)
}

func TestHopLimit(t *testing.T) {
	var mu sync.Mutex
	var failures []routing.Undeliverable
	debug := func(msg interface{}) {
		if u, ok := msg.(routing.Undeliverable); ok {
			mu.Lock()
			failures = append(failures, u)
			mu.Unlock()
		}
	}
	node := routing.NewNode(routing.Debug(debug))
	defer node.Shutdown()
	if err := node.Start("loop", loop{}); err != nil {
		t.Fatal(err)
	}
	if err := node.Send(context.Background(), routing.NewRoute("loop"), nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(failures)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("loop was never cut off")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if g, e := failures[0].Error, routing.ErrRoutingFailure.Error(); g != e {
		t.Errorf("wrong failure: %q != %q", g, e)
	}
}

type lifecycle struct {
	initialized bool
	shutdown    chan struct{}
	seen        int
}

func (w *lifecycle) Initialize(c *routing.Context) error {
	w.initialized = true
	return nil
}

func (w *lifecycle) HandleMessage(c *routing.Context, msg *routing.Message) error {
	w.seen++
	return nil
}

func (w *lifecycle) Shutdown(c *routing.Context) error {
	close(w.shutdown)
	return nil
}

func TestStopDrainsAndNotifies(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	w := &lifecycle{shutdown: make(chan struct{})}
	if err := node.Start("w", w); err != nil {
		t.Fatal(err)
	}
	if !w.initialized {
		t.Error("Initialize did not run before Start returned")
	}
	notified := make(chan struct{})
	if err := node.NotifyOnStop("w", func() { close(notified) }); err != nil {
		t.Fatalf("notify: %v", err)
	}
	c, err := node.NewContext("")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if err := c.Send(routing.NewRoute("w"), nil); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if err := node.Stop("w"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if g, e := w.seen, 10; g != e {
		t.Errorf("messages queued before stop were not handled: %d != %d", g, e)
	}
	select {
	case <-w.shutdown:
	default:
		t.Error("Shutdown did not run")
	}
	select {
	case <-notified:
	case <-time.After(5 * time.Second):
		t.Error("stop notification did not fire")
	}
	if err := c.Send(routing.NewRoute("w"), nil); err != routing.ErrRoutingFailure {
		t.Errorf("send to stopped worker: expected ErrRoutingFailure, got %v", err)
	}
}

type failingInit struct{}

func (failingInit) Initialize(c *routing.Context) error {
	return fmt.Errorf("nope")
}

func (failingInit) HandleMessage(c *routing.Context, msg *routing.Message) error {
	return nil
}

func TestInitializeError(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	if err := node.Start("w", failingInit{}); err == nil {
		t.Fatal("expected error from Start")
	}
	// the address is free again
	if err := node.Start("w", echo{}); err != nil {
		t.Errorf("restart: %v", err)
	}
}

type fakeTransport struct {
	local routing.Address
}

func (f fakeTransport) Resolve(ctx context.Context, addr routing.Address) (routing.Address, error) {
	return f.local, nil
}

func TestTransportResolve(t *testing.T) {
	node := routing.NewNode()
	defer node.Shutdown()
	conn, err := node.NewContext("conn")
	if err != nil {
		t.Fatal(err)
	}
	node.RegisterTransport("fake", fakeTransport{local: "conn"})
	c, err := node.NewContext("")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Send(routing.NewRoute("fake:far", "remote"), []byte("x")); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := receive(t, conn)
	if g, e := msg.Onward.String(), "conn => remote"; g != e {
		t.Errorf("wrong onward route: %q != %q", g, e)
	}
}

func TestShutdownRefusesWorkers(t *testing.T) {
	node := routing.NewNode()
	node.Shutdown()
	if err := node.Start("w", echo{}); err != routing.ErrShutdown {
		t.Errorf("expected ErrShutdown, got %v", err)
	}
}
