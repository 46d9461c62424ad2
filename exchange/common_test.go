package exchange_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"bazil.org/attest/credential"
	"bazil.org/attest/identity"
	"bazil.org/attest/routing"
	"bazil.org/attest/transport/tcp"
	"bazil.org/attest/vault/vaultmem"
)

func newIdentity(t testing.TB) *identity.Identity {
	id, err := identity.Create(context.Background(), identity.Vaults{Identity: vaultmem.New()})
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}
	return id
}

// issue attaches a credential from authority to subject.
func issue(t testing.TB, authority, subject *identity.Identity, attrs map[string][]byte) {
	c, err := credential.Issue(context.Background(), authority, subject.Identifier(), attrs, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	buf, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal credential: %v", err)
	}
	subject.SetCredential(buf)
}

// topology places a server and a client node, and tells the client
// how to reach the server's listener.
type topology struct {
	name  string
	setup func(t *testing.T, server, client *identity.Identity) (serverNode, clientNode *routing.Node, listener routing.Route)
}

func inProcess(t *testing.T, server, client *identity.Identity) (*routing.Node, *routing.Node, routing.Route) {
	node := routing.NewNode(routing.Debug(debugLog(t)))
	t.Cleanup(node.Shutdown)
	return node, node, routing.NewRoute("listener")
}

func overTCP(t *testing.T, server, client *identity.Identity) (*routing.Node, *routing.Node, routing.Route) {
	serverNode := routing.NewNode(routing.Debug(debugLog(t)))
	clientNode := routing.NewNode(routing.Debug(debugLog(t)))
	serverT := tcp.New(serverNode, server, tcp.Options{})
	addr, err := serverT.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	clientT := tcp.New(clientNode, client, tcp.Options{})
	t.Cleanup(func() {
		clientT.Close()
		serverT.Close()
		clientNode.Shutdown()
		serverNode.Shutdown()
	})
	return serverNode, clientNode, routing.NewRoute(tcp.Address(addr.String()), "listener")
}

var topologies = []topology{
	{"inprocess", inProcess},
	{"tcp", overTCP},
}

func debugLog(t *testing.T) func(msg interface{}) {
	var mu sync.Mutex
	done := false
	t.Cleanup(func() {
		mu.Lock()
		done = true
		mu.Unlock()
	})
	return func(msg interface{}) {
		mu.Lock()
		defer mu.Unlock()
		if !done {
			t.Logf("debug: %T %+v", msg, msg)
		}
	}
}

// counter records what it receives. It never replies.
type counter struct {
	got chan []byte
}

func newCounter() *counter {
	return &counter{got: make(chan []byte, 100)}
}

func (c *counter) HandleMessage(ctx *routing.Context, msg *routing.Message) error {
	c.got <- msg.Payload
	return nil
}

// expectNone fails if anything arrives within wait.
func (c *counter) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case p := <-c.got:
		t.Errorf("unexpected delivery: %q", p)
	case <-time.After(wait):
	}
}

func (c *counter) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case p := <-c.got:
		if g, e := string(p), want; g != e {
			t.Errorf("wrong delivery: %q != %q", g, e)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no delivery of %q", want)
	}
}
