package channel

import (
	"fmt"
	"time"

	"bazil.org/attest/identity"
	"bazil.org/attest/routing"
	"bazil.org/attest/wire"
	"github.com/golang/protobuf/proto"
)

// listener turns each Hello into a responder worker, which carries
// the rest of that handshake.
type listener struct {
	local *identity.Identity
	opts  ListenerOptions
}

func (l *listener) HandleMessage(c *routing.Context, msg *routing.Message) error {
	kind, body, err := decode(msg.Payload)
	if err != nil {
		return err
	}
	if kind != kindHello {
		return fmt.Errorf("listener got frame kind %d", kind)
	}
	var hello wire.ChannelHello
	if err := proto.Unmarshal(body, &hello); err != nil {
		return err
	}
	if len(hello.Ephemeral) != 32 {
		return fmt.Errorf("bad ephemeral key length %d", len(hello.Ephemeral))
	}
	eph, err := newEphemeral()
	if err != nil {
		return err
	}
	d := &decryptor{
		node:          c.Node(),
		local:         l.local,
		policy:        l.opts.Policy,
		eph:           eph,
		remote:        routing.NewRoute(msg.Return...),
		initiatorEph:  hello.Ephemeral,
		onEstablished: l.opts.Established,
	}
	d.self = routing.RandomAddress("sc.")
	if err := c.Node().Start(d.self, d); err != nil {
		return err
	}
	// a responder left waiting for Finish gives up
	time.AfterFunc(timeoutOr(l.opts.Timeout), d.expire)
	return nil
}
