package channel

import (
	"bytes"
	"fmt"
	"sync/atomic"

	"bazil.org/attest/identity"
	"bazil.org/attest/routing"
	"bazil.org/attest/trust"
	"bazil.org/attest/wire"
	"github.com/golang/protobuf/proto"
)

type state int

const (
	stateHandshaking state = iota
	stateEstablished
	stateFailed
)

// decryptor runs one side of the handshake and then opens the peer's
// data frames. The initiator side reports the outcome on results.
type decryptor struct {
	node      *routing.Node
	self      routing.Address
	local     *identity.Identity
	policy    trust.Policy
	initiator bool
	eph       *ephemeral
	// route to the peer's listener, and after the first reply, to
	// the peer's decryptor
	remote routing.Route

	// responder only
	initiatorEph  []byte
	onEstablished func(*Channel)
	open          atomic.Bool

	// initiator only
	results chan<- result

	state   state
	sess    *session
	peer    *identity.PublicIdentity
	channel *Channel
}

func (d *decryptor) role() string {
	if d.initiator {
		return "initiator"
	}
	return "responder"
}

func (d *decryptor) initiatorPub() []byte {
	if d.initiator {
		return d.eph.pub[:]
	}
	return d.initiatorEph
}

func (d *decryptor) responderPub(peer []byte) []byte {
	if d.initiator {
		return peer
	}
	return d.eph.pub[:]
}

func (d *decryptor) Initialize(c *routing.Context) error {
	if d.initiator {
		payload, err := encode(kindHello, &wire.ChannelHello{Ephemeral: d.eph.pub[:]})
		if err != nil {
			return err
		}
		return c.Send(d.remote, payload)
	}

	sig, err := d.local.Sign(c, responderTranscript(d.initiatorEph, d.eph.pub[:], d.local.Identifier()))
	if err != nil {
		return err
	}
	export, err := d.local.Export()
	if err != nil {
		return err
	}
	payload, err := encode(kindReply, &wire.ChannelReply{
		Ephemeral: d.eph.pub[:],
		Identity:  export,
		Signature: sig,
	})
	if err != nil {
		return err
	}
	return c.Send(d.remote, payload)
}

// expire stops a responder that never completed its handshake.
func (d *decryptor) expire() {
	if d.open.Load() {
		return
	}
	_ = d.node.Stop(d.self)
}

func (d *decryptor) fail(c *routing.Context, peer string, err error) {
	d.state = stateFailed
	c.Node().Debug(HandshakeFailed{
		Address: string(c.Address()),
		Role:    d.role(),
		Peer:    peer,
		Error:   err.Error(),
	})
	if d.initiator {
		d.results <- result{err: err}
	}
	c.Stop()
}

// authenticate checks the peer's identity, its signature over the
// transcript naming it, and the trust policy.
func (d *decryptor) authenticate(c *routing.Context, export, sig []byte, transcript func(peer identity.Identifier) []byte) (*identity.PublicIdentity, error) {
	peer, err := identity.Import(nil, export)
	if err != nil {
		return nil, err
	}
	if !peer.Verify(transcript(peer.Identifier), sig) {
		return peer, fmt.Errorf("%w: bad handshake signature from %v", ErrAuthenticationFailed, peer.Identifier)
	}
	ok, err := d.policy.Check(c, peer.Identifier)
	if err != nil {
		return peer, fmt.Errorf("%w: trust policy: %v", ErrAuthenticationFailed, err)
	}
	if !ok {
		return peer, fmt.Errorf("%w: %v is not trusted", ErrAuthenticationFailed, peer.Identifier)
	}
	return peer, nil
}

func (d *decryptor) HandleMessage(c *routing.Context, msg *routing.Message) error {
	kind, body, err := decode(msg.Payload)
	if err != nil {
		return err
	}
	switch {
	case d.state == stateEstablished && kind == kindData:
		return d.handleData(c, body)
	case d.state == stateHandshaking && d.initiator && kind == kindReply:
		return d.handleReply(c, msg, body)
	case d.state == stateHandshaking && d.initiator && kind == kindConfirm:
		return d.handleConfirm(c, body)
	case d.state == stateHandshaking && !d.initiator && kind == kindFinish:
		return d.handleFinish(c, msg, body)
	}
	c.Node().Debug(FrameDropped{Address: string(c.Address()), Error: fmt.Sprintf("unexpected frame kind %d", kind)})
	return nil
}

func (d *decryptor) handleReply(c *routing.Context, msg *routing.Message, body []byte) error {
	if d.sess != nil {
		// one reply per handshake
		return nil
	}
	var reply wire.ChannelReply
	if err := proto.Unmarshal(body, &reply); err != nil {
		d.fail(c, "", fmt.Errorf("%w: %v", ErrAuthenticationFailed, err))
		return nil
	}
	peer, err := d.authenticate(c, reply.Identity, reply.Signature, func(responder identity.Identifier) []byte {
		return responderTranscript(d.eph.pub[:], reply.Ephemeral, responder)
	})
	if err != nil {
		var who string
		if peer != nil {
			who = peer.Identifier.String()
		}
		d.fail(c, who, err)
		return nil
	}
	sess, err := newSession(d.eph, reply.Ephemeral, d.eph.pub[:], reply.Ephemeral, d.local.Identifier(), peer.Identifier, true)
	if err != nil {
		d.fail(c, peer.Identifier.String(), fmt.Errorf("%w: %v", ErrAuthenticationFailed, err))
		return nil
	}

	sig, err := d.local.Sign(c, initiatorTranscript(d.eph.pub[:], reply.Ephemeral, d.local.Identifier(), peer.Identifier))
	if err != nil {
		d.fail(c, peer.Identifier.String(), err)
		return nil
	}
	export, err := d.local.Export()
	if err != nil {
		d.fail(c, peer.Identifier.String(), err)
		return nil
	}
	payload, err := encode(kindFinish, &wire.ChannelFinish{Identity: export, Signature: sig})
	if err != nil {
		d.fail(c, peer.Identifier.String(), err)
		return nil
	}
	d.remote = routing.NewRoute(msg.Return...)
	d.peer = peer
	d.sess = sess
	if err := c.Send(d.remote, payload); err != nil {
		d.fail(c, peer.Identifier.String(), err)
	}
	return nil
}

func (d *decryptor) handleConfirm(c *routing.Context, body []byte) error {
	if d.sess == nil {
		return nil
	}
	var data wire.ChannelData
	if err := proto.Unmarshal(body, &data); err != nil {
		d.fail(c, d.peer.Identifier.String(), fmt.Errorf("%w: %v", ErrAuthenticationFailed, err))
		return nil
	}
	plain, err := d.sess.open(&data)
	if err != nil || !bytes.Equal(plain, confirmation) {
		d.fail(c, d.peer.Identifier.String(), fmt.Errorf("%w: bad confirmation", ErrAuthenticationFailed))
		return nil
	}
	ch, err := d.establish(c)
	if err != nil {
		d.fail(c, d.peer.Identifier.String(), err)
		return nil
	}
	d.results <- result{ch: ch}
	return nil
}

var confirmation = []byte("confirm")

func (d *decryptor) handleFinish(c *routing.Context, msg *routing.Message, body []byte) error {
	var finish wire.ChannelFinish
	if err := proto.Unmarshal(body, &finish); err != nil {
		d.fail(c, "", err)
		return nil
	}
	peer, err := d.authenticate(c, finish.Identity, finish.Signature, func(initiator identity.Identifier) []byte {
		return initiatorTranscript(d.initiatorEph, d.eph.pub[:], initiator, d.local.Identifier())
	})
	if err != nil {
		// the rejected initiator hears nothing
		var who string
		if peer != nil {
			who = peer.Identifier.String()
		}
		d.fail(c, who, err)
		return nil
	}
	sess, err := newSession(d.eph, d.initiatorEph, d.initiatorEph, d.eph.pub[:], peer.Identifier, d.local.Identifier(), false)
	if err != nil {
		d.fail(c, peer.Identifier.String(), err)
		return nil
	}
	d.remote = routing.NewRoute(msg.Return...)
	d.peer = peer
	d.sess = sess

	payload, err := encode(kindConfirm, sess.seal(confirmation))
	if err != nil {
		d.fail(c, peer.Identifier.String(), err)
		return nil
	}
	if err := c.Send(d.remote, payload); err != nil {
		d.fail(c, peer.Identifier.String(), err)
		return nil
	}
	ch, err := d.establish(c)
	if err != nil {
		d.fail(c, peer.Identifier.String(), err)
		return nil
	}
	d.open.Store(true)
	if d.onEstablished != nil {
		d.onEstablished(ch)
	}
	return nil
}

// establish starts the encryptor and ties the lifetimes of both
// workers and the first hop toward the peer together.
func (d *decryptor) establish(c *routing.Context) (*Channel, error) {
	enc := &encryptor{
		remote: d.remote,
		sess:   d.sess,
	}
	encAddr := routing.RandomAddress("sc.")
	if err := c.Node().Start(encAddr, enc); err != nil {
		return nil, err
	}
	ch := &Channel{
		node:      c.Node(),
		encryptor: encAddr,
		decryptor: c.Address(),
		peer:      d.peer,
	}
	d.channel = ch
	d.state = stateEstablished

	node := c.Node()
	if err := node.NotifyOnStop(encAddr, ch.stopLater); err != nil {
		return nil, err
	}
	if err := node.NotifyOnStop(c.Address(), ch.stopLater); err != nil {
		return nil, err
	}
	if hop, ok := d.remote.Next(); ok && hop != c.Address() {
		// the first hop may be the peer's decryptor on this same
		// node, or a transport connection
		if err := node.NotifyOnStop(hop, ch.stopLater); err != nil {
			ch.stopLater()
		}
	}
	node.Debug(Established{
		Role:      d.role(),
		Encryptor: string(encAddr),
		Decryptor: string(c.Address()),
		Peer:      d.peer.Identifier.String(),
	})
	return ch, nil
}

func (d *decryptor) handleData(c *routing.Context, body []byte) error {
	var data wire.ChannelData
	if err := proto.Unmarshal(body, &data); err != nil {
		return err
	}
	plain, err := d.sess.open(&data)
	if err != nil {
		c.Node().Debug(FrameDropped{Address: string(c.Address()), Error: err.Error()})
		return nil
	}
	var inner wire.TransportMessage
	if err := proto.Unmarshal(plain, &inner); err != nil {
		return err
	}
	out := &routing.Message{
		Onward:  routing.RouteFromStrings(inner.Onward),
		Return:  routing.RouteFromStrings(inner.Return).Prepend(d.channel.encryptor),
		Payload: inner.Payload,
		Hops:    int(inner.Hops),
	}
	out.SetSender(d.peer.Identifier)
	return c.Forward(out)
}
