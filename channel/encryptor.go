package channel

import (
	"bazil.org/attest/routing"
	"bazil.org/attest/wire"
	"github.com/golang/protobuf/proto"
)

// encryptor is the application-facing end of a channel. It seals
// every message it receives and sends it to the peer's decryptor.
type encryptor struct {
	remote routing.Route
	sess   *session
}

func (e *encryptor) HandleMessage(c *routing.Context, msg *routing.Message) error {
	inner := &wire.TransportMessage{
		Onward:  msg.Onward.Step().Strings(),
		Return:  msg.Return.Strings(),
		Payload: msg.Payload,
		Hops:    uint32(msg.Hops),
	}
	plain, err := proto.Marshal(inner)
	if err != nil {
		return err
	}
	payload, err := encode(kindData, e.sess.seal(plain))
	if err != nil {
		return err
	}
	return c.Send(e.remote, payload)
}
