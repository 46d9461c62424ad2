package routing

import (
	"bazil.org/attest/identity"
)

// MaxHops bounds how many mailboxes one message may pass through.
// Routes may revisit a worker, so a loop ends here instead of being
// detected.
const MaxHops = 32

// Message is what workers send and receive.
//
// When a worker receives a message, the first hop of Onward is the
// address it was delivered to.
type Message struct {
	Onward  Route
	Return  Route
	Payload []byte

	// Hops counts deliveries so far.
	Hops int

	sender    identity.Identifier
	hasSender bool
}

// Sender returns the identifier the message was authenticated as, if
// it arrived through a secure channel.
func (m *Message) Sender() (identity.Identifier, bool) {
	return m.sender, m.hasSender
}

// SetSender records the authenticated origin of m. Only the secure
// channel layer calls this; the value never travels on the wire.
func (m *Message) SetSender(id identity.Identifier) {
	m.sender = id
	m.hasSender = true
}

// ClearSender forgets the authenticated origin of m.
func (m *Message) ClearSender() {
	m.sender = identity.Identifier{}
	m.hasSender = false
}

// Forwarded returns a copy of m stepped past the current hop,
// keeping its return route and sender.
func (m *Message) Forwarded() *Message {
	c := *m
	c.Onward = m.Onward.Step()
	c.Return = NewRoute(m.Return...)
	return &c
}
