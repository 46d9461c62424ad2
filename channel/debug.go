package channel

import (
	"errors"
)

var errNoPolicy = errors.New("a trust policy is required")

// HandshakeFailed is a debug event for a handshake that did not
// complete.
type HandshakeFailed struct {
	Address string
	Role    string
	Peer    string `json:",omitempty"`
	Error   string
}

// Established is a debug event for a new channel.
type Established struct {
	Role      string
	Encryptor string
	Decryptor string
	Peer      string
}

// FrameDropped is a debug event for a channel frame that was
// discarded.
type FrameDropped struct {
	Address string
	Error   string
}
