package tcp

import (
	"bazil.org/attest/routing"
)

type Listening struct {
	Address string
}

type AcceptFailed struct {
	Remote string `json:",omitempty"`
	Error  string
}

type DialFailed struct {
	Remote string
	Error  string
}

// Connected is a debug event for an authenticated connection.
type Connected struct {
	Address routing.Address
	Remote  string
	Peer    string
}

// Disconnected is a debug event for a connection whose reads ended.
type Disconnected struct {
	Address routing.Address
	Remote  string
	Error   string
}
