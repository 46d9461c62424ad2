// Package pb frames protobuf messages on byte streams.
//
// A frame is the uvarint length of the marshaled message followed by
// the message. Both sides bound the length, so a peer is told early
// when it would send something the other side refuses to read.
package pb

import (
	"encoding/binary"

	"github.com/golang/protobuf/proto"
)

// MarshalPrefix returns msg as a frame. Messages longer than max bytes
// are a *TooLargeError.
func MarshalPrefix(msg proto.Message, max int) ([]byte, error) {
	var frame [binary.MaxVarintLen64]byte
	body, err := proto.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if len(body) > max {
		return nil, &TooLargeError{Length: uint64(len(body)), Max: max}
	}
	n := binary.PutUvarint(frame[:], uint64(len(body)))
	return append(frame[:n:n], body...), nil
}
