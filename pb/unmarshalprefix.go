package pb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/golang/protobuf/proto"
)

// EmptyMessage is returned for a zero length frame, so callers can
// ignore it.
var EmptyMessage = errors.New("empty message")

// TooLargeError is returned when a length prefix exceeds the limit.
type TooLargeError struct {
	Length uint64
	Max    int
}

var _ error = (*TooLargeError)(nil)

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("message too large: %d > %d", e.Length, e.Max)
}

// UnmarshalPrefix reads one uvarint length prefixed protobuf message
// from r. Messages longer than max bytes are refused without reading
// them.
func UnmarshalPrefix(r io.ByteReader, max int, msg proto.Message) error {
	length, err := binary.ReadUvarint(r)
	if err != nil {
		return err
	}

	// signal zero message to caller, so they can ignore
	if length == 0 {
		return EmptyMessage
	}
	if length > uint64(max) {
		return &TooLargeError{Length: length, Max: max}
	}

	buf := make([]byte, length)
	if rd, ok := r.(io.Reader); ok {
		if _, err := io.ReadFull(rd, buf); err != nil {
			return noEOF(err)
		}
	} else {
		for i := range buf {
			b, err := r.ReadByte()
			if err != nil {
				return noEOF(err)
			}
			buf[i] = b
		}
	}
	if err := proto.Unmarshal(buf, msg); err != nil {
		return fmt.Errorf("unmarshal problem: %v", err)
	}
	return nil
}

// a stream ending inside a frame is not a clean end
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
