// Package codec is the CBOR encoding used for signed and stored
// structures.
//
// Encoding is Core Deterministic (RFC 8949 section 4.2): map keys are
// sorted and integers use their shortest form, so the same value
// always encodes to the same bytes. Signatures are computed over these
// bytes.
package codec

import (
	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// reject ambiguous input that could verify under two readings
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
		// bounds on untrusted input from the network
		MaxArrayElements: 1024,
		MaxMapPairs:      1024,
		MaxNestedLevels:  16,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value.
type RawMessage = cbor.RawMessage
