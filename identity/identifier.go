package identity

import (
	"errors"
	"flag"
	"fmt"

	"bazil.org/attest/tokens"
	"bazil.org/attest/vault"
	"github.com/codahale/blake2"
	"github.com/tv42/zbase32"
)

// Size is the length of an Identifier in bytes.
const Size = 20

// Identifier names an identity. It is derived from the identity's
// primary public key, and never changes for the lifetime of the
// identity.
type Identifier [Size]byte

var (
	_ flag.Value = (*Identifier)(nil)
)

var errNotIdentifier = errors.New("not a valid identifier")

// IdentifierFor derives the identifier of an identity whose primary
// key is pub.
func IdentifierFor(pub vault.PublicKey) Identifier {
	var pers [blake2.PersonalSize]byte
	copy(pers[:], tokens.Blake2bPersonalizationIdentifier)
	h := blake2.New(&blake2.Config{
		Size:     Size,
		Personal: pers[:],
	})
	// hash.Hash docs say it never fails
	_, _ = h.Write([]byte{byte(pub.Type)})
	_, _ = h.Write(pub.Data)
	var id Identifier
	h.Sum(id[:0])
	return id
}

func (id Identifier) String() string {
	return "I" + zbase32.EncodeToString(id[:])
}

func (id *Identifier) Set(value string) error {
	return id.UnmarshalText([]byte(value))
}

func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identifier) UnmarshalText(text []byte) error {
	if len(text) == 0 || text[0] != 'I' {
		return fmt.Errorf("%v: missing I prefix", errNotIdentifier)
	}
	buf, err := zbase32.DecodeString(string(text[1:]))
	if err != nil {
		return fmt.Errorf("%v: %v", errNotIdentifier, err)
	}
	if len(buf) != Size {
		return fmt.Errorf("%v: wrong size", errNotIdentifier)
	}
	copy(id[:], buf)
	return nil
}

func (id Identifier) MarshalBinary() ([]byte, error) {
	return id[:], nil
}

func (id *Identifier) UnmarshalBinary(data []byte) error {
	if len(data) != Size {
		return fmt.Errorf("%v: wrong size", errNotIdentifier)
	}
	copy(id[:], data)
	return nil
}
