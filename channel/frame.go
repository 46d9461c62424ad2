package channel

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"

	"bazil.org/attest/identity"
	"bazil.org/attest/tokens"
	"bazil.org/attest/wire"
	"github.com/golang/protobuf/proto"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/secretbox"
)

// Every channel payload is one kind byte followed by a protobuf
// message.
const (
	kindHello   byte = 1
	kindReply   byte = 2
	kindFinish  byte = 3
	kindConfirm byte = 4
	kindData    byte = 5
)

var (
	errShortFrame = errors.New("channel frame too short")
	errReplay     = errors.New("channel frame counter did not increase")
	errBadBox     = errors.New("channel frame failed to open")
)

func encode(kind byte, msg proto.Message) ([]byte, error) {
	body, err := proto.Marshal(msg)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 1+len(body))
	buf = append(buf, kind)
	return append(buf, body...), nil
}

func decode(payload []byte) (kind byte, body []byte, err error) {
	if len(payload) < 1 {
		return 0, nil, errShortFrame
	}
	return payload[0], payload[1:], nil
}

type ephemeral struct {
	priv [32]byte
	pub  [32]byte
}

func newEphemeral() (*ephemeral, error) {
	var e ephemeral
	if _, err := io.ReadFull(rand.Reader, e.priv[:]); err != nil {
		return nil, err
	}
	pub, err := curve25519.X25519(e.priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(e.pub[:], pub)
	return &e, nil
}

// transcript is what each side signs: its role label, both ephemeral
// keys, initiator first, and the identifiers the signer binds to the
// session.
func transcript(role string, initiator, responder []byte, ids ...identity.Identifier) []byte {
	buf := make([]byte, 0, len(role)+len(initiator)+len(responder)+len(ids)*identity.Size)
	buf = append(buf, role...)
	buf = append(buf, initiator...)
	buf = append(buf, responder...)
	for _, id := range ids {
		buf = append(buf, id[:]...)
	}
	return buf
}

// The responder does not know who it is talking to when it replies,
// so it binds only itself.
func responderTranscript(initiator, responder []byte, responderID identity.Identifier) []byte {
	return transcript(tokens.SignChannelResponder, initiator, responder, responderID)
}

func initiatorTranscript(initiator, responder []byte, initiatorID, responderID identity.Identifier) []byte {
	return transcript(tokens.SignChannelInitiator, initiator, responder, initiatorID, responderID)
}

// session holds the traffic keys of an established channel. The send
// half belongs to the encryptor and the receive half to the
// decryptor, so neither needs locking.
type session struct {
	send        [32]byte
	recv        [32]byte
	sendCounter uint64
	recvCounter uint64
}

// newSession derives per-direction keys from the X25519 shared secret
// of local and remote ephemeral keys. Both identifiers go into the
// key material, so two sides that disagree about who is at either end
// derive different keys.
func newSession(local *ephemeral, remote []byte, initiatorPub, responderPub []byte, initiatorID, responderID identity.Identifier, isInitiator bool) (*session, error) {
	shared, err := curve25519.X25519(local.priv[:], remote)
	if err != nil {
		return nil, err
	}
	material := make([]byte, 0, len(shared)+len(initiatorPub)+len(responderPub)+2*identity.Size)
	material = append(material, shared...)
	material = append(material, initiatorPub...)
	material = append(material, responderPub...)
	material = append(material, initiatorID[:]...)
	material = append(material, responderID[:]...)

	var i2r, r2i [32]byte
	blake3.DeriveKey(tokens.Blake3ChannelInitiatorKey, material, i2r[:])
	blake3.DeriveKey(tokens.Blake3ChannelResponderKey, material, r2i[:])
	s := &session{}
	if isInitiator {
		s.send, s.recv = i2r, r2i
	} else {
		s.send, s.recv = r2i, i2r
	}
	return s, nil
}

func nonce(counter uint64) *[24]byte {
	var n [24]byte
	binary.BigEndian.PutUint64(n[16:], counter)
	return &n
}

func (s *session) seal(plain []byte) *wire.ChannelData {
	s.sendCounter++
	return &wire.ChannelData{
		Counter: s.sendCounter,
		Box:     secretbox.Seal(nil, plain, nonce(s.sendCounter), &s.send),
	}
}

func (s *session) open(d *wire.ChannelData) ([]byte, error) {
	if d.Counter <= s.recvCounter {
		return nil, errReplay
	}
	plain, ok := secretbox.Open(nil, d.Box, nonce(d.Counter), &s.recv)
	if !ok {
		return nil, errBadBox
	}
	s.recvCounter = d.Counter
	return plain, nil
}
