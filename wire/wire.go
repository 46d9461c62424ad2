// Package wire contains the protobuf messages exchanged between
// nodes.
//
// The messages are plain structs with protobuf field tags, encoded
// with github.com/golang/protobuf. Field numbers are part of the wire
// format and must never be reused.
package wire

import (
	"github.com/golang/protobuf/proto"
)

// TransportMessage is a routed message as carried by transports, and
// inside secure channel data frames.
type TransportMessage struct {
	Onward  []string `protobuf:"bytes,1,rep,name=onward,proto3" json:"onward,omitempty"`
	Return  []string `protobuf:"bytes,2,rep,name=return,proto3" json:"return,omitempty"`
	Payload []byte   `protobuf:"bytes,3,opt,name=payload,proto3" json:"payload,omitempty"`
	Hops    uint32   `protobuf:"varint,4,opt,name=hops,proto3" json:"hops,omitempty"`
}

func (m *TransportMessage) Reset()         { *m = TransportMessage{} }
func (m *TransportMessage) String() string { return proto.CompactTextString(m) }
func (*TransportMessage) ProtoMessage()    {}

// ChannelHello starts a secure channel handshake.
type ChannelHello struct {
	Ephemeral []byte `protobuf:"bytes,1,opt,name=ephemeral,proto3" json:"ephemeral,omitempty"`
}

func (m *ChannelHello) Reset()         { *m = ChannelHello{} }
func (m *ChannelHello) String() string { return proto.CompactTextString(m) }
func (*ChannelHello) ProtoMessage()    {}

// ChannelReply is the responder's half of the key exchange, with its
// identity and a signature over both ephemeral keys.
type ChannelReply struct {
	Ephemeral []byte `protobuf:"bytes,1,opt,name=ephemeral,proto3" json:"ephemeral,omitempty"`
	Identity  []byte `protobuf:"bytes,2,opt,name=identity,proto3" json:"identity,omitempty"`
	Signature []byte `protobuf:"bytes,3,opt,name=signature,proto3" json:"signature,omitempty"`
}

func (m *ChannelReply) Reset()         { *m = ChannelReply{} }
func (m *ChannelReply) String() string { return proto.CompactTextString(m) }
func (*ChannelReply) ProtoMessage()    {}

// ChannelFinish carries the initiator's identity and signature.
type ChannelFinish struct {
	Identity  []byte `protobuf:"bytes,1,opt,name=identity,proto3" json:"identity,omitempty"`
	Signature []byte `protobuf:"bytes,2,opt,name=signature,proto3" json:"signature,omitempty"`
}

func (m *ChannelFinish) Reset()         { *m = ChannelFinish{} }
func (m *ChannelFinish) String() string { return proto.CompactTextString(m) }
func (*ChannelFinish) ProtoMessage()    {}

// ChannelData is an encrypted TransportMessage. Counter is the nonce,
// and strictly increases per direction.
type ChannelData struct {
	Counter uint64 `protobuf:"varint,1,opt,name=counter,proto3" json:"counter,omitempty"`
	Box     []byte `protobuf:"bytes,2,opt,name=box,proto3" json:"box,omitempty"`
}

func (m *ChannelData) Reset()         { *m = ChannelData{} }
func (m *ChannelData) String() string { return proto.CompactTextString(m) }
func (*ChannelData) ProtoMessage()    {}

// PresentCredential offers a credential to an exchange worker. An
// empty credential acknowledges a presentation.
type PresentCredential struct {
	Credential    []byte `protobuf:"bytes,1,opt,name=credential,proto3" json:"credential,omitempty"`
	RequestMutual bool   `protobuf:"varint,2,opt,name=request_mutual,json=requestMutual,proto3" json:"request_mutual,omitempty"`
}

func (m *PresentCredential) Reset()         { *m = PresentCredential{} }
func (m *PresentCredential) String() string { return proto.CompactTextString(m) }
func (*PresentCredential) ProtoMessage()    {}
