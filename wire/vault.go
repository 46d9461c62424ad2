package wire

import (
	"github.com/golang/protobuf/proto"
)

// Messages of the attest.vault.Vault gRPC service.

type VaultGenerateKeyRequest struct {
	Type       uint32 `protobuf:"varint,1,opt,name=type,proto3" json:"type,omitempty"`
	Persistent bool   `protobuf:"varint,2,opt,name=persistent,proto3" json:"persistent,omitempty"`
}

func (m *VaultGenerateKeyRequest) Reset()         { *m = VaultGenerateKeyRequest{} }
func (m *VaultGenerateKeyRequest) String() string { return proto.CompactTextString(m) }
func (*VaultGenerateKeyRequest) ProtoMessage()    {}

type VaultKeyRequest struct {
	KeyId string `protobuf:"bytes,1,opt,name=key_id,json=keyId,proto3" json:"key_id,omitempty"`
}

func (m *VaultKeyRequest) Reset()         { *m = VaultKeyRequest{} }
func (m *VaultKeyRequest) String() string { return proto.CompactTextString(m) }
func (*VaultKeyRequest) ProtoMessage()    {}

type VaultKeyResponse struct {
	KeyId string `protobuf:"bytes,1,opt,name=key_id,json=keyId,proto3" json:"key_id,omitempty"`
}

func (m *VaultKeyResponse) Reset()         { *m = VaultKeyResponse{} }
func (m *VaultKeyResponse) String() string { return proto.CompactTextString(m) }
func (*VaultKeyResponse) ProtoMessage()    {}

type VaultPublicKeyResponse struct {
	Type uint32 `protobuf:"varint,1,opt,name=type,proto3" json:"type,omitempty"`
	Data []byte `protobuf:"bytes,2,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *VaultPublicKeyResponse) Reset()         { *m = VaultPublicKeyResponse{} }
func (m *VaultPublicKeyResponse) String() string { return proto.CompactTextString(m) }
func (*VaultPublicKeyResponse) ProtoMessage()    {}

type VaultSecretAttributesResponse struct {
	Type       uint32 `protobuf:"varint,1,opt,name=type,proto3" json:"type,omitempty"`
	Persistent bool   `protobuf:"varint,2,opt,name=persistent,proto3" json:"persistent,omitempty"`
}

func (m *VaultSecretAttributesResponse) Reset()         { *m = VaultSecretAttributesResponse{} }
func (m *VaultSecretAttributesResponse) String() string { return proto.CompactTextString(m) }
func (*VaultSecretAttributesResponse) ProtoMessage()    {}

type VaultSignRequest struct {
	KeyId   string `protobuf:"bytes,1,opt,name=key_id,json=keyId,proto3" json:"key_id,omitempty"`
	Message []byte `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *VaultSignRequest) Reset()         { *m = VaultSignRequest{} }
func (m *VaultSignRequest) String() string { return proto.CompactTextString(m) }
func (*VaultSignRequest) ProtoMessage()    {}

type VaultSignResponse struct {
	Signature []byte `protobuf:"bytes,1,opt,name=signature,proto3" json:"signature,omitempty"`
}

func (m *VaultSignResponse) Reset()         { *m = VaultSignResponse{} }
func (m *VaultSignResponse) String() string { return proto.CompactTextString(m) }
func (*VaultSignResponse) ProtoMessage()    {}

type VaultEmpty struct{}

func (m *VaultEmpty) Reset()         { *m = VaultEmpty{} }
func (m *VaultEmpty) String() string { return proto.CompactTextString(m) }
func (*VaultEmpty) ProtoMessage()    {}
