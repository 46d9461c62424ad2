package vaultrpc

import (
	"errors"

	"golang.org/x/net/context"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bazil.org/attest/identity"
	"bazil.org/attest/util/grpcedtls"
	"bazil.org/attest/vault"
	"bazil.org/attest/wire"
)

type server struct {
	v vault.Vault
}

var _ vaultServer = (*server)(nil)

// Register serves v on s.
func Register(s *grpc.Server, v vault.Vault) {
	s.RegisterService(&serviceDesc, &server{v: v})
}

// Allow returns a server option admitting only callers whose edtls
// identity passes allow. Use it with grpcedtls transport credentials.
func Allow(allow func(identity.Identifier) bool) grpc.ServerOption {
	check := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		pub, ok := grpcedtls.FromContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "no edtls identity")
		}
		if !allow(pub.Identifier) {
			return nil, status.Error(codes.PermissionDenied, "identity not allowed")
		}
		return handler(ctx, req)
	}
	return grpc.UnaryInterceptor(check)
}

// toStatus maps vault errors to gRPC status errors.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, vault.ErrKeyNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, vault.ErrUnsupportedType):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func (s *server) GenerateKey(ctx context.Context, req *wire.VaultGenerateKeyRequest) (*wire.VaultKeyResponse, error) {
	attrs := vault.SecretAttributes{
		Type:       vault.SecretType(req.Type),
		Persistent: req.Persistent,
	}
	if !attrs.Type.Valid() {
		return nil, toStatus(vault.ErrUnsupportedType)
	}
	key, err := s.v.GenerateKey(ctx, attrs)
	if err != nil {
		return nil, toStatus(err)
	}
	return &wire.VaultKeyResponse{KeyId: string(key)}, nil
}

func (s *server) PublicKey(ctx context.Context, req *wire.VaultKeyRequest) (*wire.VaultPublicKeyResponse, error) {
	pub, err := s.v.PublicKey(ctx, vault.KeyID(req.KeyId))
	if err != nil {
		return nil, toStatus(err)
	}
	return &wire.VaultPublicKeyResponse{Type: uint32(pub.Type), Data: pub.Data}, nil
}

func (s *server) SecretAttributes(ctx context.Context, req *wire.VaultKeyRequest) (*wire.VaultSecretAttributesResponse, error) {
	attrs, err := s.v.SecretAttributes(ctx, vault.KeyID(req.KeyId))
	if err != nil {
		return nil, toStatus(err)
	}
	return &wire.VaultSecretAttributesResponse{Type: uint32(attrs.Type), Persistent: attrs.Persistent}, nil
}

func (s *server) Sign(ctx context.Context, req *wire.VaultSignRequest) (*wire.VaultSignResponse, error) {
	sig, err := s.v.Sign(ctx, vault.KeyID(req.KeyId), req.Message)
	if err != nil {
		return nil, toStatus(err)
	}
	return &wire.VaultSignResponse{Signature: sig}, nil
}

func (s *server) DeleteKey(ctx context.Context, req *wire.VaultKeyRequest) (*wire.VaultEmpty, error) {
	if err := s.v.DeleteKey(ctx, vault.KeyID(req.KeyId)); err != nil {
		return nil, toStatus(err)
	}
	return &wire.VaultEmpty{}, nil
}
