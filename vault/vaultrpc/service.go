// Package vaultrpc serves a vault over gRPC, and talks to one.
//
// The service is attest.vault.Vault. Private keys stay with the
// server; clients only ever see key ids, public keys and signatures.
// Verification needs no secrets and is done locally by the client.
package vaultrpc

import (
	"golang.org/x/net/context"
	"google.golang.org/grpc"

	"bazil.org/attest/wire"
)

const serviceName = "attest.vault.Vault"

// vaultServer is the server API of the service.
type vaultServer interface {
	GenerateKey(context.Context, *wire.VaultGenerateKeyRequest) (*wire.VaultKeyResponse, error)
	PublicKey(context.Context, *wire.VaultKeyRequest) (*wire.VaultPublicKeyResponse, error)
	SecretAttributes(context.Context, *wire.VaultKeyRequest) (*wire.VaultSecretAttributesResponse, error)
	Sign(context.Context, *wire.VaultSignRequest) (*wire.VaultSignResponse, error)
	DeleteKey(context.Context, *wire.VaultKeyRequest) (*wire.VaultEmpty, error)
}

func handler(method string, newReq func() interface{}, call func(vaultServer, context.Context, interface{}) (interface{}, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			req := newReq()
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(vaultServer), ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + method,
			}
			h := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(vaultServer), ctx, req)
			}
			return interceptor(ctx, req, info, h)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*vaultServer)(nil),
	Methods: []grpc.MethodDesc{
		handler("GenerateKey",
			func() interface{} { return new(wire.VaultGenerateKeyRequest) },
			func(s vaultServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.GenerateKey(ctx, req.(*wire.VaultGenerateKeyRequest))
			}),
		handler("PublicKey",
			func() interface{} { return new(wire.VaultKeyRequest) },
			func(s vaultServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.PublicKey(ctx, req.(*wire.VaultKeyRequest))
			}),
		handler("SecretAttributes",
			func() interface{} { return new(wire.VaultKeyRequest) },
			func(s vaultServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.SecretAttributes(ctx, req.(*wire.VaultKeyRequest))
			}),
		handler("Sign",
			func() interface{} { return new(wire.VaultSignRequest) },
			func(s vaultServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.Sign(ctx, req.(*wire.VaultSignRequest))
			}),
		handler("DeleteKey",
			func() interface{} { return new(wire.VaultKeyRequest) },
			func(s vaultServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.DeleteKey(ctx, req.(*wire.VaultKeyRequest))
			}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vault.proto",
}

func method(name string) string {
	return "/" + serviceName + "/" + name
}
