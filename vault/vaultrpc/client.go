package vaultrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bazil.org/attest/vault"
	"bazil.org/attest/wire"
)

// Client is a vault served by a remote process.
type Client struct {
	conn *grpc.ClientConn
}

var _ vault.Vault = (*Client)(nil)

func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// fromStatus turns an RPC failure into a vault failure. Transport
// problems and server errors alike fail the operation.
func fromStatus(op string, key vault.KeyID, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return vault.Failed(op, key, vault.ErrKeyNotFound)
	case codes.InvalidArgument:
		return vault.Failed(op, key, vault.ErrUnsupportedType)
	}
	return vault.Failed(op, key, err)
}

func (c *Client) GenerateKey(ctx context.Context, attrs vault.SecretAttributes) (vault.KeyID, error) {
	req := &wire.VaultGenerateKeyRequest{
		Type:       uint32(attrs.Type),
		Persistent: attrs.Persistent,
	}
	var resp wire.VaultKeyResponse
	if err := c.conn.Invoke(ctx, method("GenerateKey"), req, &resp); err != nil {
		return "", fromStatus("generate", "", err)
	}
	return vault.KeyID(resp.KeyId), nil
}

func (c *Client) PublicKey(ctx context.Context, key vault.KeyID) (vault.PublicKey, error) {
	var resp wire.VaultPublicKeyResponse
	if err := c.conn.Invoke(ctx, method("PublicKey"), &wire.VaultKeyRequest{KeyId: string(key)}, &resp); err != nil {
		return vault.PublicKey{}, fromStatus("public key", key, err)
	}
	return vault.PublicKey{Type: vault.SecretType(resp.Type), Data: resp.Data}, nil
}

func (c *Client) SecretAttributes(ctx context.Context, key vault.KeyID) (vault.SecretAttributes, error) {
	var resp wire.VaultSecretAttributesResponse
	if err := c.conn.Invoke(ctx, method("SecretAttributes"), &wire.VaultKeyRequest{KeyId: string(key)}, &resp); err != nil {
		return vault.SecretAttributes{}, fromStatus("secret attributes", key, err)
	}
	return vault.SecretAttributes{Type: vault.SecretType(resp.Type), Persistent: resp.Persistent}, nil
}

func (c *Client) Sign(ctx context.Context, key vault.KeyID, message []byte) ([]byte, error) {
	var resp wire.VaultSignResponse
	req := &wire.VaultSignRequest{KeyId: string(key), Message: message}
	if err := c.conn.Invoke(ctx, method("Sign"), req, &resp); err != nil {
		return nil, fromStatus("sign", key, err)
	}
	return resp.Signature, nil
}

// Verify runs locally.
func (c *Client) Verify(ctx context.Context, pub vault.PublicKey, message, signature []byte) (bool, error) {
	return vault.VerifySignature(pub, message, signature), nil
}

func (c *Client) DeleteKey(ctx context.Context, key vault.KeyID) error {
	var resp wire.VaultEmpty
	if err := c.conn.Invoke(ctx, method("DeleteKey"), &wire.VaultKeyRequest{KeyId: string(key)}, &resp); err != nil {
		return fromStatus("delete", key, err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
