// Package edtls binds an attest identity to a TLS connection.
//
// TLS has no notion of our identities, and the keys behind them may
// live in a vault that cannot hand them out. Instead, each side uses a
// throwaway self-signed certificate, and abuses the extension
// mechanism to carry a "vouch": the identity's exported attestation
// plus a signature, made through the vault, over the certificate
// expiry time and the DER-encoded TLS public key.
//
// If a vouch verifies, and the signed TLS public key is the one the
// peer used in the handshake, the receiver knows the peer holds both
// the identity key and the TLS key.
//
// Vouches cryptographically cover the expiry time of the TLS
// certificate, so a stolen TLS private key is only useful until then.
//
// Clients usually know the identifier of the server they are
// connecting to, and pass it in. Servers learn client identifiers
// from the vouch and decide for themselves.
package edtls
