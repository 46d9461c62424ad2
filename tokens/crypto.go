package tokens

// Blake2b personalization prefix for vault key ids
const Blake2bPersonalizationKeyID = "attest:keyid"

// Blake2b personalization prefix for identity identifiers
const Blake2bPersonalizationIdentifier = "attest:ident"

// Signing contexts. Every signature made with an identity key starts
// with one of these, so a signature for one purpose can never be
// replayed as another.
const (
	SignIdentityProof     = "attest-identity-proof\n"
	SignCredentialKey     = "attest-credential-key\n"
	SignCredential        = "attest-credential\n"
	SignChannelResponder  = "attest-channel-responder\n"
	SignChannelInitiator  = "attest-channel-initiator\n"
	SignTransportVouchTLS = "attest-vouch-tls\n"
)

// BLAKE3 key derivation contexts for secure channel traffic keys.
const (
	Blake3ChannelInitiatorKey = "bazil.org/attest 2026 channel initiator to responder"
	Blake3ChannelResponderKey = "bazil.org/attest 2026 channel responder to initiator"
)
