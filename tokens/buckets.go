package tokens

const (
	// The DB bucket that contains general-purpose node state not tied
	// to any specific peer.
	BucketAttest = "attest"

	// The DB bucket that contains sealed vault secrets. Key is the
	// vault key id, value is a secretbox of the marshaled secret.
	BucketVault = "vault"

	// The DB bucket that contains verified attributes. Key is the
	// binary identifier of the subject, value is a CBOR attribute
	// record.
	BucketAttributes = "attributes"
)

// Keys in the bucket BucketAttest
const (
	// Vault key id of the node identity key.
	GlobalStateIdentityKey = "identity-key"

	// Vault key id of the key used to sign credentials, when distinct
	// from the identity key.
	GlobalStateCredentialKey = "credential-key"

	// Credential issued to this node, presented to peers.
	GlobalStateCredential = "credential"
)
