package exchange

import (
	"bazil.org/attest/routing"
)

// CredentialRejected is a debug event for a presentation that was
// dropped.
type CredentialRejected struct {
	Address routing.Address
	Error   string
}

// CredentialAccepted is a debug event for a stored presentation.
type CredentialAccepted struct {
	Address routing.Address
	Subject string
	Issuer  string
}
