// Package attrstore keeps the attribute sets proven by verified
// credentials, keyed by subject identifier.
//
// Writers replace the whole set for a subject in one step; the last
// write wins. Expired sets read as absent.
package attrstore

import (
	"context"

	"bazil.org/attest/credential"
	"bazil.org/attest/identity"
)

// Reader is the read-only view access controls use.
type Reader interface {
	// GetAttributes returns the current set for id, or nil if there
	// is none or it has expired.
	GetAttributes(ctx context.Context, id identity.Identifier) (*credential.AttributeSet, error)
}

// Writer is the view the credential exchange worker uses.
type Writer interface {
	PutAttributes(ctx context.Context, id identity.Identifier, set *credential.AttributeSet) error
}

type Storage interface {
	Reader
	Writer
}

type readOnly struct {
	r Reader
}

func (ro readOnly) GetAttributes(ctx context.Context, id identity.Identifier) (*credential.AttributeSet, error) {
	return ro.r.GetAttributes(ctx, id)
}

// ReadOnly hides every method of r but GetAttributes, so a type
// assertion cannot recover write access.
func ReadOnly(r Reader) Reader {
	return readOnly{r}
}
