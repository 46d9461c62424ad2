// Package access authorizes routed messages by the attributes their
// sender has proven.
package access

import (
	"bytes"
	"context"

	"bazil.org/attest/attrstore"
	"bazil.org/attest/routing"
)

// Attribute is a required name and value pair.
type Attribute struct {
	Name  string
	Value []byte
}

// CredentialAccessControl admits messages whose sender holds every
// required attribute.
type CredentialAccessControl struct {
	required []Attribute
	storage  attrstore.Reader
}

var _ routing.AccessControl = (*CredentialAccessControl)(nil)

// NewCredentialAccessControl returns an access control that reads the
// sender's attributes from storage. With no required attributes, any
// sender with a stored set is admitted.
func NewCredentialAccessControl(required []Attribute, storage attrstore.Reader) *CredentialAccessControl {
	req := make([]Attribute, len(required))
	copy(req, required)
	return &CredentialAccessControl{
		required: req,
		storage:  storage,
	}
}

// IsAuthorized reports whether msg may be delivered. Messages that did
// not arrive over a secure channel have no sender and are refused.
func (a *CredentialAccessControl) IsAuthorized(ctx context.Context, msg *routing.Message) bool {
	sender, ok := msg.Sender()
	if !ok {
		return false
	}
	set, err := a.storage.GetAttributes(ctx, sender)
	if err != nil || set == nil {
		return false
	}
	for _, want := range a.required {
		got, ok := set.Get(want.Name)
		if !ok || !bytes.Equal(got, want.Value) {
			return false
		}
	}
	return true
}
