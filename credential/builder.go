package credential

import (
	"context"
	"time"

	"bazil.org/attest/identity"
)

// Builder collects the attributes of a credential before issuing it.
type Builder struct {
	subject identity.Identifier
	schema  SchemaID
	attrs   map[string][]byte
}

func NewBuilder(subject identity.Identifier) *Builder {
	return &Builder{
		subject: subject,
		attrs:   make(map[string][]byte),
	}
}

func (b *Builder) WithSchema(id SchemaID) *Builder {
	b.schema = id
	return b
}

// WithAttribute sets attribute name. Setting a name twice keeps the
// last value.
func (b *Builder) WithAttribute(name string, value []byte) *Builder {
	b.attrs[name] = append([]byte(nil), value...)
	return b
}

// Issue signs the credential with issuer, valid for ttl.
func (b *Builder) Issue(ctx context.Context, issuer *identity.Identity, ttl time.Duration) (*Credential, error) {
	return b.IssueAt(ctx, issuer, ttl, time.Now())
}

// IssueAt is Issue with an explicit clock.
func (b *Builder) IssueAt(ctx context.Context, issuer *identity.Identity, ttl time.Duration, now time.Time) (*Credential, error) {
	return issue(ctx, issuer, b.subject, b.schema, b.attrs, now.Add(ttl))
}
