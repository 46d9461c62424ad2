package credential_test

import (
	"bytes"
	"context"
	"testing"
	"testing/quick"
	"time"

	"bazil.org/attest/credential"
	"bazil.org/attest/identity"
)

func sameAttributes(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !bytes.Equal(v, w) {
			return false
		}
	}
	return true
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	subject := newIdentity(t).Identifier()
	authorities := []*identity.PublicIdentity{issuer.ToPublic()}

	check := func(attrs map[string][]byte) bool {
		c, err := credential.Issue(ctx, issuer, subject, attrs, time.Hour)
		if err != nil {
			t.Errorf("issue: %v", err)
			return false
		}
		buf, err := c.MarshalBinary()
		if err != nil {
			t.Errorf("marshal: %v", err)
			return false
		}
		decoded, err := credential.Decode(buf)
		if err != nil {
			t.Errorf("decode: %v", err)
			return false
		}
		set, err := credential.Verify(&subject, authorities, decoded)
		if err != nil {
			t.Errorf("verify: %v", err)
			return false
		}
		if g, e := set.Subject, subject; g != e {
			t.Errorf("wrong subject: %v != %v", g, e)
		}
		if g, e := set.Issuer, issuer.Identifier(); g != e {
			t.Errorf("wrong issuer: %v != %v", g, e)
		}
		return sameAttributes(set.Attributes, attrs)
	}
	if err := quick.Check(check, quickConfig(t)); err != nil {
		t.Error(err)
	}
}

func TestUntrustedIssuer(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	other := newIdentity(t)
	subject := newIdentity(t).Identifier()
	authorities := []*identity.PublicIdentity{other.ToPublic()}

	check := func(attrs map[string][]byte, tamper bool) bool {
		c, err := credential.Issue(ctx, issuer, subject, attrs, time.Hour)
		if err != nil {
			t.Errorf("issue: %v", err)
			return false
		}
		if tamper {
			c.Signature[0] ^= 0xFF
		}
		set, err := credential.Verify(nil, authorities, c)
		return set == nil && err == credential.ErrUntrustedIssuer
	}
	if err := quick.Check(check, quickConfig(t)); err != nil {
		t.Error(err)
	}
}

func TestExpired(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	subject := newIdentity(t).Identifier()
	authorities := []*identity.PublicIdentity{issuer.ToPublic()}
	now := time.Now()

	check := func(attrs map[string][]byte, ago uint16) bool {
		issued := now.Add(-time.Hour - time.Second - time.Duration(ago)*time.Second)
		c, err := credential.IssueAt(ctx, issuer, subject, attrs, time.Hour, issued)
		if err != nil {
			t.Errorf("issue: %v", err)
			return false
		}
		set, err := credential.VerifyAt(&subject, authorities, c, now)
		return set == nil && err == credential.ErrExpired
	}
	if err := quick.Check(check, quickConfig(t)); err != nil {
		t.Error(err)
	}
}

func TestExpiresExactlyNow(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	subject := newIdentity(t).Identifier()
	now := time.Unix(1700000000, 0)
	c, err := credential.IssueAt(ctx, issuer, subject, nil, time.Minute, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	authorities := []*identity.PublicIdentity{issuer.ToPublic()}
	if _, err := credential.VerifyAt(nil, authorities, c, now.Add(time.Minute)); err != credential.ErrExpired {
		t.Errorf("expected ErrExpired at the expiry instant, got %v", err)
	}
	if _, err := credential.VerifyAt(nil, authorities, c, now.Add(time.Minute-time.Second)); err != nil {
		t.Errorf("expected success just before expiry, got %v", err)
	}
}

func TestShortTTLIsValidWhenIssued(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	subject := newIdentity(t).Identifier()
	authorities := []*identity.PublicIdentity{issuer.ToPublic()}
	now := time.Unix(1000, 100*int64(time.Millisecond))
	c, err := credential.IssueAt(ctx, issuer, subject, nil, 500*time.Millisecond, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if g, e := c.Expires, time.Unix(1001, 0); !g.Equal(e) {
		t.Errorf("wrong expiry: %v != %v", g, e)
	}
	if _, err := credential.VerifyAt(&subject, authorities, c, now); err != nil {
		t.Errorf("fresh credential did not verify: %v", err)
	}
	if _, err := credential.VerifyAt(&subject, authorities, c, time.Unix(1001, 0)); err != credential.ErrExpired {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestIssuedNowAlwaysVerifies(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	subject := newIdentity(t).Identifier()
	authorities := []*identity.PublicIdentity{issuer.ToPublic()}

	check := func(sec uint32, nsec uint32, ttlMillis uint16) bool {
		now := time.Unix(int64(sec), int64(nsec%uint32(time.Second)))
		ttl := time.Duration(ttlMillis%5000+1) * time.Millisecond
		c, err := credential.IssueAt(ctx, issuer, subject, nil, ttl, now)
		if err != nil {
			t.Errorf("issue: %v", err)
			return false
		}
		_, err = credential.VerifyAt(&subject, authorities, c, now)
		return err == nil
	}
	if err := quick.Check(check, quickConfig(t)); err != nil {
		t.Error(err)
	}
}

func TestInvalidSignature(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	subject := newIdentity(t).Identifier()
	authorities := []*identity.PublicIdentity{issuer.ToPublic()}

	c, err := credential.Issue(ctx, issuer, subject, map[string][]byte{"role": []byte("user")}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c.Attributes["role"] = []byte("admin")
	set, err := credential.Verify(&subject, authorities, c)
	if g, e := err, credential.ErrInvalidSignature; g != e {
		t.Errorf("wrong error: %v != %v", g, e)
	}
	if set != nil {
		t.Errorf("attribute set returned on failure: %+v", set)
	}
}

func TestSubjectMismatch(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	subject := newIdentity(t).Identifier()
	other := newIdentity(t).Identifier()
	authorities := []*identity.PublicIdentity{issuer.ToPublic()}

	c, err := credential.Issue(ctx, issuer, subject, nil, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := credential.Verify(&other, authorities, c); err != credential.ErrSubjectMismatch {
		t.Errorf("expected ErrSubjectMismatch, got %v", err)
	}
	if _, err := credential.Verify(nil, authorities, c); err != nil {
		t.Errorf("no expected subject: %v", err)
	}
}

func TestBuilderSchema(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	subject := newIdentity(t).Identifier()
	c, err := credential.NewBuilder(subject).
		WithSchema(1).
		WithAttribute("is_superuser", []byte("true")).
		WithAttribute("is_superuser", []byte("false")).
		Issue(ctx, issuer, 120*time.Second)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	buf, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := credential.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	set, err := credential.Verify(&subject, []*identity.PublicIdentity{issuer.ToPublic()}, decoded)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if g, e := set.SchemaID, credential.SchemaID(1); g != e {
		t.Errorf("wrong schema: %v != %v", g, e)
	}
	v, ok := set.Get("is_superuser")
	if !ok {
		t.Fatal("missing attribute")
	}
	if g, e := string(v), "false"; g != e {
		t.Errorf("wrong attribute value: %q != %q", g, e)
	}
}

func TestSchemaIsSigned(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	subject := newIdentity(t).Identifier()
	c, err := credential.NewBuilder(subject).WithSchema(1).Issue(ctx, issuer, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c.SchemaID = 2
	if _, err := credential.Verify(nil, []*identity.PublicIdentity{issuer.ToPublic()}, c); err != credential.ErrInvalidSignature {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestWrongCredentialKey(t *testing.T) {
	ctx := context.Background()
	issuer := newIdentity(t)
	subject := newIdentity(t).Identifier()
	c, err := credential.Issue(ctx, issuer, subject, nil, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	pub := issuer.ToPublic()
	pub.CredentialKey.Data = append([]byte(nil), pub.CredentialKey.Data...)
	pub.CredentialKey.Data[0] ^= 1
	if _, err := credential.Verify(nil, []*identity.PublicIdentity{pub}, c); err != credential.ErrInvalidSignature {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}
