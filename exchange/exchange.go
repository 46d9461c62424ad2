// Package exchange moves credentials between identities over secure
// channels.
//
// A worker verifies credentials presented to it and records the
// attributes they prove about the presenting identity. Presenters use
// PresentCredential, or PresentCredentialMutual to get the worker's
// own credential back in the same round trip.
package exchange

import (
	"context"
	"errors"
	"time"

	"bazil.org/attest/attrstore"
	"bazil.org/attest/credential"
	"bazil.org/attest/identity"
	"bazil.org/attest/routing"
	"bazil.org/attest/wire"
	"github.com/golang/protobuf/proto"
)

// DefaultTimeout bounds a presentation when the context has no
// deadline.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNoCredential means the identity has no credential attached.
	ErrNoCredential = errors.New("identity has no credential to present")

	// ErrNoSender means a reply did not come through a secure
	// channel.
	ErrNoSender = errors.New("reply has no authenticated sender")

	// ErrNotMutual means the worker answered a mutual request
	// without a credential.
	ErrNotMutual = errors.New("peer did not return a credential")
)

// WorkerOptions configure an exchange worker.
type WorkerOptions struct {
	// Authorities are the issuers whose credentials are accepted.
	Authorities []*identity.PublicIdentity
	// Storage receives the verified attributes.
	Storage attrstore.Writer
	// Mutual makes the worker answer mutual requests with the
	// credential attached to its identity.
	Mutual bool
}

type worker struct {
	local *identity.Identity
	opts  WorkerOptions
	now   func() time.Time
}

// StartWorker runs an exchange worker for local at addr. Extra worker
// options, such as access controls, apply to its mailbox.
func StartWorker(node *routing.Node, local *identity.Identity, addr routing.Address, opts WorkerOptions, wopts ...routing.WorkerOption) error {
	if opts.Storage == nil {
		return errors.New("exchange worker needs attribute storage")
	}
	w := &worker{
		local: local,
		opts:  opts,
		now:   time.Now,
	}
	return node.Start(addr, w, wopts...)
}

func (w *worker) reject(c *routing.Context, reason error) {
	c.Node().Debug(CredentialRejected{
		Address: c.Address(),
		Error:   reason.Error(),
	})
}

func (w *worker) HandleMessage(c *routing.Context, msg *routing.Message) error {
	sender, ok := msg.Sender()
	if !ok {
		w.reject(c, ErrNoSender)
		return nil
	}
	var req wire.PresentCredential
	if err := proto.Unmarshal(msg.Payload, &req); err != nil {
		w.reject(c, err)
		return nil
	}
	cred, err := credential.Decode(req.Credential)
	if err != nil {
		w.reject(c, err)
		return nil
	}
	set, err := credential.VerifyAt(&sender, w.opts.Authorities, cred, w.now())
	if err != nil {
		w.reject(c, err)
		return nil
	}
	if err := w.opts.Storage.PutAttributes(c, sender, set); err != nil {
		return err
	}
	c.Node().Debug(CredentialAccepted{
		Address: c.Address(),
		Subject: sender.String(),
		Issuer:  set.Issuer.String(),
	})

	var resp wire.PresentCredential
	if w.opts.Mutual && req.RequestMutual {
		resp.Credential = w.local.Credential()
	}
	buf, err := proto.Marshal(&resp)
	if err != nil {
		return err
	}
	return c.Send(msg.Return, buf)
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}

// roundTrip sends req along route and waits for one reply.
func roundTrip(ctx context.Context, node *routing.Node, route routing.Route, req *wire.PresentCredential) (*routing.Message, *wire.PresentCredential, error) {
	buf, err := proto.Marshal(req)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	c, err := node.NewContext("")
	if err != nil {
		return nil, nil, err
	}
	defer c.Stop()
	if err := c.Send(route, buf); err != nil {
		return nil, nil, err
	}
	msg, err := c.Receive(ctx)
	if err != nil {
		return nil, nil, err
	}
	var resp wire.PresentCredential
	if err := proto.Unmarshal(msg.Payload, &resp); err != nil {
		return nil, nil, err
	}
	return msg, &resp, nil
}

// PresentCredential sends the credential attached to local along
// route, normally through a secure channel to an exchange worker, and
// waits for the acknowledgement. A worker that rejects the credential
// stays silent, which shows up here as routing.ErrTimedOut.
func PresentCredential(ctx context.Context, node *routing.Node, local *identity.Identity, route routing.Route) error {
	cred := local.Credential()
	if cred == nil {
		return ErrNoCredential
	}
	_, _, err := roundTrip(ctx, node, route, &wire.PresentCredential{Credential: cred})
	return err
}

// PresentCredentialMutual presents the credential attached to local
// and asks for the worker's credential in return. The returned
// credential must be about the channel peer and issued by one of
// authorities; its attributes are stored and returned.
func PresentCredentialMutual(ctx context.Context, node *routing.Node, local *identity.Identity, route routing.Route, authorities []*identity.PublicIdentity, storage attrstore.Writer) (*credential.AttributeSet, error) {
	cred := local.Credential()
	if cred == nil {
		return nil, ErrNoCredential
	}
	req := &wire.PresentCredential{
		Credential:    cred,
		RequestMutual: true,
	}
	msg, resp, err := roundTrip(ctx, node, route, req)
	if err != nil {
		return nil, err
	}
	peer, ok := msg.Sender()
	if !ok {
		return nil, ErrNoSender
	}
	if len(resp.Credential) == 0 {
		return nil, ErrNotMutual
	}
	theirs, err := credential.Decode(resp.Credential)
	if err != nil {
		return nil, err
	}
	set, err := credential.Verify(&peer, authorities, theirs)
	if err != nil {
		return nil, err
	}
	if err := storage.PutAttributes(ctx, peer, set); err != nil {
		return nil, err
	}
	return set, nil
}
