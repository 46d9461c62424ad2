package attrstore

import (
	"context"
	"time"

	"bazil.org/attest/codec"
	"bazil.org/attest/credential"
	"bazil.org/attest/db"
	"bazil.org/attest/identity"
)

// Bolt is a Storage persisted in the node database.
type Bolt struct {
	db  *db.DB
	now func() time.Time
}

var _ Storage = (*Bolt)(nil)

func NewBolt(db *db.DB) *Bolt {
	return &Bolt{
		db:  db,
		now: time.Now,
	}
}

// record is the stored form of an attribute set. The subject is the
// database key.
type record struct {
	Issuer     []byte            `cbor:"1,keyasint"`
	SchemaID   uint64            `cbor:"2,keyasint"`
	Attributes map[string][]byte `cbor:"3,keyasint"`
	Expires    int64             `cbor:"4,keyasint"`
}

func (r *record) expired(now time.Time) bool {
	return !now.Before(time.Unix(r.Expires, 0))
}

func (b *Bolt) GetAttributes(ctx context.Context, id identity.Identifier) (*credential.AttributeSet, error) {
	var set *credential.AttributeSet
	get := func(tx *db.Tx) error {
		buf, err := tx.Attributes().Get(id)
		if err == db.ErrAttributesNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var r record
		if err := codec.Unmarshal(buf, &r); err != nil {
			return err
		}
		if r.expired(b.now()) {
			return nil
		}
		set = &credential.AttributeSet{
			Subject:    id,
			SchemaID:   credential.SchemaID(r.SchemaID),
			Attributes: r.Attributes,
			Expires:    time.Unix(r.Expires, 0),
		}
		if set.Attributes == nil {
			set.Attributes = map[string][]byte{}
		}
		return set.Issuer.UnmarshalBinary(r.Issuer)
	}
	if err := b.db.View(get); err != nil {
		return nil, err
	}
	return set, nil
}

func (b *Bolt) PutAttributes(ctx context.Context, id identity.Identifier, set *credential.AttributeSet) error {
	r := record{
		Issuer:     set.Issuer[:],
		SchemaID:   uint64(set.SchemaID),
		Attributes: set.Attributes,
		Expires:    set.Expires.Unix(),
	}
	buf, err := codec.Marshal(&r)
	if err != nil {
		return err
	}
	put := func(tx *db.Tx) error {
		return tx.Attributes().Put(id, buf)
	}
	return b.db.Update(put)
}

// Sweep removes sets that expired before now, and returns how many.
func (b *Bolt) Sweep(now time.Time) (int, error) {
	var n int
	sweep := func(tx *db.Tx) error {
		attrs := tx.Attributes()
		var expired []identity.Identifier
		c := attrs.Cursor()
		for item := c.First(); item != nil; item = c.Next() {
			var r record
			if err := codec.Unmarshal(item.Record, &r); err != nil {
				return err
			}
			if r.expired(now) {
				expired = append(expired, item.Subject)
			}
		}
		for _, id := range expired {
			if err := attrs.Delete(id); err != nil {
				return err
			}
		}
		n = len(expired)
		return nil
	}
	if err := b.db.Update(sweep); err != nil {
		return 0, err
	}
	return n, nil
}
