package db

import (
	"errors"

	"bazil.org/attest/identity"
	"bazil.org/attest/tokens"
	"github.com/boltdb/bolt"
)

var ErrAttributesNotFound = errors.New("attributes not found")

var bucketAttributes = []byte(tokens.BucketAttributes)

func (tx *Tx) initAttributes() error {
	_, err := tx.CreateBucketIfNotExists(bucketAttributes)
	return err
}

func (tx *Tx) Attributes() *Attributes {
	return &Attributes{tx.Bucket(bucketAttributes)}
}

// Attributes stores one encoded attribute record per subject.
type Attributes struct {
	b *bolt.Bucket
}

// Get returns the record for subject.
//
// If there is none, returns ErrAttributesNotFound.
func (a *Attributes) Get(subject identity.Identifier) ([]byte, error) {
	v := a.b.Get(subject[:])
	if v == nil {
		return nil, ErrAttributesNotFound
	}
	return v, nil
}

// Put replaces the record for subject.
func (a *Attributes) Put(subject identity.Identifier, record []byte) error {
	return a.b.Put(subject[:], record)
}

func (a *Attributes) Delete(subject identity.Identifier) error {
	return a.b.Delete(subject[:])
}

func (a *Attributes) Cursor() *AttributesCursor {
	return &AttributesCursor{a.b.Cursor()}
}

type AttributesCursor struct {
	c *bolt.Cursor
}

// AttributesItem is a record and the subject it belongs to.
type AttributesItem struct {
	Subject identity.Identifier
	Record  []byte
}

func (c *AttributesCursor) item(k, v []byte) *AttributesItem {
	if k == nil {
		return nil
	}
	item := &AttributesItem{Record: v}
	if err := item.Subject.UnmarshalBinary(k); err != nil {
		panic("db attributes corrupt: " + err.Error())
	}
	return item
}

func (c *AttributesCursor) First() *AttributesItem {
	return c.item(c.c.First())
}

func (c *AttributesCursor) Next() *AttributesItem {
	return c.item(c.c.Next())
}
