package db

import (
	"bazil.org/attest/tokens"
	"github.com/boltdb/bolt"
)

var bucketAttest = []byte(tokens.BucketAttest)

func (tx *Tx) initGlobal() error {
	_, err := tx.CreateBucketIfNotExists(bucketAttest)
	return err
}

// Global returns the node-wide settings.
func (tx *Tx) Global() *Global {
	return &Global{tx.Bucket(bucketAttest)}
}

type Global struct {
	b *bolt.Bucket
}

// Get returns the value stored under key, or nil.
func (g *Global) Get(key string) []byte {
	return g.b.Get([]byte(key))
}

func (g *Global) Put(key string, value []byte) error {
	return g.b.Put([]byte(key), value)
}

func (g *Global) Delete(key string) error {
	return g.b.Delete([]byte(key))
}
