package db_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/boltdb/bolt"

	"bazil.org/attest/db"
)

type TestDB struct {
	*db.DB
}

func NewTestDB(t testing.TB) *TestDB {
	path := filepath.Join(t.TempDir(), "attest-test.bolt")
	db, err := db.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Nanosecond})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	return &TestDB{db}
}

func (db *TestDB) Close() {
	db.DB.Close()
}
