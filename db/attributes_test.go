package db_test

import (
	"testing"

	"bazil.org/attest/db"
	"bazil.org/attest/identity"
)

func TestAttributesNotFound(t *testing.T) {
	DB := NewTestDB(t)
	defer DB.Close()

	get := func(tx *db.Tx) error {
		_, err := tx.Attributes().Get(identity.Identifier{0x42})
		if g, e := err, db.ErrAttributesNotFound; g != e {
			t.Errorf("expected ErrAttributesNotFound, got %v", err)
		}
		return nil
	}
	if err := DB.View(get); err != nil {
		t.Fatal(err)
	}
}

func TestAttributesCursor(t *testing.T) {
	DB := NewTestDB(t)
	defer DB.Close()

	ids := []identity.Identifier{{0x01}, {0x02, 0x03}, {0xC0, 0xFF, 0xEE}}
	put := func(tx *db.Tx) error {
		a := tx.Attributes()
		for _, id := range ids {
			if err := a.Put(id, []byte(id.String())); err != nil {
				return err
			}
		}
		// last write wins
		return a.Put(ids[0], []byte("replaced"))
	}
	if err := DB.Update(put); err != nil {
		t.Fatal(err)
	}

	check := func(tx *db.Tx) error {
		c := tx.Attributes().Cursor()
		var n int
		for item := c.First(); item != nil; item = c.Next() {
			if g, e := item.Subject, ids[n]; g != e {
				t.Errorf("wrong subject at %d: %v != %v", n, g, e)
			}
			want := ids[n].String()
			if n == 0 {
				want = "replaced"
			}
			if g, e := string(item.Record), want; g != e {
				t.Errorf("wrong record at %d: %q != %q", n, g, e)
			}
			n++
		}
		if g, e := n, len(ids); g != e {
			t.Errorf("wrong number of records: %d != %d", g, e)
		}
		return nil
	}
	if err := DB.View(check); err != nil {
		t.Fatal(err)
	}
}
