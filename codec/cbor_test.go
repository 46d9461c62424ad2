package codec_test

import (
	"bytes"
	"testing"

	"bazil.org/attest/codec"
)

type sample struct {
	Name  string            `cbor:"1,keyasint"`
	Attrs map[string][]byte `cbor:"2,keyasint"`
}

func TestMarshalDeterministic(t *testing.T) {
	// map iteration order is random; encode enough times to notice
	v := sample{
		Name: "x",
		Attrs: map[string][]byte{
			"zeta":  []byte("1"),
			"alpha": []byte("2"),
			"mid":   []byte("3"),
			"b":     []byte("4"),
		},
	}
	first, err := codec.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := codec.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !bytes.Equal(again, first) {
			t.Fatalf("encoding not deterministic: %x != %x", again, first)
		}
	}
}

func TestUnmarshalDuplicateKey(t *testing.T) {
	// {1: "a", 1: "b"}
	buf := []byte{0xa2, 0x01, 0x61, 'a', 0x01, 0x61, 'b'}
	var v sample
	if err := codec.Unmarshal(buf, &v); err == nil {
		t.Errorf("expected error for duplicate map key, got %+v", v)
	}
}
