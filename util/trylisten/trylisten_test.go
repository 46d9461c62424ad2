package trylisten_test

import (
	"net"
	"testing"

	"bazil.org/attest/util/trylisten"
)

func TestFallback(t *testing.T) {
	first, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	taken := first.Addr().(*net.TCPAddr)

	second, err := trylisten.ListenTCP("tcp", taken)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer second.Close()
	got := second.Addr().(*net.TCPAddr)
	if got.Port == taken.Port {
		t.Errorf("got the taken port %d", got.Port)
	}
	if !got.IP.Equal(taken.IP) {
		t.Errorf("wrong ip: %v != %v", got.IP, taken.IP)
	}
}
