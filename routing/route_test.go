package routing_test

import (
	"testing"

	"bazil.org/attest/routing"
)

func TestRouteStepDoesNotAlias(t *testing.T) {
	r := routing.NewRoute("a", "b", "c")
	s := r.Step()
	s[0] = "x"
	if g, e := r.String(), "a => b => c"; g != e {
		t.Errorf("Step modified its receiver: %q != %q", g, e)
	}
	if g, e := r.Prepend("z").String(), "z => a => b => c"; g != e {
		t.Errorf("wrong Prepend: %q != %q", g, e)
	}
	if g, e := r.Append("d").String(), "a => b => c => d"; g != e {
		t.Errorf("wrong Append: %q != %q", g, e)
	}
}

func TestRouteNextEmpty(t *testing.T) {
	var r routing.Route
	if _, ok := r.Next(); ok {
		t.Error("empty route has a next hop")
	}
	if s := r.Step(); s != nil {
		t.Errorf("empty route stepped to %v", s)
	}
}

func TestAddressScheme(t *testing.T) {
	if g, e := routing.Address("tcp:127.0.0.1:4000").Scheme(), "tcp"; g != e {
		t.Errorf("wrong scheme: %q != %q", g, e)
	}
	if g, e := routing.Address("echo").Scheme(), ""; g != e {
		t.Errorf("wrong scheme: %q != %q", g, e)
	}
}

func TestRouteStrings(t *testing.T) {
	r := routing.NewRoute("tcp:192.0.2.1:4000", "listener")
	s := r.Strings()
	if g, e := len(s), 2; g != e {
		t.Fatalf("wrong length: %d != %d", g, e)
	}
	if g, e := s[0], "tcp:192.0.2.1:4000"; g != e {
		t.Errorf("wrong first address: %q != %q", g, e)
	}
	back := routing.RouteFromStrings(s)
	if g, e := back.String(), r.String(); g != e {
		t.Errorf("route changed: %q != %q", g, e)
	}
	if g := routing.RouteFromStrings(nil); len(g) != 0 {
		t.Errorf("empty route is not empty: %v", g)
	}
}
