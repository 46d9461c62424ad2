package routing

import (
	"crypto/rand"
	"strings"

	"github.com/tv42/zbase32"
)

// Address names a mailbox. Addresses of the form "scheme:rest" are
// resolved through the transport registered for scheme.
type Address string

// Scheme returns the transport scheme of a, or "" for local
// addresses.
func (a Address) Scheme() string {
	i := strings.IndexByte(string(a), ':')
	if i < 0 {
		return ""
	}
	return string(a[:i])
}

// RandomAddress returns a fresh local address starting with prefix.
func RandomAddress(prefix string) Address {
	var buf [10]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("routing: cannot read random bytes: " + err.Error())
	}
	return Address(prefix + zbase32.EncodeToString(buf[:]))
}

// Route is an ordered path of addresses. The first address is the
// next hop.
//
// Routes are values; methods never modify the receiver.
type Route []Address

func NewRoute(addrs ...Address) Route {
	return append(Route(nil), addrs...)
}

// Next returns the next hop.
func (r Route) Next() (Address, bool) {
	if len(r) == 0 {
		return "", false
	}
	return r[0], true
}

// Step returns r without its first hop.
func (r Route) Step() Route {
	if len(r) == 0 {
		return nil
	}
	return NewRoute(r[1:]...)
}

// Prepend returns a route that visits a before r.
func (r Route) Prepend(a Address) Route {
	n := make(Route, 0, len(r)+1)
	n = append(n, a)
	return append(n, r...)
}

// Append returns a route that visits addrs after r.
func (r Route) Append(addrs ...Address) Route {
	n := make(Route, 0, len(r)+len(addrs))
	n = append(n, r...)
	return append(n, addrs...)
}

// Strings returns the addresses of r, for encoding on the wire.
func (r Route) Strings() []string {
	s := make([]string, len(r))
	for i, a := range r {
		s[i] = string(a)
	}
	return s
}

// RouteFromStrings is the inverse of Route.Strings.
func RouteFromStrings(s []string) Route {
	r := make(Route, len(s))
	for i, a := range s {
		r[i] = Address(a)
	}
	return r
}

func (r Route) String() string {
	return strings.Join(r.Strings(), " => ")
}
