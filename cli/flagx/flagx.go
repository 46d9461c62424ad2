// Package flagx has pflag values for the attest command line.
package flagx

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

// AbsPath is a path made absolute when set.
type AbsPath string

var _ pflag.Value = (*AbsPath)(nil)

func (a AbsPath) String() string {
	return string(a)
}

var EmptyPathError = errors.New("empty path not allowed")

func (a *AbsPath) Set(value string) error {
	if value == "" {
		return EmptyPathError
	}
	path, err := filepath.Abs(value)
	if err != nil {
		return err
	}
	*a = AbsPath(path)
	return nil
}

func (a *AbsPath) Type() string { return "path" }

// HostPort is a "host:port" pair. It is checked for shape only, the
// host is not resolved.
type HostPort string

var _ pflag.Value = (*HostPort)(nil)

func (h HostPort) String() string {
	return string(h)
}

func (h *HostPort) Set(value string) error {
	if value == "" {
		*h = ""
		return nil
	}
	if _, port, err := net.SplitHostPort(value); err != nil {
		return err
	} else if port == "" {
		return fmt.Errorf("missing port in address %s", value)
	}
	*h = HostPort(value)
	return nil
}

func (h *HostPort) Type() string { return "host:port" }

// Attributes collects repeated name=value flags. A later value for
// the same name replaces the earlier one.
type Attributes map[string][]byte

var _ pflag.Value = Attributes(nil)

func (a Attributes) String() string {
	pairs := make([]string, 0, len(a))
	for name, value := range a {
		pairs = append(pairs, name+"="+string(value))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (a Attributes) Set(value string) error {
	idx := strings.IndexByte(value, '=')
	if idx <= 0 {
		return fmt.Errorf("attribute must be name=value: %q", value)
	}
	a[value[:idx]] = []byte(value[idx+1:])
	return nil
}

func (a Attributes) Type() string { return "name=value" }
