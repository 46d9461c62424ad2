// Package grpcunix runs gRPC over Unix domain sockets.
package grpcunix

import (
	"net"
	"os"

	"golang.org/x/net/context"
	"google.golang.org/grpc"
)

// Dial connects to the gRPC server listening on the socket at path.
// The socket's file permissions are the only access control.
func Dial(path string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	dialer := func(ctx context.Context, addr string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", path)
	}
	opts = append(opts,
		grpc.WithInsecure(),
		grpc.WithContextDialer(dialer),
	)
	// the target is only used for naming; the dialer ignores it
	return grpc.Dial("passthrough:///unix", opts...)
}

// Listen listens on a fresh socket at path, readable and writable
// only by the current user.
func Listen(path string) (net.Listener, error) {
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0600); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}
