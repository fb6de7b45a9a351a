//go:build !unix

package relay

import (
	"context"
	"net"
	"strconv"
	"syscall"
)

// listenTCP falls back to the runtime listener. Receive buffer size and
// backlog are left to the OS on these platforms.
func listenTCP(ctx context.Context, port, _ int) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp4", net.JoinHostPort("", strconv.Itoa(port)))
}

func dialControl(int) func(network, address string, c syscall.RawConn) error {
	return nil
}
