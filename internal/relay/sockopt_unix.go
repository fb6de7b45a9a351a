//go:build unix

package relay

import (
	"context"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const listenBacklog = 1

// listenTCP binds the IPv4 wildcard with address reuse, a receive buffer of
// rcvbuf bytes and a backlog of one. net.Listen offers no backlog control.
func listenTCP(_ context.Context, port, rcvbuf int) (net.Listener, error) {
	fd, err := socketCloexec()
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt reuse", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, rcvbuf); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt bufsize", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}

	// FileListener dups the descriptor; the original is released with f.
	f := os.NewFile(uintptr(fd), "relay-listener")
	defer f.Close()
	return net.FileListener(f)
}

// socketCloexec creates the IPv4 stream socket with close-on-exec set. Not
// every unix accepts SOCK_CLOEXEC at creation, so the flag is applied under
// ForkLock the way the runtime does on those platforms.
func socketCloexec() (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

func dialControl(sndbuf int) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, sndbuf)
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
