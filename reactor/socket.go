package reactor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/mctsd/mcts/telnet"
)

// fdSocket is the telnet.Socket implementation backing one accepted
// connection: a bare non-blocking file descriptor plus the epoll instance
// it's registered with, so Arm/DisarmWritable can toggle EPOLLOUT.
type fdSocket struct {
	fd   int
	epfd int
	out  bool // whether EPOLLOUT is currently armed
}

func (s *fdSocket) TrySend(data []byte) (int, error) {
	n, err := unix.Write(s.fd, data)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, telnet.ErrWouldBlock
		}
		return 0, fmt.Errorf("reactor: write fd %d: %w", s.fd, err)
	}
	return n, nil
}

func (s *fdSocket) ArmWritable() {
	if s.out {
		return
	}
	s.out = true
	unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, s.fd, &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT,
		Fd:     int32(s.fd),
	})
}

func (s *fdSocket) DisarmWritable() {
	if !s.out {
		return
	}
	s.out = false
	unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, s.fd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(s.fd),
	})
}

// listenTCP creates a non-blocking IPv4 listening socket bound to addr
// ("host:port") with SO_REUSEADDR set, the way a reactor that owns its own
// event loop has to: net.Listen would hand back a netpoller-backed fd this
// package can't drive through epoll directly.
func listenTCP(addr string) (int, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return 0, err
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return 0, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return 0, err
	}
	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return 0, err
	}
	if err := unix.Listen(fd, MaxConns); err != nil {
		unix.Close(fd)
		return 0, err
	}
	return fd, nil
}

// peerAddr renders an accepted connection's sockaddr as "ip:port".
func peerAddr(sa unix.Sockaddr) string {
	v4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "unknown"
	}
	ip := net.IP(v4.Addr[:])
	return fmt.Sprintf("%s:%d", ip.String(), v4.Port)
}
