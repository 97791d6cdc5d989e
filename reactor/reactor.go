// Package reactor drives a single-threaded, non-blocking accept/read/write
// loop over epoll for a fixed-size pool of Telnet connections. It owns no
// protocol knowledge: each registered file descriptor is paired with a
// *telnet.Connection, and the reactor's only job is moving bytes between
// the socket and Connection.FeedLine/Connection.Writable.
package reactor

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mctsd/mcts/event"
	"github.com/mctsd/mcts/telnet"
)

// MaxConns mirrors the fixed connection-table size of the engine this
// reactor is modeled on: once full, a newly accepted socket is closed at
// once and counted as rejected rather than letting the table grow.
const MaxConns = 10

// pollTimeout is how long a single EpollWait waits before returning
// control to the loop so it can check ctx.Done().
const pollTimeout = 60 * time.Second

// NewLine is called once per accepted connection to construct the
// protocol-side Connection and its LineHandler.
type NewLine func(c *telnet.Connection) telnet.LineHandler

// Reactor owns the listening socket, the epoll instance, and the table of
// live connections. Run's epoll loop is the only goroutine that drives
// protocol I/O, but Stats() is polled from the debug monitor's own
// goroutine (cmd/mctsd starts it concurrently with Run), so conns and
// stats are guarded by mu rather than left to the single-reactor-thread
// assumption that otherwise holds for everything else in this package.
type Reactor struct {
	epfd     int
	listenFD int
	newLine  NewLine
	logger   *log.Logger

	mu    sync.Mutex
	conns map[int]*connState
	stats Stats

	// Events, if non-nil, receives a lifecycle notification for every
	// accept/close/reject/error. Sends never block the reactor: a full
	// channel just drops the event.
	Events chan event.Event
}

func (r *Reactor) emit(typ event.Type, payload event.Payload) {
	if r.Events == nil {
		return
	}
	select {
	case r.Events <- event.Event{Type: typ, Payload: payload}:
	default:
	}
}

type connState struct {
	fd   int
	conn *telnet.Connection
	sock *fdSocket
}

// New creates a Reactor bound to addr (e.g. "0.0.0.0:5445"). newLine is
// invoked for every accepted connection to wire up line handling.
func New(addr string, newLine NewLine) (*Reactor, error) {
	listenFD, err := listenTCP(addr)
	if err != nil {
		return nil, fmt.Errorf("reactor: listen %s: %w", addr, err)
	}
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		unix.Close(listenFD)
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	r := &Reactor{
		epfd:     epfd,
		listenFD: listenFD,
		newLine:  newLine,
		logger:   log.New(os.Stderr, "", log.LstdFlags),
		conns:    make(map[int]*connState),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, listenFD, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(listenFD),
	}); err != nil {
		unix.Close(epfd)
		unix.Close(listenFD)
		return nil, fmt.Errorf("reactor: epoll_ctl listen fd: %w", err)
	}
	return r, nil
}

// Run drives the epoll loop until ctx is canceled or a fatal error occurs.
func (r *Reactor) Run(ctx context.Context) error {
	defer r.closeAll()

	events := make([]unix.EpollEvent, MaxConns+1)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := unix.EpollWait(r.epfd, events, int(pollTimeout/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("reactor: epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)
			if fd == r.listenFD {
				r.acceptOne()
				continue
			}
			cs, ok := r.connByFD(fd)
			if !ok {
				continue
			}
			if ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				r.closeConn(cs)
				continue
			}
			if ev.Events&unix.EPOLLIN != 0 {
				r.readable(cs)
			}
			if cs, ok = r.connByFD(fd); ok && ev.Events&unix.EPOLLOUT != 0 {
				cs.conn.Writable()
			}
			if cs, ok = r.connByFD(fd); ok && cs.conn.Quitting {
				r.closeConn(cs)
			}
		}
	}
}

// connByFD looks up a live connection by file descriptor.
func (r *Reactor) connByFD(fd int) (*connState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.conns[fd]
	return cs, ok
}

// connCount reports the number of live connections.
func (r *Reactor) connCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Reactor) acceptOne() {
	fd, sa, err := unix.Accept4(r.listenFD, unix.SOCK_NONBLOCK)
	if err != nil {
		if err != unix.EAGAIN {
			r.logger.Printf("accept error: %v", err)
			r.emit(event.ConnError, event.Err{Err: err})
		}
		return
	}
	if r.connCount() >= MaxConns {
		unix.Close(fd)
		r.mu.Lock()
		r.stats.incRejected()
		r.mu.Unlock()
		r.emit(event.ConnRejected, nil)
		return
	}
	addr := peerAddr(sa)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	}); err != nil {
		r.logger.Printf("epoll_ctl add fd %d: %v", fd, err)
		unix.Close(fd)
		return
	}

	conn := telnet.NewConnection(addr)
	sock := &fdSocket{fd: fd, epfd: r.epfd}
	conn.Attach(sock)
	if r.newLine != nil {
		conn.OnLine = r.newLine(conn)
	}
	conn.Start()

	cs := &connState{fd: fd, conn: conn, sock: sock}
	r.mu.Lock()
	r.conns[fd] = cs
	r.stats.incAccepted()
	r.mu.Unlock()
	r.emit(event.ConnAccepted, event.Addr(addr))
	r.logger.Printf("accepted %s (fd=%d, %d/%d connections)", addr, fd, r.connCount(), MaxConns)
}

// readable peeks up to ReadCapacity bytes (at least one, so a full line
// buffer can still see a terminator or control byte), feeds them through
// the byte parser up to the first completed line, and then drains from
// the socket only the bytes FeedLine actually consumed — per §4.9 step 3,
// anything beyond the first newline event stays unread on the wire for
// the next poll tick instead of being processed in this one.
func (r *Reactor) readable(cs *connState) {
	capacity := cs.conn.ReadCapacity()
	if capacity <= 0 {
		capacity = 1
	}
	peek := make([]byte, capacity)
	n, _, err := unix.Recvfrom(cs.fd, peek, unix.MSG_PEEK)
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		cs.conn.Quitting = true
		return
	}
	if n == 0 {
		cs.conn.Quitting = true
		return
	}

	consumed, _ := cs.conn.FeedLine(peek[:n])
	r.mu.Lock()
	r.stats.addBytesIn(consumed)
	r.mu.Unlock()

	drain := make([]byte, consumed)
	for drained := 0; drained < consumed; {
		k, err := unix.Read(cs.fd, drain[drained:])
		if err != nil {
			if err == unix.EAGAIN {
				continue
			}
			cs.conn.Quitting = true
			return
		}
		if k == 0 {
			cs.conn.Quitting = true
			return
		}
		drained += k
	}
}

func (r *Reactor) closeConn(cs *connState) {
	cs.conn.Close()
	unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, cs.fd, nil)
	unix.Close(cs.fd)
	r.mu.Lock()
	delete(r.conns, cs.fd)
	r.stats.incClosed()
	r.mu.Unlock()
	r.emit(event.ConnClosed, event.Addr(cs.conn.Addr))
	r.logger.Printf("closed fd=%d (%d/%d connections)", cs.fd, r.connCount(), MaxConns)
}

func (r *Reactor) closeAll() {
	r.mu.Lock()
	rest := make([]*connState, 0, len(r.conns))
	for _, cs := range r.conns {
		rest = append(rest, cs)
	}
	r.mu.Unlock()
	for _, cs := range rest {
		r.closeConn(cs)
	}
	unix.Close(r.listenFD)
	unix.Close(r.epfd)
}

// Stats returns a point-in-time snapshot of reactor activity, read by the
// debug monitor from its own goroutine while Run's epoll loop is live on
// another; both sides go through mu so neither a torn Stats read nor a
// concurrent map read/write on conns can occur.
func (r *Reactor) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.ActiveConns = len(r.conns)
	return s
}
