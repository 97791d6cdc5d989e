package telnet

import "errors"

// WriteFlag controls how write routes bytes through the compression,
// queueing, and direct-send paths.
type WriteFlag int

const (
	// DontCompress bypasses an active compression context for this call.
	DontCompress WriteFlag = 1 << iota
	// DoFlush requests a zlib sync flush once the compressor has this data.
	DoFlush
	// Finish requests the compression stream be finalized after this data.
	Finish
)

// ErrWouldBlock is returned by Socket.TrySend when the underlying
// descriptor is not currently writable (the non-blocking EAGAIN case).
var ErrWouldBlock = errors.New("telnet: socket would block")

// Socket is the non-blocking I/O boundary a reactor implements for a
// Connection. It never blocks: TrySend either sends some/all bytes, or
// returns ErrWouldBlock.
type Socket interface {
	// TrySend attempts a non-blocking send of data, returning the number
	// of bytes actually sent. Returns (0, ErrWouldBlock) if the socket
	// is not currently writable.
	TrySend(data []byte) (int, error)
	// ArmWritable tells the reactor this connection has queued output and
	// should be polled for writability.
	ArmWritable()
	// DisarmWritable tells the reactor the output queue has drained.
	DisarmWritable()
}

// write is the single entry point into the output path. Callers never
// touch the queue or compressor directly.
func (c *Connection) write(data []byte, flags WriteFlag) {
	if c.Quitting || len(data) == 0 && flags == 0 {
		return
	}

	if c.compress != nil && flags&DontCompress == 0 {
		c.compressFeed(data, flags)
		return
	}

	if c.queue.len() > 0 {
		c.queueAppend(data)
		return
	}

	if c.sock == nil {
		// No transport attached (e.g. unit tests exercising protocol logic
		// only): behave as if the socket can never accept writes, so bytes
		// queue until a Socket is attached.
		c.queueAppend(data)
		return
	}

	n, err := c.sock.TrySend(data)
	if err != nil && !errors.Is(err, ErrWouldBlock) {
		c.Quitting = true
		return
	}
	if n < len(data) {
		c.queueAppend(data[n:])
		return
	}

	// The full message went out directly; evaluate deferred transitions.
	c.afterDirectSend(flags)
}

// queueAppend appends to the output queue, applying the backpressure rule:
// a peer that can't keep up past dropAt queued bytes gets disconnected
// rather than letting the queue grow without bound.
func (c *Connection) queueAppend(data []byte) {
	c.queue.append(data)
	if c.queue.len() > dropAt {
		c.Quitting = true
		if c.sock != nil {
			c.sock.ArmWritable()
		}
		return
	}
	if c.sock != nil {
		c.sock.ArmWritable()
	}
}

// afterDirectSend handles transitions deferred until a direct send has
// completed the whole message in flight.
func (c *Connection) afterDirectSend(flags WriteFlag) {
	if c.us[OptCompress2] == Yes && c.compress == nil && flags&DontCompress == 0 {
		c.sendRaw([]byte{cmdIAC, cmdSB, OptCompress2, cmdIAC, cmdSE})
		c.compress = newCompressor()
	}
}

// sendRaw writes bytes straight to the socket/queue without any of the
// compression or deferred-transition bookkeeping in write(); used for the
// literal COMPRESS2 activation marker itself.
func (c *Connection) sendRaw(data []byte) {
	if c.Quitting {
		return
	}
	if c.queue.len() > 0 || c.sock == nil {
		c.queueAppend(data)
		return
	}
	n, err := c.sock.TrySend(data)
	if err != nil && !errors.Is(err, ErrWouldBlock) {
		c.Quitting = true
		return
	}
	if n < len(data) {
		c.queueAppend(data[n:])
	}
}

// drainQueue is called by the reactor when the socket becomes writable and
// the connection has a queued head block.
func (c *Connection) drainQueue() {
	head := c.queue.peekHead()
	if head == nil {
		if c.sock != nil {
			c.sock.DisarmWritable()
		}
		return
	}
	toSend := head
	if len(toSend) > blockSize {
		toSend = toSend[:blockSize]
	}
	n, err := c.sock.TrySend(toSend)
	if err != nil && !errors.Is(err, ErrWouldBlock) {
		c.Quitting = true
		return
	}
	if n > 0 {
		c.queue.advanceHead(n)
	}
	if c.queue.len() == 0 {
		c.sock.DisarmWritable()
	}
}

// WritePlain sends application-level output (not protocol bytes) through
// the normal compression/queue path, flushing any active compressor so the
// peer sees it promptly.
func (c *Connection) WritePlain(data []byte) {
	c.write(data, DoFlush)
}

// WriteLen returns the number of bytes currently queued.
func (c *Connection) WriteLen() int {
	return c.queue.len()
}
