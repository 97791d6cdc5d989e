package telnet

// LineHandler receives completed input lines from the line editor. It is
// the collaborator a shell or command dispatcher implements; the telnet
// package never interprets line content itself.
type LineHandler interface {
	HandleLine(c *Connection, line []byte)
}

// Connection holds all per-connection protocol state: the Q-Method option
// tables, the line/CR-LF editor, the output queue, and an optional active
// compressor. A Connection never performs I/O itself; it calls out to a
// Socket for the non-blocking send/poll primitives and leaves read-side
// I/O to its owner, which funnels bytes in through Feed.
type Connection struct {
	// Addr is the peer's remote address, used only for tracing/logging.
	Addr string

	// us and him are the RFC 1143 Q-Method tables, indexed by option code:
	// us tracks options enabled on this side, him tracks the peer's.
	us  [256]QState
	him [256]QState

	// state is the Telnet byte-parser state; telnetPos is the secondary
	// cursor used while staging a sub-negotiation payload into line.
	state     parserState
	telnetPos int

	// line is the shared line-editor/sub-negotiation staging buffer; curr
	// is the number of bytes currently committed to the input line.
	line [lineLen]byte
	curr int
	crlf crlfState

	// lineEmitted is set by emitLine and consumed by FeedLine, which uses
	// it to stop after the first completed line within a byte batch.
	lineEmitted bool

	// Invisible suppresses local echo regardless of the negotiated ECHO
	// option, for password-style prompts.
	Invisible bool

	// EORRecords is true once IAC EOR framing has been negotiated for
	// this side's output.
	EORRecords bool

	// Width and Height hold the most recent NAWS window size; zero until
	// the peer reports one.
	Width  int
	Height int

	// TermType holds the most recent TERMINAL-TYPE IS value reported by
	// the peer.
	TermType string

	// Charset holds the charset name this connection has settled on via
	// CHARSET negotiation, empty until one is accepted.
	Charset string

	// Vars is the per-connection key/value store a shell's "set" command
	// populates. The engine itself consults only the "nodebug" key: its
	// presence (any value) silences the Debug Tracer.
	Vars map[string]string

	// Quitting is set once the connection should be torn down: a fatal
	// socket error or peer EOF, a queue that exceeded its backpressure
	// limit, or a quit command from the line handler. A compression error
	// does not set it; the connection continues uncompressed.
	Quitting bool

	queue    outQueue
	compress *compressor
	sock     Socket

	// OnLine receives each completed input line. May be nil, in which
	// case lines are simply discarded.
	OnLine LineHandler

	// zmpSeenPing counts zmp.ping requests received from the peer; the
	// zmp.time reply does not depend on it.
	zmpSeenPing int
}

// NewConnection returns a freshly initialized Connection for a peer at
// addr. Attach must be called once a Socket is available before any
// output will actually reach the wire.
func NewConnection(addr string) *Connection {
	return &Connection{
		Addr: addr,
		Vars: make(map[string]string),
	}
}

// SetVar records a runtime variable the way a shell's "set" command does.
// The engine reads this map back only for the "nodebug" key.
func (c *Connection) SetVar(key, value string) {
	c.Vars[key] = value
}

// UnsetVar removes a runtime variable.
func (c *Connection) UnsetVar(key string) {
	delete(c.Vars, key)
}

// Attach gives the connection its non-blocking I/O boundary. Until this
// is called, all writes accumulate in the output queue.
func (c *Connection) Attach(sock Socket) {
	c.sock = sock
}

// Writable is called by the reactor when the attached socket becomes
// writable, to drain whatever is queued.
func (c *Connection) Writable() {
	c.drainQueue()
}

// ReadCapacity reports how many more bytes the line buffer can accept
// before it's full, the bound a reactor peeks up to per §4.9 step 3.
func (c *Connection) ReadCapacity() int {
	return lineLen - c.curr
}

// Start sends the server's initial option offers, in the order §4.9
// prescribes for a freshly accepted connection.
func (c *Connection) Start() {
	c.EnableUs(OptCharset)
	c.EnableUs(OptEOR)
	c.EnableHim(OptNAWS)
	c.EnableHim(OptTermType)
	c.EnableUs(OptZMP)
	c.EnableUs(OptCompress2)
}

// SetInvisible enters password-invisible mode: local echo is suppressed
// regardless of the negotiated ECHO option, and local ECHO is offered so
// the peer stops its own local echo and doesn't show the password either.
func (c *Connection) SetInvisible() {
	c.Invisible = true
	c.EnableUs(OptEcho)
}

// SetVisible leaves password-invisible mode and withdraws local ECHO, so
// the peer goes back to echoing its own input.
func (c *Connection) SetVisible() {
	c.Invisible = false
	c.DisableUs(OptEcho)
}

// Prompt emits prompt bytes per the command surface's prompt primitive:
// followed by IAC EOR when EORRecords is set and echo is off, otherwise
// followed by a redisplay of the in-progress input line when echo is on.
func (c *Connection) Prompt(data []byte) {
	c.write(data, DoFlush)
	switch {
	case c.EORRecords && !c.shouldEcho():
		c.sendIAC(cmdEOR)
	case c.shouldEcho():
		c.write(c.line[:c.curr], DoFlush)
	}
}

// Close tears down any active compression stream and discards queued
// output. It does not close the underlying socket; that is the reactor's
// responsibility once Quitting is observed.
func (c *Connection) Close() {
	if c.compress != nil {
		c.compressFeed(nil, Finish)
	}
	c.queue.reset()
}
