package telnet

import "bytes"

// shouldEcho reports whether the line editor echoes input back to the
// peer: local ECHO is on and the connection is not in password-invisible
// mode.
func (c *Connection) shouldEcho() bool {
	return c.us[OptEcho] == Yes && !c.Invisible
}

// feedData is the CR/LF-normalizer-plus-line-editor entry point for every
// byte the Telnet byte parser delivers from Normal state.
func (c *Connection) feedData(b byte) {
	if c.crlf != crlfNormal {
		switch c.crlf {
		case crlfAfterCR:
			if b == 0 || b == '\n' {
				c.crlf = crlfNormal
				return
			}
		case crlfAfterLF:
			if b == 0 {
				c.crlf = crlfNormal
				c.trace("warning: LF NUL sequence")
				return
			}
			if b == '\r' {
				c.crlf = crlfNormal
				c.trace("error: LF CR sequence")
				return
			}
		}
		c.crlf = crlfNormal
		// fall through and reprocess b as a fresh Normal-state byte
	}
	c.lineEditByte(b)
}

// lineEditByte dispatches one Normal-state byte to the line editor.
func (c *Connection) lineEditByte(b byte) {
	switch {
	case b == '\r':
		c.emitLine()
		c.crlf = crlfAfterCR
	case b == '\n':
		c.emitLine()
		c.crlf = crlfAfterLF
	case b == 0x00:
		// ignore
	case b == 0x12: // ^R redisplay
		if c.shouldEcho() {
			out := make([]byte, 0, c.curr+2)
			out = append(out, '\r', '\n')
			out = append(out, c.line[:c.curr]...)
			c.write(out, DoFlush)
		}
	case b == 0x15: // ^U erase line
		if c.shouldEcho() {
			c.write(eraseBytes(c.curr), DoFlush)
		}
		c.curr = 0
	case b == 0x17: // ^W erase word
		c.eraseWord()
	case b == 0x08 || b == 0x7F: // BS / DEL
		if c.curr > 0 {
			c.curr--
		}
		if c.shouldEcho() {
			c.write([]byte{0x08, 0x20, 0x08}, DoFlush)
		}
	case b >= 0x20 && !(b >= 0x80 && b <= 0x9F):
		if c.curr < lineLen {
			c.line[c.curr] = b
			c.curr++
			if c.shouldEcho() {
				c.write([]byte{b}, DoFlush)
			}
		}
		// else: line full, silently drop until a terminator arrives
	default:
		// other control byte below 0x20 or 0x80-0x9F: silently dropped
	}
}

// eraseWord consumes trailing spaces then trailing non-spaces from the
// line buffer, echoing an erase sequence per character removed.
func (c *Connection) eraseWord() {
	erased := 0
	for c.curr > 0 && c.line[c.curr-1] == ' ' {
		c.curr--
		erased++
	}
	for c.curr > 0 && c.line[c.curr-1] != ' ' {
		c.curr--
		erased++
	}
	if erased > 0 && c.shouldEcho() {
		c.write(eraseBytes(erased), DoFlush)
	}
}

// eraseBytes renders n repetitions of BS SP BS.
func eraseBytes(n int) []byte {
	return bytes.Repeat([]byte{0x08, 0x20, 0x08}, n)
}

// emitLine finalizes the current line buffer and delivers it to the
// external command collaborator.
func (c *Connection) emitLine() {
	line := make([]byte, c.curr)
	copy(line, c.line[:c.curr])
	c.curr = 0
	c.lineEmitted = true
	if c.OnLine != nil {
		c.OnLine.HandleLine(c, line)
	}
}
