package telnet

// Feed pushes bytes read from the peer through the Telnet byte parser.
// It never blocks and never returns an error: malformed input is traced,
// absorbed, or marks the connection Quitting.
func (c *Connection) Feed(data []byte) {
	for _, b := range data {
		c.feedByte(b)
	}
}

// FeedLine is Feed bounded to at most one completed input line: it stops
// as soon as a line event fires and reports how many bytes of data were
// actually parsed to reach it. A reactor peeking the socket rather than
// consuming it outright uses this to drain only the bytes a line event
// consumed, per §4.9 step 3, leaving anything beyond the first newline
// unconsumed on the wire for the next poll tick. If no line event occurs,
// gotLine is false and every byte of data was consumed.
func (c *Connection) FeedLine(data []byte) (consumed int, gotLine bool) {
	c.lineEmitted = false
	for i, b := range data {
		c.feedByte(b)
		if c.lineEmitted {
			return i + 1, true
		}
	}
	return len(data), false
}

// feedByte advances the single-byte Telnet parser state machine.
func (c *Connection) feedByte(b byte) {
	switch c.state {
	case pNormal:
		if b == cmdIAC {
			c.state = pIAC
		} else {
			c.feedData(b)
		}

	case pIAC:
		switch b {
		case cmdIAC:
			c.state = pNormal
			c.feedData(0xFF)
		case cmdWill:
			c.state = pWill
		case cmdWont:
			c.state = pWont
		case cmdDo:
			c.state = pDo
		case cmdDont:
			c.state = pDont
		case cmdSB:
			c.state = pSB
			c.telnetPos = c.curr
		case cmdGA, cmdEL, cmdEC, cmdAYT, cmdAO, cmdIP, cmdBreak, cmdNOP, cmdAbort, cmdSuspend:
			c.handleOneShot(b)
			c.state = pNormal
		default:
			c.traceErrorf("unknown IAC command %d", b)
			c.state = pNormal
		}

	case pWill:
		c.traceNeg("WILL", b)
		c.recvWill(b)
		c.state = pNormal
	case pWont:
		c.traceNeg("WONT", b)
		c.recvWont(b)
		c.state = pNormal
	case pDo:
		c.traceNeg("DO", b)
		c.recvDo(b)
		c.state = pNormal
	case pDont:
		c.traceNeg("DONT", b)
		c.recvDont(b)
		c.state = pNormal

	case pSB:
		if b == cmdIAC {
			c.state = pSBIac
		} else {
			c.appendSub(b)
		}

	case pSBIac:
		switch b {
		case cmdSE:
			c.dispatchSubneg()
			c.state = pNormal
		case cmdIAC:
			c.appendSub(cmdIAC)
			c.state = pSB
		default:
			c.traceErrorf("aborted subnegotiation: unexpected byte %d after IAC", b)
			c.state = pNormal
		}
	}
}

// appendSub stages one sub-negotiation payload byte at telnetPos, sharing
// the line buffer's storage with the in-progress input line.
func (c *Connection) appendSub(b byte) {
	if c.telnetPos < lineLen {
		c.line[c.telnetPos] = b
		c.telnetPos++
	}
}

// dispatchSubneg delivers the staged [curr, telnetPos) payload to the
// sub-negotiation handler and discards it.
func (c *Connection) dispatchSubneg() {
	payload := append([]byte(nil), c.line[c.curr:c.telnetPos]...)
	c.telnetPos = c.curr
	if len(payload) == 0 {
		return
	}
	c.handleSubnegotiation(payload[0], payload[1:])
}

// handleOneShot implements the IAC one-byte commands.
func (c *Connection) handleOneShot(cmd byte) {
	switch cmd {
	case cmdAYT:
		c.write([]byte("<I AM HERE>\r\n"), DoFlush)
	case cmdEL:
		c.lineEditByte(0x15)
	case cmdEC:
		c.lineEditByte(0x08)
	case cmdAO:
		c.write([]byte{cmdIAC, cmdDM}, DoFlush)
	default: // GA, IP, BREAK, NOP, ABORT, SUSPEND
		c.traceCommand(cmd)
	}
}

// sendNeg emits IAC <cmd> <opt> through the normal write path; negotiation
// replies are tiny and need no bypass of compression or queue policy.
func (c *Connection) sendNeg(cmd, opt byte) {
	c.write([]byte{cmdIAC, cmd, opt}, DoFlush)
}

// sendIAC emits a bare IAC <cmd> (used for the one-shot IAC EOR marker).
func (c *Connection) sendIAC(cmd byte) {
	c.write([]byte{cmdIAC, cmd}, DoFlush)
}
