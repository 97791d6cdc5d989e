package telnet

// handleSubnegotiation dispatches a completed SB payload (opt, the bytes
// between SB and IAC SE, stripped of the option byte itself) to the
// matching handler. Unknown options are traced and dropped.
func (c *Connection) handleSubnegotiation(opt byte, payload []byte) {
	switch opt {
	case OptTermType:
		c.handleTermType(payload)
	case OptNAWS:
		c.handleNAWS(payload)
	case OptCharset:
		c.handleCharset(payload)
	case OptZMP:
		c.handleZMP(payload)
	default:
		c.traceErrorf("unhandled sub-negotiation for option %d, %d bytes", opt, len(payload))
	}
}

// handleTermType processes a TERMINAL-TYPE IS reply. Requests (SEND) are
// never sent to us; anything else is a protocol error from the peer.
func (c *Connection) handleTermType(payload []byte) {
	if len(payload) == 0 || payload[0] != ttIs {
		c.traceErrorf("malformed TERMINAL-TYPE sub-negotiation")
		return
	}
	c.TermType = string(payload[1:])
	c.trace("terminal type: " + c.TermType)
}

// handleNAWS processes the 4-byte window-size report: width then height,
// each a big-endian 16-bit value.
func (c *Connection) handleNAWS(payload []byte) {
	if len(payload) != 4 {
		c.traceErrorf("malformed NAWS sub-negotiation: %d bytes", len(payload))
		return
	}
	c.Width = int(payload[0])<<8 | int(payload[1])
	c.Height = int(payload[2])<<8 | int(payload[3])
	c.trace("window size updated")
}
