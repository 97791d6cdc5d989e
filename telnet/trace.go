package telnet

import "fmt"

// optionName renders a Telnet option code the way protocol traces name it.
// OptRCTE (7) and OptOLW (8) are correctly distinguished here; they are
// adjacent codes easy to transpose.
func optionName(opt byte) string {
	switch opt {
	case OptBinary:
		return "BINARY"
	case OptEcho:
		return "ECHO"
	case OptSGA:
		return "SUPPRESS-GO-AHEAD"
	case OptStatus:
		return "STATUS"
	case OptTimingMrk:
		return "TIMING-MARK"
	case OptRCTE:
		return "RCTE"
	case OptOLW:
		return "OUTPUT-LINE-WIDTH"
	case OptTermType:
		return "TERMINAL-TYPE"
	case OptEOR:
		return "END-OF-RECORD"
	case OptNAWS:
		return "NAWS"
	case OptLinemode:
		return "LINEMODE"
	case OptCharset:
		return "CHARSET"
	case OptStartTLS:
		return "START-TLS"
	case OptCompress2:
		return "COMPRESS2"
	case OptMSP:
		return "MSP"
	case OptMXP:
		return "MXP"
	case OptZMP:
		return "ZMP"
	case OptMplex:
		return "MPLEX"
	case OptExtOp:
		return "EXTENDED-OPTIONS-LIST"
	default:
		return fmt.Sprintf("option-%d", opt)
	}
}

// commandName renders a one-shot IAC command byte for tracing.
func commandName(cmd byte) string {
	switch cmd {
	case cmdGA:
		return "GA"
	case cmdEL:
		return "EL"
	case cmdEC:
		return "EC"
	case cmdAYT:
		return "AYT"
	case cmdAO:
		return "AO"
	case cmdIP:
		return "IP"
	case cmdBreak:
		return "BREAK"
	case cmdNOP:
		return "NOP"
	case cmdAbort:
		return "ABORT"
	case cmdSuspend:
		return "SUSPEND"
	case cmdDM:
		return "DM"
	default:
		return fmt.Sprintf("command-%d", cmd)
	}
}

// trace emits a readable protocol-event line back to the peer, gated by
// the "nodebug" runtime variable. Tracing is itself just a write: it goes
// through the normal compression/queue path like any other output.
func (c *Connection) trace(msg string) {
	if _, noDebug := c.Vars["nodebug"]; noDebug {
		return
	}
	c.write([]byte("# "+msg+"\r\n"), DoFlush)
}

// traceErrorf traces a formatted error-condition message.
func (c *Connection) traceErrorf(format string, args ...any) {
	c.trace("error: " + fmt.Sprintf(format, args...))
}

// traceNeg traces a received option negotiation command.
func (c *Connection) traceNeg(kind string, opt byte) {
	c.trace(fmt.Sprintf("received %s %s", kind, optionName(opt)))
}

// traceCommand traces a received one-shot IAC command.
func (c *Connection) traceCommand(cmd byte) {
	c.trace("received " + commandName(cmd))
}
