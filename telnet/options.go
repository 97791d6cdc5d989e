// Package telnet implements the per-connection Telnet protocol engine: byte
// parsing, the RFC 1143 Q-Method option-state machine, sub-negotiation
// handlers, line editing, output buffering, and MCCPv2 compression.
package telnet

// Option codes used by the engine's local policies. The full 256-entry
// option-state table exists regardless of which codes are named here.
const (
	OptBinary    byte = 0
	OptEcho      byte = 1
	OptSGA       byte = 3
	OptStatus    byte = 5
	OptTimingMrk byte = 6
	OptRCTE      byte = 7
	OptOLW       byte = 8
	OptTermType  byte = 24
	OptEOR       byte = 25
	OptNAWS      byte = 31
	OptLinemode  byte = 34
	OptCharset   byte = 42
	OptStartTLS  byte = 46
	OptCompress2 byte = 86
	OptMSP       byte = 90
	OptMXP       byte = 91
	OptZMP       byte = 93
	OptMplex     byte = 112
	OptExtOp     byte = 255
)

// QState is one of the six RFC 1143 Q-Method states.
type QState int

const (
	No QState = iota
	Yes
	WantYesEmpty
	WantNoEmpty
	WantYesOpposite
	WantNoOpposite
)

func (s QState) String() string {
	switch s {
	case No:
		return "No"
	case Yes:
		return "Yes"
	case WantYesEmpty:
		return "WantYesEmpty"
	case WantNoEmpty:
		return "WantNoEmpty"
	case WantYesOpposite:
		return "WantYesOpposite"
	case WantNoOpposite:
		return "WantNoOpposite"
	default:
		return "Invalid"
	}
}

// acceptsDo reports whether us[c] transitioning to Yes on an incoming DO
// is something this server agrees to.
func acceptsDo(opt byte) bool {
	switch opt {
	case OptEcho, OptSGA, OptEOR, OptCharset, OptCompress2, OptZMP:
		return true
	default:
		return false
	}
}

// acceptsWill reports whether an incoming WILL from the peer is accepted,
// turning him[c] on. Default reject; explicit accept list only.
func acceptsWill(opt byte) bool {
	switch opt {
	case OptNAWS, OptTermType, OptCharset:
		return true
	default:
		return false
	}
}

// turnOnUs fires when us[c] transitions to Yes (turn_on_us local policy).
func (c *Connection) turnOnUs(opt byte) {
	switch opt {
	case OptEOR:
		c.EORRecords = true
		c.sendIAC(cmdEOR)
	case OptCompress2:
		// The actual context creation lives in afterDirectSend (§4.3): it
		// must run the moment agreement is reached, not wait for the next
		// unrelated write, so scenario §8.4's "immediately followed by"
		// holds even when no further writes are already pending.
		c.afterDirectSend(0)
	case OptZMP:
		c.sendZMPIdent()
	}
}

// turnedOffUs fires when us[c] transitions directly from Yes to No.
func (c *Connection) turnedOffUs(opt byte) {
	if opt == OptEOR {
		c.EORRecords = false
	}
	if opt == OptCompress2 && c.compress != nil {
		// The notice must flow through the still-active compressor, not
		// around it: per §4.3 rule 1, any write while a compression
		// context is active goes through compressFeed unless DontCompress
		// is set, and the C source confirms this exact call shape
		// (SW_FINISH|SW_DO_FLUSH, no SW_DONT_COMPRESS).
		c.write([]byte("MCCP2: compression disabled\r\n"), Finish|DoFlush)
	}
}

// turnedOnHim fires when him[c] transitions to Yes.
func (c *Connection) turnedOnHim(opt byte) {
	switch opt {
	case OptTermType:
		c.write([]byte{cmdIAC, cmdSB, OptTermType, ttSend, cmdIAC, cmdSE}, 0)
	case OptCharset:
		c.sendCharsetRequest()
	}
}

// recvWill processes an incoming IAC WILL <opt>, updating him[opt].
func (c *Connection) recvWill(opt byte) {
	switch c.him[opt] {
	case No:
		if acceptsWill(opt) {
			c.him[opt] = Yes
			c.sendNeg(cmdDo, opt)
			c.turnedOnHim(opt)
		} else {
			c.sendNeg(cmdDont, opt)
		}
	case Yes:
		// ignore
	case WantNoEmpty:
		c.traceErrorf("DO/WILL answer to our own state for option %d", opt)
		c.him[opt] = No
	case WantNoOpposite:
		c.traceErrorf("DO/WILL answer to our own state for option %d", opt)
		c.him[opt] = Yes
		c.turnedOnHim(opt)
	case WantYesEmpty:
		c.him[opt] = Yes
		c.turnedOnHim(opt)
	case WantYesOpposite:
		c.him[opt] = WantNoEmpty
		c.sendNeg(cmdDont, opt)
	}
}

// recvWont processes an incoming IAC WONT <opt>, updating him[opt].
func (c *Connection) recvWont(opt byte) {
	switch c.him[opt] {
	case No:
		// ignore
	case Yes:
		c.him[opt] = No
		c.sendNeg(cmdDont, opt)
	case WantNoEmpty:
		c.him[opt] = No
	case WantNoOpposite:
		c.him[opt] = WantYesEmpty
		c.sendNeg(cmdDo, opt)
	case WantYesEmpty:
		c.him[opt] = No
	case WantYesOpposite:
		c.him[opt] = No
	}
}

// recvDo processes an incoming IAC DO <opt>, updating us[opt].
func (c *Connection) recvDo(opt byte) {
	switch c.us[opt] {
	case No:
		if acceptsDo(opt) {
			c.us[opt] = Yes
			c.sendNeg(cmdWill, opt)
			c.turnOnUs(opt)
		} else {
			c.sendNeg(cmdWont, opt)
		}
	case Yes:
		// ignore
	case WantNoEmpty:
		c.traceErrorf("DO answer to our own state for option %d", opt)
		c.us[opt] = No
	case WantNoOpposite:
		c.traceErrorf("DO answer to our own state for option %d", opt)
		c.us[opt] = Yes
		c.turnOnUs(opt)
	case WantYesEmpty:
		c.us[opt] = Yes
		c.turnOnUs(opt)
	case WantYesOpposite:
		c.us[opt] = WantNoEmpty
		c.sendNeg(cmdWont, opt)
	}
}

// recvDont processes an incoming IAC DONT <opt>, updating us[opt].
// Symmetric to recvWont, firing turnedOffUs on the Yes->No transition.
func (c *Connection) recvDont(opt byte) {
	switch c.us[opt] {
	case No:
		// ignore
	case Yes:
		c.us[opt] = No
		c.sendNeg(cmdWont, opt)
		c.turnedOffUs(opt)
	case WantNoEmpty:
		c.us[opt] = No
	case WantNoOpposite:
		c.us[opt] = WantYesEmpty
		c.sendNeg(cmdWill, opt)
	case WantYesEmpty:
		c.us[opt] = No
	case WantYesOpposite:
		c.us[opt] = No
	}
}

// EnableHim asks the peer to enable option opt (we send DO).
func (c *Connection) EnableHim(opt byte) {
	switch c.him[opt] {
	case No:
		c.him[opt] = WantYesEmpty
		c.sendNeg(cmdDo, opt)
	case WantNoEmpty:
		c.him[opt] = WantNoOpposite
	case Yes, WantYesEmpty, WantYesOpposite, WantNoOpposite:
		// already enabled or already in progress
	}
}

// EnableUs offers to enable option opt locally (we send WILL).
func (c *Connection) EnableUs(opt byte) {
	switch c.us[opt] {
	case No:
		c.us[opt] = WantYesEmpty
		c.sendNeg(cmdWill, opt)
	case WantNoEmpty:
		c.us[opt] = WantNoOpposite
	case Yes, WantYesEmpty, WantYesOpposite, WantNoOpposite:
		// already enabled or already in progress
	}
}

// DisableUs withdraws a locally enabled option (we send WONT).
func (c *Connection) DisableUs(opt byte) {
	switch c.us[opt] {
	case Yes:
		c.us[opt] = WantNoEmpty
		c.sendNeg(cmdWont, opt)
	case WantYesEmpty:
		c.us[opt] = WantYesOpposite
	case No, WantNoEmpty, WantNoOpposite, WantYesOpposite:
		// already disabled or already in progress
	}
}
