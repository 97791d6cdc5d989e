package telnet

import (
	"bytes"
	"time"
)

// handleZMP dispatches a completed ZMP sub-negotiation payload: a sequence
// of NUL-terminated strings, the first of which is the command name.
func (c *Connection) handleZMP(payload []byte) {
	if !validZMPPayload(payload) {
		c.traceErrorf("malformed ZMP sub-negotiation")
		return
	}
	args := splitZMPArgs(payload)
	if len(args) == 0 {
		c.traceErrorf("empty ZMP sub-negotiation")
		return
	}
	switch args[0] {
	case "zmp.ping":
		c.zmpSeenPing++
		c.sendZMP("zmp.time", time.Now().UTC().Format("2006-01-02 15:04:05"))
	default:
		c.trace("zmp command received: " + args[0])
	}
}

// validZMPPayload checks the three structural rules §4.8 requires of an
// incoming ZMP payload: at least two bytes, NUL-terminated overall, and
// every string byte alphanumeric, '.', or '-' (the NUL terminators
// themselves are exempt).
func validZMPPayload(payload []byte) bool {
	if len(payload) < 2 || payload[len(payload)-1] != 0 {
		return false
	}
	for _, b := range payload {
		if b == 0 {
			continue
		}
		switch {
		case b >= '0' && b <= '9', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b == '.', b == '-':
		default:
			return false
		}
	}
	return true
}

// splitZMPArgs splits a ZMP payload on NUL bytes, dropping a trailing
// empty element left by the final terminator.
func splitZMPArgs(payload []byte) []string {
	parts := bytes.Split(payload, []byte{0})
	if len(parts) > 0 && len(parts[len(parts)-1]) == 0 {
		parts = parts[:len(parts)-1]
	}
	args := make([]string, len(parts))
	for i, p := range parts {
		args[i] = string(p)
	}
	return args
}

// sendZMP emits IAC SB ZMP <args...> IAC SE, NUL-terminating every arg and
// doubling any literal IAC bytes the args happen to contain.
func (c *Connection) sendZMP(args ...string) {
	var body bytes.Buffer
	for _, a := range args {
		for i := 0; i < len(a); i++ {
			if a[i] == cmdIAC {
				body.WriteByte(cmdIAC)
			}
			body.WriteByte(a[i])
		}
		body.WriteByte(0)
	}
	payload := append([]byte{cmdIAC, cmdSB, OptZMP}, body.Bytes()...)
	payload = append(payload, cmdIAC, cmdSE)
	c.write(payload, 0)
}

// sendZMPIdent announces this server's identity once ZMP has been agreed
// to locally: name, version, and a short description, the same
// three-argument shape as mcts.c's zmp.ident message.
func (c *Connection) sendZMPIdent() {
	c.sendZMP("zmp.ident", "mcts", "1.0", "A server to test clients' ability to speak telnet and ZMP")
}

// SendZMPPing emits an outbound zmp.ping, for a collaborator that wants to
// exercise the reserved zmp.ping/zmp.time exchange itself rather than only
// answering a peer-initiated one.
func (c *Connection) SendZMPPing() {
	c.sendZMP("zmp.ping")
}
