package telnet

import (
	"bytes"

	"golang.org/x/text/encoding/ianaindex"
)

// CHARSET sub-negotiation command bytes (RFC 2066).
const (
	charsetRequest        byte = 1
	charsetAccepted       byte = 2
	charsetRejected       byte = 3
	charsetTTableIs       byte = 4
	charsetTTableRejected byte = 5
	charsetTTableAck      byte = 6
	charsetTTableNak      byte = 7
)

// preferredCharsets is the whitelist this server offers when it is the one
// asking the peer to choose, tried in order.
var preferredCharsets = []string{"UTF-8", "US-ASCII", "ISO-8859-1"}

// sendCharsetRequest asks the peer to pick a charset from our whitelist.
func (c *Connection) sendCharsetRequest() {
	sep := byte(';')
	payload := []byte{cmdIAC, cmdSB, OptCharset, charsetRequest}
	for _, name := range preferredCharsets {
		payload = append(payload, sep)
		payload = append(payload, name...)
	}
	payload = append(payload, cmdIAC, cmdSE)
	c.write(payload, 0)
}

// handleCharset dispatches an incoming CHARSET sub-negotiation. It covers
// both roles: replying to a REQUEST from the peer, and consuming an
// ACCEPTED/REJECTED answer to a REQUEST we sent.
func (c *Connection) handleCharset(payload []byte) {
	if len(payload) == 0 {
		c.traceErrorf("empty CHARSET sub-negotiation")
		return
	}
	switch payload[0] {
	case charsetRequest:
		c.replyToCharsetRequest(payload[1:])
	case charsetAccepted:
		c.Charset = string(payload[1:])
		c.trace("charset accepted: " + c.Charset)
	case charsetRejected:
		c.trace("charset negotiation rejected by peer")
	case charsetTTableIs:
		// This server never implements translation tables; reject it.
		c.write([]byte{cmdIAC, cmdSB, OptCharset, charsetTTableRejected, cmdIAC, cmdSE}, 0)
	case charsetTTableRejected, charsetTTableAck, charsetTTableNak:
		c.trace("translation-table charset variant not supported")
	default:
		c.traceErrorf("unknown CHARSET sub-negotiation command %d", payload[0])
	}
}

// ttablePrefix precedes an optional one-byte version number in a CHARSET
// REQUEST; RFC 2066 is ambiguous about this framing, so per the source
// this server reproduces, the prefix plus its version byte is always
// exactly 7 bytes, skipped unconditionally when present.
const ttablePrefix = "TTABLE"

// replyToCharsetRequest picks the first charset in rest (an optional
// "TTABLE"+version prefix, then a <sep>-delimited list) that canonicalizes,
// via the IANA charset registry, to one of our whitelist entries. Names are
// scanned in the order the peer offered them, not whitelist order, so a
// peer-preferred alias wins over a later whitelist-preferred one; the reply
// echoes the peer's own bytes for the matched name, not our canonical form.
func (c *Connection) replyToCharsetRequest(rest []byte) {
	if bytes.HasPrefix(rest, []byte(ttablePrefix)) {
		if len(rest) < len(ttablePrefix)+1 {
			c.rejectCharset()
			return
		}
		rest = rest[len(ttablePrefix)+1:]
	}
	if len(rest) < 2 {
		c.rejectCharset()
		return
	}
	sep := rest[0]
	for _, part := range bytes.Split(rest[1:], []byte{sep}) {
		if len(part) == 0 {
			continue
		}
		if canonicalCharset(string(part)) != "" {
			c.acceptCharset(string(part))
			return
		}
	}
	c.rejectCharset()
}

// canonicalCharset resolves name (any case, any IANA-registered alias)
// against the IANA charset registry and reports which whitelist entry (by
// its preferred MIME name) it canonicalizes to, or "" if it is not one of
// the three we offer.
func canonicalCharset(name string) string {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return ""
	}
	canon, err := ianaindex.MIME.Name(enc)
	if err != nil {
		return ""
	}
	switch canon {
	case "UTF-8", "US-ASCII", "ISO-8859-1":
		return canon
	default:
		return ""
	}
}

func (c *Connection) acceptCharset(name string) {
	c.Charset = name
	payload := []byte{cmdIAC, cmdSB, OptCharset, charsetAccepted}
	payload = append(payload, name...)
	payload = append(payload, cmdIAC, cmdSE)
	c.write(payload, 0)
	c.trace("charset accepted: " + name)
}

func (c *Connection) rejectCharset() {
	c.write([]byte{cmdIAC, cmdSB, OptCharset, charsetRejected, cmdIAC, cmdSE}, 0)
	c.trace("charset request rejected: no mutually supported charset")
}
