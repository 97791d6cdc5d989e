package telnet

import (
	"bytes"
	"testing"
)

func TestCharsetRequestAcceptsFirstOfferedMatch(t *testing.T) {
	c, sock := newTestConn()
	// Peer offers a charset list separated by ';'; both entries are in our
	// whitelist, so the first one offered wins, not our own preference order.
	payload := []byte{cmdIAC, cmdSB, OptCharset, charsetRequest}
	payload = append(payload, ';')
	payload = append(payload, "ISO-8859-1"...)
	payload = append(payload, ';')
	payload = append(payload, "UTF-8"...)
	payload = append(payload, cmdIAC, cmdSE)

	c.Feed(payload)

	if c.Charset != "ISO-8859-1" {
		t.Fatalf("Charset = %q, want ISO-8859-1 (first offered match)", c.Charset)
	}
	wantPrefix := []byte{cmdIAC, cmdSB, OptCharset, charsetAccepted}
	if !bytes.HasPrefix(sock.sent, wantPrefix) {
		t.Fatalf("sent = %v, want prefix %v", sock.sent, wantPrefix)
	}
}

func TestCharsetRequestMatchesCaseInsensitiveAlias(t *testing.T) {
	c, sock := newTestConn()
	// "latin1" is a registered IANA alias for ISO-8859-1, offered lowercase.
	payload := []byte{cmdIAC, cmdSB, OptCharset, charsetRequest}
	payload = append(payload, ';')
	payload = append(payload, "latin1"...)
	payload = append(payload, cmdIAC, cmdSE)

	c.Feed(payload)

	if c.Charset != "latin1" {
		t.Fatalf("Charset = %q, want latin1 (echoed as offered)", c.Charset)
	}
	want := []byte{cmdIAC, cmdSB, OptCharset, charsetAccepted}
	want = append(want, "latin1"...)
	want = append(want, cmdIAC, cmdSE)
	if !bytes.Equal(sock.sent, want) {
		t.Fatalf("sent = %v, want %v", sock.sent, want)
	}
}

func TestCharsetRequestSkipsTTABLEPrefix(t *testing.T) {
	c, _ := newTestConn()
	payload := []byte{cmdIAC, cmdSB, OptCharset, charsetRequest}
	payload = append(payload, "TTABLE"...)
	payload = append(payload, 1) // version byte, skipped
	payload = append(payload, ';')
	payload = append(payload, "UTF-8"...)
	payload = append(payload, cmdIAC, cmdSE)

	c.Feed(payload)

	if c.Charset != "UTF-8" {
		t.Fatalf("Charset = %q, want UTF-8", c.Charset)
	}
}

func TestCharsetRequestRejectsWhenNoOverlap(t *testing.T) {
	c, sock := newTestConn()
	payload := []byte{cmdIAC, cmdSB, OptCharset, charsetRequest}
	payload = append(payload, ';')
	payload = append(payload, "KOI8-R"...)
	payload = append(payload, cmdIAC, cmdSE)

	c.Feed(payload)

	if c.Charset != "" {
		t.Fatalf("Charset = %q, want empty", c.Charset)
	}
	want := []byte{cmdIAC, cmdSB, OptCharset, charsetRejected, cmdIAC, cmdSE}
	if !bytes.Equal(sock.sent, want) {
		t.Fatalf("sent = %v, want %v", sock.sent, want)
	}
}

func TestZMPPingRepliesWithTime(t *testing.T) {
	c, sock := newTestConn()
	payload := []byte{cmdIAC, cmdSB, OptZMP}
	payload = append(payload, "zmp.ping"...)
	payload = append(payload, 0, cmdIAC, cmdSE)

	c.Feed(payload)

	wantPrefix := []byte{cmdIAC, cmdSB, OptZMP}
	wantPrefix = append(wantPrefix, "zmp.time"...)
	if !bytes.HasPrefix(sock.sent, wantPrefix) {
		t.Fatalf("sent = %v, want prefix %v", sock.sent, wantPrefix)
	}
	if c.zmpSeenPing != 1 {
		t.Fatalf("zmpSeenPing = %d, want 1", c.zmpSeenPing)
	}
}

func TestZMPEncodeDecodeRoundTrip(t *testing.T) {
	args := []string{"zmp.weather", "raining cats & dogs", "temp=72\xff"}
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

	// Reverse the IAC-doubling the way the byte parser would while staging
	// a sub-negotiation payload, then decode.
	var unescaped bytes.Buffer
	raw := body.Bytes()
	for i := 0; i < len(raw); i++ {
		if raw[i] == cmdIAC && i+1 < len(raw) && raw[i+1] == cmdIAC {
			i++
		}
		unescaped.WriteByte(raw[i])
	}

	got := splitZMPArgs(unescaped.Bytes())
	if len(got) != len(args) {
		t.Fatalf("decoded %d args, want %d: %v", len(got), len(args), got)
	}
	for i, a := range args {
		if got[i] != a {
			t.Fatalf("arg[%d] = %q, want %q", i, got[i], a)
		}
	}
}

func TestSendZMPIdentDoublesLiteralIAC(t *testing.T) {
	c, sock := newTestConn()
	c.sendZMP("zmp.ident", "na\xffme")
	want := []byte{cmdIAC, cmdSB, OptZMP}
	want = append(want, "zmp.ident"...)
	want = append(want, 0)
	want = append(want, 'n', 'a', cmdIAC, 0xff, 'm', 'e', 0)
	want = append(want, cmdIAC, cmdSE)
	if !bytes.Equal(sock.sent, want) {
		t.Fatalf("sent = %v, want %v", sock.sent, want)
	}
}
