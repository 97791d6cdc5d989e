package telnet

import (
	"bytes"
	"testing"
)

func TestFeedPlainTextEmitsLine(t *testing.T) {
	c, _ := newTestConn()
	h := &testHandler{}
	c.OnLine = h
	c.Feed([]byte("look\r\n"))
	if len(h.lines) != 1 || string(h.lines[0]) != "look" {
		t.Fatalf("lines = %v, want [\"look\"]", h.lines)
	}
}

func TestFeedSplitNegotiationAcrossCalls(t *testing.T) {
	c, sock := newTestConn()
	c.Feed([]byte{cmdIAC, cmdDo})
	if len(sock.sent) != 0 {
		t.Fatalf("expected no reply before the option byte arrives, got %v", sock.sent)
	}
	c.Feed([]byte{OptEcho})
	want := []byte{cmdIAC, cmdWill, OptEcho}
	if !bytes.Equal(sock.sent, want) {
		t.Fatalf("sent = %v, want %v", sock.sent, want)
	}
}

func TestFeedEscapedIACByteInData(t *testing.T) {
	c, _ := newTestConn()
	h := &testHandler{}
	c.OnLine = h
	c.Feed([]byte{'h', 'i', cmdIAC, cmdIAC, '\r', '\n'})
	if len(h.lines) != 1 {
		t.Fatalf("expected one line, got %d", len(h.lines))
	}
	want := []byte{'h', 'i', 0xFF}
	if !bytes.Equal(h.lines[0], want) {
		t.Fatalf("line = %v, want %v", h.lines[0], want)
	}
}

func TestFeedCRLFVariantsCollapseToOneLine(t *testing.T) {
	cases := [][]byte{
		{'h', 'i', '\r', '\n'},
		{'h', 'i', '\r', 0},
		{'h', 'i', '\n'},
		{'h', 'i', '\r'},
	}
	for _, in := range cases {
		c, _ := newTestConn()
		h := &testHandler{}
		c.OnLine = h
		c.Feed(in)
		if len(h.lines) != 1 || string(h.lines[0]) != "hi" {
			t.Fatalf("Feed(%v) lines = %v, want one line \"hi\"", in, h.lines)
		}
	}
}

func TestFeedAYTRespondsDirectly(t *testing.T) {
	c, sock := newTestConn()
	c.Feed([]byte{cmdIAC, cmdAYT})
	if !bytes.Contains(sock.sent, []byte("<I AM HERE>")) {
		t.Fatalf("sent = %q, want AYT response", sock.sent)
	}
}

func TestFeedSubnegotiationWithEscapedIAC(t *testing.T) {
	c, _ := newTestConn()
	c.Feed([]byte{
		cmdIAC, cmdSB, OptTermType, ttIs, 'x', cmdIAC, cmdIAC, 'z', cmdIAC, cmdSE,
	})
	if c.TermType != "x\xffz" {
		t.Fatalf("TermType = %q, want %q", c.TermType, "x\xffz")
	}
}

func TestFeedNAWSSubnegotiation(t *testing.T) {
	c, _ := newTestConn()
	c.Feed([]byte{cmdIAC, cmdSB, OptNAWS, 0, 80, 0, 24, cmdIAC, cmdSE})
	if c.Width != 80 || c.Height != 24 {
		t.Fatalf("Width=%d Height=%d, want 80x24", c.Width, c.Height)
	}
}

func TestFeedLineStopsAtFirstLineEvent(t *testing.T) {
	c, _ := newTestConn()
	h := &testHandler{}
	c.OnLine = h
	data := []byte("look\r\nnorth\r\n")

	consumed, gotLine := c.FeedLine(data)

	if !gotLine {
		t.Fatalf("gotLine = false, want true")
	}
	// The line event fires on the CR; the LF after it is left for the next
	// call, where the CR/LF normalizer swallows it.
	if consumed != len("look\r") {
		t.Fatalf("consumed = %d, want %d", consumed, len("look\r"))
	}
	if len(h.lines) != 1 || string(h.lines[0]) != "look" {
		t.Fatalf("lines = %v, want one line \"look\"", h.lines)
	}

	// The remainder is still there for the next call, unconsumed.
	consumed, gotLine = c.FeedLine(data[consumed:])
	if !gotLine || consumed != len("\nnorth\r") {
		t.Fatalf("second FeedLine: consumed=%d gotLine=%v, want %d true", consumed, gotLine, len("\nnorth\r"))
	}
	if len(h.lines) != 2 || string(h.lines[1]) != "north" {
		t.Fatalf("lines = %v, want second line \"north\"", h.lines)
	}
}

func TestFeedLineConsumesEverythingWhenNoLineEvent(t *testing.T) {
	c, _ := newTestConn()
	h := &testHandler{}
	c.OnLine = h
	data := []byte("partial")

	consumed, gotLine := c.FeedLine(data)

	if gotLine {
		t.Fatalf("gotLine = true, want false")
	}
	if consumed != len(data) {
		t.Fatalf("consumed = %d, want %d (all of it)", consumed, len(data))
	}
	if len(h.lines) != 0 {
		t.Fatalf("lines = %v, want none yet", h.lines)
	}
}
