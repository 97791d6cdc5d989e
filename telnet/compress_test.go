package telnet

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"
)

func TestCompressionStreamDecompresses(t *testing.T) {
	c, sock := newTestConn()
	c.EnableUs(OptCompress2)
	sock.sent = nil
	c.recvDo(OptCompress2)

	marker := []byte{cmdIAC, cmdSB, OptCompress2, cmdIAC, cmdSE}
	if !bytes.Equal(sock.sent, marker) {
		t.Fatalf("sent = %v, want marker %v", sock.sent, marker)
	}

	sock.sent = nil
	c.write([]byte("hello, compressed world"), DoFlush)

	zr, err := zlib.NewReader(bytes.NewReader(sock.sent))
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	defer zr.Close()
	// DoFlush is a sync flush, not a finish: the stream has no end yet, so
	// read exactly the flushed message rather than reading to EOF.
	got := make([]byte, len("hello, compressed world"))
	if _, err := io.ReadFull(zr, got); err != nil {
		t.Fatalf("reading deflate stream: %v", err)
	}
	if string(got) != "hello, compressed world" {
		t.Fatalf("decompressed = %q, want %q", got, "hello, compressed world")
	}
}

func TestCompressionFinishEmitsStatsAndTearsDownContext(t *testing.T) {
	c, sock := newTestConn()
	c.EnableUs(OptCompress2)
	sock.sent = nil
	c.recvDo(OptCompress2)

	sock.sent = nil
	sock.calls = nil
	// Peer unilaterally withdraws the option (us[COMPRESS2] Yes -> No
	// directly); that direct transition is what fires turnedOffUs. The
	// WONT reply and then the notice text both go through the still-active
	// compressor (§4.3 rule 1), the notice finishing the stream, with the
	// stats line following as a separate plaintext write.
	c.recvDont(OptCompress2)

	if c.compress != nil {
		t.Fatalf("expected compression context torn down after Finish")
	}
	if len(sock.calls) != 3 {
		t.Fatalf("got %d writes, want 3 (compressed WONT, compressed notice ending the stream, then plaintext stats)", len(sock.calls))
	}

	stream := append(append([]byte(nil), sock.calls[0]...), sock.calls[1]...)
	zr, err := zlib.NewReader(bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("zlib.NewReader on compressed writes: %v", err)
	}
	defer zr.Close()
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("reading deflate stream: %v", err)
	}
	want := string([]byte{cmdIAC, cmdWont, OptCompress2}) + "MCCP2: compression disabled\r\n"
	if string(got) != want {
		t.Fatalf("decompressed stream = %q, want %q", got, want)
	}

	if !bytes.Contains(sock.calls[2], []byte("MCCP2:")) {
		t.Fatalf("stats write = %q, want a plaintext MCCP2 stats line", sock.calls[2])
	}
}
