package telnet

import (
	"bytes"
	"compress/zlib"
	"fmt"
)

// compressionLevel is the fixed zlib deflate level used for MCCPv2 streams.
const compressionLevel = 6

// compressor is the MCCPv2 pipeline: a zlib deflate stream whose output is
// staged and then handed back to the direct (uncompressed) write path with
// DontCompress set, so it never re-enters the compressor.
type compressor struct {
	zw       *zlib.Writer
	staging  bytes.Buffer
	inBytes  int
	outBytes int
}

func newCompressor() *compressor {
	cp := &compressor{}
	cp.staging.Grow(compBuffLen)
	zw, err := zlib.NewWriterLevel(&cp.staging, compressionLevel)
	if err != nil {
		// compressionLevel is a valid constant; this cannot happen, but if
		// zlib ever rejected it we'd have no compressor at all.
		zw = zlib.NewWriter(&cp.staging)
	}
	cp.zw = zw
	return cp
}

// compressFeed compresses data (which may be empty, for a bare flush/finish) and
// drains whatever the staging buffer accumulated through conn's direct
// write path. Errors from the compressor tear down the context.
func (c *Connection) compressFeed(data []byte, flags WriteFlag) {
	cp := c.compress
	if cp == nil {
		return
	}
	cp.inBytes += len(data)
	if len(data) > 0 {
		if _, err := cp.zw.Write(data); err != nil {
			c.teardownCompression()
			return
		}
	}

	switch {
	case flags&Finish != 0:
		if err := cp.zw.Close(); err != nil {
			c.teardownCompression()
			return
		}
		c.drainCompressionStaging(true)
	case flags&DoFlush != 0:
		if err := cp.zw.Flush(); err != nil {
			c.teardownCompression()
			return
		}
		c.drainCompressionStaging(false)
	default:
		c.drainCompressionStaging(false)
	}
}

// drainCompressionStaging hands any staged compressor output to the direct
// write path, bypassing policy re-evaluation: compressed bytes go straight
// to the queue or socket, never back through the compressor.
func (c *Connection) drainCompressionStaging(finished bool) {
	cp := c.compress
	if cp.staging.Len() > 0 {
		out := make([]byte, cp.staging.Len())
		copy(out, cp.staging.Bytes())
		cp.staging.Reset()
		cp.outBytes += len(out)
		c.write(out, DontCompress)
	}
	if finished {
		ratio := 0.0
		if cp.inBytes > 0 {
			ratio = float64(cp.outBytes) / float64(cp.inBytes)
		}
		stats := fmt.Sprintf("MCCP2: %d bytes in, %d bytes out, ratio %.2f\r\n", cp.inBytes, cp.outBytes, ratio)
		c.write([]byte(stats), DontCompress)
		c.compress = nil
	}
}

// teardownCompression tears down the compression context after an error;
// bytes in flight are lost and subsequent writes revert to uncompressed.
func (c *Connection) teardownCompression() {
	c.compress = nil
	c.trace("compression error, context torn down")
}
