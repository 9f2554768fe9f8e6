package compression

import (
	"bufio"
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
)

// magic is the zstd frame header.
var magic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type Compressor struct {
	level   zstd.EncoderLevel
	enabled bool
}

func NewCompressor(level int, enabled bool) *Compressor {
	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 2:
		encoderLevel = zstd.SpeedDefault
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	case 4:
		encoderLevel = zstd.SpeedBestCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}
	return &Compressor{level: encoderLevel, enabled: enabled}
}

// NewWriter wraps w so that everything written is compressed.
// Closing the returned writer flushes the frame but does not close w.
func (c *Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	if !c.enabled {
		return nopWriteCloser{w}, nil
	}
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(c.level),
		zstd.WithEncoderConcurrency(1),
	)
}

// NewReader returns a reader of the decompressed stream. Input that does not start
// with a zstd frame is passed through unchanged.
func (c *Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(magic))
	if err != nil && err != io.EOF {
		return nil, err
	}
	if !bytes.Equal(head, magic) {
		return io.NopCloser(br), nil
	}

	dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
