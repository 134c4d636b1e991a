package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// ZIP stores LZMA streams with their own framing: a two-byte encoder
// version, a little-endian length of the properties block (always 5), the
// five property bytes, then the raw stream terminated by an end-of-stream
// marker. The lzma package instead writes the classic .lzma header: the
// same five property bytes followed by an eight-byte uncompressed size.
// The adapters below translate between the two layouts on the fly.

const (
	lzmaPropsSize  = 5
	lzmaSizeField  = 8
	lzmaVersionMaj = 9
	lzmaVersionMin = 20
)

// lzmaWriter rewrites the classic header emitted by the wrapped encoder
// into ZIP framing before passing compressed data through.
type lzmaWriter struct {
	zw      io.Writer // destination inside the zip entry
	enc     io.WriteCloser
	header  []byte // classic header bytes collected so far
	skipped int    // size-field bytes dropped so far
}

func newLZMAWriter(out io.Writer) (io.WriteCloser, error) {
	lw := &lzmaWriter{zw: out}
	enc, err := lzma.NewWriter(lw)
	if err != nil {
		return nil, fmt.Errorf("initializing lzma encoder: %w", err)
	}
	lw.enc = enc
	return &lzmaFilter{lw: lw}, nil
}

// Write receives the encoder's raw output and performs the header rewrite.
func (lw *lzmaWriter) Write(p []byte) (int, error) {
	n := len(p)

	// Collect the five property bytes, then emit them behind the version
	// prefix ZIP expects.
	if len(lw.header) < lzmaPropsSize {
		take := min(lzmaPropsSize-len(lw.header), len(p))
		lw.header = append(lw.header, p[:take]...)
		p = p[take:]
		if len(lw.header) == lzmaPropsSize {
			prefix := []byte{lzmaVersionMaj, lzmaVersionMin, lzmaPropsSize, 0}
			if _, err := lw.zw.Write(append(prefix, lw.header...)); err != nil {
				return 0, err
			}
		}
	}

	// Drop the eight-byte uncompressed-size field; ZIP framing has none.
	if lw.skipped < lzmaSizeField {
		take := min(lzmaSizeField-lw.skipped, len(p))
		lw.skipped += take
		p = p[take:]
	}

	if len(p) > 0 {
		if _, err := lw.zw.Write(p); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// lzmaFilter is the io.WriteCloser handed to the zip writer; it feeds the
// encoder, whose output flows through lzmaWriter.
type lzmaFilter struct {
	lw *lzmaWriter
}

func (f *lzmaFilter) Write(p []byte) (int, error) {
	return f.lw.enc.Write(p)
}

func (f *lzmaFilter) Close() error {
	return f.lw.enc.Close()
}

// lzmaReadCloser lazily builds the decoder on first read so that header
// errors surface through the Decompressor's io.ReadCloser interface.
type lzmaReadCloser struct {
	src io.Reader
	dec io.Reader
	err error
}

func newLZMAReader(in io.Reader) io.ReadCloser {
	return &lzmaReadCloser{src: in}
}

func (r *lzmaReadCloser) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.dec == nil {
		if r.err = r.init(); r.err != nil {
			return 0, r.err
		}
	}
	return r.dec.Read(p)
}

// init consumes the ZIP framing and reconstructs the classic header the
// lzma package expects, with the size marked unknown so the end-of-stream
// marker terminates decoding.
func (r *lzmaReadCloser) init() error {
	var frame [4]byte
	if _, err := io.ReadFull(r.src, frame[:]); err != nil {
		return fmt.Errorf("reading lzma version header: %w", err)
	}
	propsLen := binary.LittleEndian.Uint16(frame[2:])
	if propsLen != lzmaPropsSize {
		return errors.New("unsupported lzma properties length")
	}

	header := make([]byte, lzmaPropsSize+lzmaSizeField)
	if _, err := io.ReadFull(r.src, header[:lzmaPropsSize]); err != nil {
		return fmt.Errorf("reading lzma properties: %w", err)
	}
	for i := lzmaPropsSize; i < len(header); i++ {
		header[i] = 0xff // unknown size
	}

	dec, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), r.src))
	if err != nil {
		return fmt.Errorf("initializing lzma decoder: %w", err)
	}
	r.dec = dec
	return nil
}

func (r *lzmaReadCloser) Close() error {
	return nil
}
