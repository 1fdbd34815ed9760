package comp

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

type Method uint8

const (
	None Method = iota
	Gzip
	Bzip2
	Lzma
	XZ
	Zstd
)

func (m Method) String() string {
	switch m {
	case None:
		return "uncompressed"
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case Lzma:
		return "lzma"
	case XZ:
		return "xz"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

func Parse(str string) (Method, error) {
	switch str {
	case "", "gz", "gzip":
		return Gzip, nil
	case "bz2", "bzip2":
		return Bzip2, nil
	case "lzma":
		return Lzma, nil
	case "xz":
		return XZ, nil
	case "zst", "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unsupported compression method %q", str)
	}
}

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte{'B', 'Z', 'h'}
	magicLzma  = []byte{0x5d, 0x00, 0x00}
	magicXZ    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Detect guesses the compression method from the leading bytes of a
// stream. Unrecognized prefixes are reported as None, never as an error:
// old deltas store their payload uncompressed.
func Detect(magic []byte) Method {
	switch {
	case bytes.HasPrefix(magic, magicGzip):
		return Gzip
	case bytes.HasPrefix(magic, magicBzip2):
		return Bzip2
	case bytes.HasPrefix(magic, magicXZ):
		return XZ
	case bytes.HasPrefix(magic, magicLzma):
		return Lzma
	case bytes.HasPrefix(magic, magicZstd):
		return Zstd
	default:
		return None
	}
}

// Reader decompresses a stream whose compression method is sniffed from
// its first bytes. It also provides the big-endian integer reads that
// length-prefixed binary formats need.
type Reader struct {
	inner  io.Reader
	method Method
}

func NewReader(r io.Reader) (*Reader, error) {
	buf := bufio.NewReader(r)
	magic, err := buf.Peek(len(magicXZ))
	if err != nil && err != io.EOF {
		return nil, err
	}
	z := Reader{
		method: Detect(magic),
	}
	err = nil
	switch z.method {
	case Gzip:
		z.inner, err = gzip.NewReader(buf)
	case Bzip2:
		z.inner = bzip2.NewReader(buf)
	case Lzma:
		z.inner, err = lzma.NewReader(buf)
	case XZ:
		z.inner, err = xz.NewReader(buf)
	case Zstd:
		var d *zstd.Decoder
		if d, err = zstd.NewReader(buf); err == nil {
			z.inner = d.IOReadCloser()
		}
	default:
		z.inner = buf
	}
	if err != nil {
		return nil, err
	}
	return &z, nil
}

func (z *Reader) Method() Method {
	return z.method
}

func (z *Reader) Read(bs []byte) (int, error) {
	return z.inner.Read(bs)
}

// Next reads exactly n bytes. A stream ending before n bytes arrive is
// reported as io.ErrUnexpectedEOF even when the boundary falls on a read.
func (z *Reader) Next(n int) ([]byte, error) {
	bs := make([]byte, n)
	if _, err := io.ReadFull(z.inner, bs); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return bs, nil
}

func (z *Reader) Uint32() (uint32, error) {
	bs, err := z.Next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(bs), nil
}

func (z *Reader) Uint64() (uint64, error) {
	bs, err := z.Next(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(bs), nil
}

func (z *Reader) Close() error {
	if c, ok := z.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
