package rpm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	Magic       = []byte{0xed, 0xab, 0xee, 0xdb}
	headerMagic = []byte{0x8e, 0xad, 0xe8}
)

const (
	rpmMajor    = 3
	rpmLeadLen  = 96
	rpmIntroLen = 16
	rpmEntryLen = 16
)

// MinLeadSigLen is the smallest possible lead plus signature block: the
// fixed 96-byte lead followed by a signature header with an empty index.
const MinLeadSigLen = rpmLeadLen + rpmIntroLen

const (
	tagName              = 1000
	tagVersion           = 1001
	tagRelease           = 1002
	tagEpoch             = 1003
	tagPayloadFormat     = 1124
	tagPayloadCompressor = 1125
)

const (
	fieldNull int32 = iota
	fieldChar
	fieldInt8
	fieldInt16
	fieldInt32
	fieldInt64
	fieldString
	fieldBinary
	fieldStrArray
	fieldI18NString
)

// ErrMalformed reports bytes that are structurally inconsistent with the
// RPM on-disk format.
var ErrMalformed = errors.New("rpm: malformed package")

type Lead struct {
	Major   uint8
	Minor   uint8
	Type    int16
	Arch    int16
	Os      int16
	SigType int16
	Name    string
}

func readLead(r io.Reader) (*Lead, error) {
	c := struct {
		Magic [4]byte
		Major uint8
		Minor uint8
		Type  int16
		Arch  int16
		Name  [66]byte
		Os    int16
		Sig   int16
		Spare [16]byte
	}{}
	if err := binary.Read(r, binary.BigEndian, &c); err != nil {
		return nil, wrapEOF(err)
	}
	if !bytes.Equal(c.Magic[:], Magic) {
		return nil, fmt.Errorf("%w: invalid magic %x", ErrMalformed, c.Magic)
	}
	if c.Major != rpmMajor {
		return nil, fmt.Errorf("%w: unsupported version %d.%d", ErrMalformed, c.Major, c.Minor)
	}
	if !(c.Type == 0 || c.Type == 1) {
		return nil, fmt.Errorf("%w: invalid package type %d", ErrMalformed, c.Type)
	}
	e := Lead{
		Major:   c.Major,
		Minor:   c.Minor,
		Type:    c.Type,
		Arch:    c.Arch,
		Os:      c.Os,
		SigType: c.Sig,
		Name:    string(bytes.Trim(c.Name[:], "\x00")),
	}
	return &e, nil
}

type entry struct {
	Tag    int32
	Type   int32
	Offset int32
	Len    int32
}

func (e entry) decode(r io.Reader) (interface{}, error) {
	var (
		v   interface{}
		err error
	)
	switch e.Type {
	case fieldChar, fieldInt8:
		var i uint8
		err, v = binary.Read(r, binary.BigEndian, &i), int64(i)
	case fieldInt16:
		var i int16
		err, v = binary.Read(r, binary.BigEndian, &i), int64(i)
	case fieldInt32:
		vs := make([]int64, e.Len)
		for i := 0; i < len(vs); i++ {
			var j int32
			if err = binary.Read(r, binary.BigEndian, &j); err != nil {
				break
			}
			vs[i] = int64(j)
		}
		v = vs
	case fieldInt64:
		var i int64
		err, v = binary.Read(r, binary.BigEndian, &i), i
	case fieldString, fieldI18NString:
		v, err = readString(r)
	case fieldStrArray:
		vs := make([]string, int(e.Len))
		for i := 0; i < len(vs); i++ {
			if vs[i], err = readString(r); err != nil {
				break
			}
		}
		v = vs
	case fieldBinary:
		xs := make([]byte, int(e.Len))
		if _, err = io.ReadFull(r, xs); err == nil {
			v = xs
		}
	case fieldNull:
	default:
		err = fmt.Errorf("%w: unknown field type %d", ErrMalformed, e.Type)
	}
	return v, err
}

func readString(r io.Reader) (string, error) {
	var (
		bs []byte
		b  [1]byte
	)
	for {
		if _, err := r.Read(b[:]); err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
		if b[0] == 0 {
			break
		}
		bs = append(bs, b[0])
	}
	return string(bs), nil
}

// readHeader parses one header section (signature or metadata) and hands
// every entry to fn. Signature sections are padded to an 8-byte boundary.
func readHeader(r io.Reader, padding bool, fn func(tag int32, v interface{}) error) error {
	c := struct {
		Magic   [3]byte
		Version uint8
		Spare   uint32
		Count   int32
		Len     int32
	}{}
	if err := binary.Read(r, binary.BigEndian, &c); err != nil {
		return wrapEOF(err)
	}
	if !bytes.Equal(c.Magic[:], headerMagic) {
		return fmt.Errorf("%w: invalid header magic %x", ErrMalformed, c.Magic)
	}
	if c.Version != 1 {
		return fmt.Errorf("%w: unsupported header version %d", ErrMalformed, c.Version)
	}
	if c.Count < 0 || c.Len < 0 {
		return fmt.Errorf("%w: invalid header geometry", ErrMalformed)
	}
	size := c.Len
	if m := (c.Len + rpmEntryLen + (c.Count * rpmEntryLen)) % 8; padding && m > 0 {
		size += 8 - m
	}
	es := make([]entry, int(c.Count))
	for i := 0; i < len(es); i++ {
		if err := binary.Read(r, binary.BigEndian, &es[i]); err != nil {
			return wrapEOF(err)
		}
	}
	xs := make([]byte, int(size))
	if _, err := io.ReadFull(r, xs); err != nil {
		return wrapEOF(err)
	}
	if fn == nil {
		return nil
	}
	stor := bytes.NewReader(xs)
	for i := 0; i < len(es); i++ {
		e := es[i]
		if e.Offset < 0 || e.Offset > c.Len {
			return fmt.Errorf("%w: entry offset out of range", ErrMalformed)
		}
		if _, err := stor.Seek(int64(e.Offset), io.SeekStart); err != nil {
			return err
		}
		v, err := e.decode(stor)
		if err != nil {
			return wrapEOF(err)
		}
		if v == nil {
			continue
		}
		if err := fn(e.Tag, v); err != nil {
			return err
		}
	}
	return nil
}

func wrapEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: truncated package", ErrMalformed)
	}
	return err
}
