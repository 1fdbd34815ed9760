package drpm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/midbel/drpm/comp"
	"github.com/midbel/drpm/rpm"
)

// readBE32 reads a big-endian 32-bit integer straight from the file.
// A read error is infrastructure; fewer bytes than requested means the
// file itself is truncated.
func readBE32(r io.Reader) (uint32, error) {
	var bs [4]byte
	if _, err := io.ReadFull(r, bs[:]); err != nil {
		return 0, shortRead(err)
	}
	return binary.BigEndian.Uint32(bs[:]), nil
}

func shortRead(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: short read", ErrFormat)
	}
	return err
}

// readRPMOnly parses the uncompressed sub-header specific to rpm-only
// deltas: a second magic, the target NEVR and the add data. These bytes
// precede the compressed payload and are read from the raw descriptor.
func readRPMOnly(r io.Reader, d *Delta) error {
	magic, err := readBE32(r)
	if err != nil {
		return err
	}
	if magic != magicDLT3 {
		return fmt.Errorf("%w: unrecognized rpm-only magic %08x", ErrFormat, magic)
	}
	size, err := readBE32(r)
	if err != nil {
		return err
	}
	nevr := make([]byte, size)
	if _, err := io.ReadFull(r, nevr); err != nil {
		return shortRead(err)
	}
	size, err = readBE32(r)
	if err != nil {
		return err
	}
	add := make([]byte, size)
	if _, err := io.ReadFull(r, add); err != nil {
		return shortRead(err)
	}
	d.AddData = add
	d.head = rpmonlyHead{nevr: string(nevr)}
	return nil
}

// readStandard parses the RPM package embedded at the front of a
// standard delta and positions the descriptor on the first byte past
// its header. The package's own payload compression stands in for the
// target compression on wire versions that do not carry the field.
func readStandard(r *os.File, d *Delta) error {
	pkg, err := rpm.Open(d.Filename)
	if err != nil {
		if errors.Is(err, rpm.ErrMalformed) {
			return fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return err
	}
	method, err := comp.Parse(pkg.Compression())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	d.TgtComp = method
	if _, err := r.Seek(pkg.Size(), io.SeekStart); err != nil {
		return err
	}
	d.head = standardHead{pkg: pkg}
	return nil
}

// readPayload decodes the compressed tail shared by both delta kinds.
// Every field gates the next one; the first violation aborts the decode.
func readPayload(r io.Reader, d *Delta) error {
	z, err := comp.NewReader(r)
	if err != nil {
		return err
	}
	defer z.Close()
	d.Comp = z.Method()

	version, err := z.Uint32()
	if err != nil {
		return streamErr(err)
	}
	if version>>8 != magicDLT {
		return fmt.Errorf("%w: unrecognized version tag %08x", ErrFormat, version)
	}
	d.Version = int(version&0xff) - '0'
	if d.Version < 1 || d.Version > 3 {
		return fmt.Errorf("%w: unsupported delta version %d", ErrFormat, d.Version)
	}
	if d.Version < 3 && d.Kind == RPMOnly {
		// rpm-only deltas only exist since version 3
		return fmt.Errorf("%w: version %d rpm-only delta", ErrFormat, d.Version)
	}

	nevr, err := readBlob(z)
	if err != nil {
		return err
	}
	d.SrcNEVR = string(nevr)

	// the sequence is the target MD5 seed plus, for standard deltas
	// only, the order in which header files appear in the archive
	size, err := z.Uint32()
	if err != nil {
		return streamErr(err)
	}
	if size < md5Len || (size != md5Len && d.Kind == RPMOnly) {
		return fmt.Errorf("%w: bad sequence length %d", ErrFormat, size)
	}
	if d.Sequence, err = z.Next(int(size)); err != nil {
		return streamErr(err)
	}

	if d.TgtMD5, err = z.Next(md5Len); err != nil {
		return streamErr(err)
	}

	if d.Version >= 2 {
		if d.TgtSize, err = z.Uint32(); err != nil {
			return streamErr(err)
		}
		word, err := z.Uint32()
		if err != nil {
			return streamErr(err)
		}
		method, level, ok := decodeTargetComp(word)
		if !ok {
			return fmt.Errorf("%w: unrecognized target compression %d", ErrFormat, word)
		}
		d.TgtComp, d.TgtCompLevel = method, level

		size, err := z.Uint32()
		if err != nil {
			return streamErr(err)
		}
		if size > 0 {
			if d.TgtCompParam, err = z.Next(int(size)); err != nil {
				return streamErr(err)
			}
		}
		if d.Version == 3 {
			if d.TgtHeaderLen, err = z.Uint32(); err != nil {
				return streamErr(err)
			}
			count, err := z.Uint32()
			if err != nil {
				return streamErr(err)
			}
			if count > 0 {
				d.Adjusts = make([]Adjust, count)
				for i := range d.Adjusts {
					if d.Adjusts[i].Pos, err = z.Uint32(); err != nil {
						return streamErr(err)
					}
				}
				for i := range d.Adjusts {
					v, err := z.Uint32()
					if err != nil {
						return streamErr(err)
					}
					d.Adjusts[i].Delta = signDecode(v)
				}
			}
		}
	}
	if d.TgtHeaderLen == 0 && d.Kind == RPMOnly {
		// rpm-only deltas carry the target header in the diff
		return fmt.Errorf("%w: rpm-only delta without target header", ErrFormat)
	}

	size, err = z.Uint32()
	if err != nil {
		return streamErr(err)
	}
	if size < rpm.MinLeadSigLen {
		return fmt.Errorf("%w: lead and signature too short (%d)", ErrFormat, size)
	}
	if d.TgtLeadSig, err = z.Next(int(size)); err != nil {
		return streamErr(err)
	}

	if d.PayloadFormatOff, err = z.Uint32(); err != nil {
		return streamErr(err)
	}
	intCount, err := z.Uint32()
	if err != nil {
		return streamErr(err)
	}
	extCount, err := z.Uint32()
	if err != nil {
		return streamErr(err)
	}

	// copy lists store all first elements, then all second elements
	if intCount > 0 {
		d.IntCopies = make([]Copy, intCount)
		for i := range d.IntCopies {
			if d.IntCopies[i].Off, err = z.Uint32(); err != nil {
				return streamErr(err)
			}
		}
		for i := range d.IntCopies {
			if d.IntCopies[i].Len, err = z.Uint32(); err != nil {
				return streamErr(err)
			}
		}
	}
	if extCount > 0 {
		d.ExtCopies = make([]ExtCopy, extCount)
		for i := range d.ExtCopies {
			v, err := z.Uint32()
			if err != nil {
				return streamErr(err)
			}
			d.ExtCopies[i].Adv = signDecode(v)
		}
		for i := range d.ExtCopies {
			if d.ExtCopies[i].Len, err = z.Uint32(); err != nil {
				return streamErr(err)
			}
		}
	}

	if d.Version == 3 {
		if d.ExtDataLen, err = z.Uint64(); err != nil {
			return streamErr(err)
		}
	} else {
		v, err := z.Uint32()
		if err != nil {
			return streamErr(err)
		}
		d.ExtDataLen = uint64(v)
	}

	size, err = z.Uint32()
	if err != nil {
		return streamErr(err)
	}
	if size > 0 {
		if d.Kind == RPMOnly {
			// already carried in the uncompressed sub-header
			return fmt.Errorf("%w: add data on an rpm-only delta", ErrFormat)
		}
		if d.AddData, err = z.Next(int(size)); err != nil {
			return streamErr(err)
		}
	}

	if d.Version == 3 {
		if d.IntDataLen, err = z.Uint64(); err != nil {
			return streamErr(err)
		}
	} else {
		v, err := z.Uint32()
		if err != nil {
			return streamErr(err)
		}
		d.IntDataLen = uint64(v)
	}
	if d.IntDataLen > maxInt {
		return fmt.Errorf("%w: internal data length %d", ErrOverflow, d.IntDataLen)
	}
	if d.IntDataLen > 0 {
		if d.IntData, err = z.Next(int(d.IntDataLen)); err != nil {
			return streamErr(err)
		}
	}

	return validateCopies(d)
}

// validateCopies walks both copy lists once, accumulating positions.
// The lists become direct byte-range reads during patch application, so
// any entry escaping its declared pool is rejected here.
func validateCopies(d *Delta) error {
	var off uint64
	for _, c := range d.IntCopies {
		off += uint64(c.Len)
		if off > d.IntDataLen {
			return fmt.Errorf("%w: internal copies overrun internal data (%d > %d)", ErrFormat, off, d.IntDataLen)
		}
	}
	off = 0
	for _, c := range d.ExtCopies {
		off += uint64(int64(c.Adv))
		if off > d.ExtDataLen {
			return fmt.Errorf("%w: external copy offset out of bounds", ErrFormat)
		}
		off += uint64(c.Len)
		if off == 0 || off > d.ExtDataLen {
			return fmt.Errorf("%w: external copies overrun external data (%d > %d)", ErrFormat, off, d.ExtDataLen)
		}
	}
	return nil
}

func readBlob(z *comp.Reader) ([]byte, error) {
	size, err := z.Uint32()
	if err != nil {
		return nil, streamErr(err)
	}
	bs, err := z.Next(int(size))
	if err != nil {
		return nil, streamErr(err)
	}
	return bs, nil
}

// streamErr maps a truncated decompression stream to a format error;
// anything else is a transport failure and passes through.
func streamErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated delta payload", ErrFormat)
	}
	return err
}

const signBit = 1 << 31

// signDecode undoes the signed-magnitude encoding used on the wire:
// negative values carry the sign bit over their absolute value.
func signDecode(v uint32) int32 {
	if v&signBit == 0 {
		return int32(v)
	}
	return int32(-(v ^ signBit))
}

// decodeTargetComp unpacks the target compression word into a method
// and a level, following the historic deltarpm encoding.
func decodeTargetComp(code uint32) (comp.Method, int, bool) {
	switch code {
	case 0:
		return comp.None, 0, true
	case 1:
		return comp.Gzip, 9, true
	case 2:
		return comp.Bzip2, 9, true
	case 3:
		// gzip rsyncable
		return comp.Gzip, 9, true
	case 4:
		return comp.Bzip2, 7, true
	case 5:
		return comp.Lzma, 2, true
	case 6:
		return comp.XZ, 2, true
	case 7:
		return comp.Zstd, 3, true
	default:
		return comp.None, 0, false
	}
}

const maxInt = uint64(^uint(0) >> 1)
