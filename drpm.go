// Package drpm reads DeltaRPM files: binary deltas between two RPM
// packages, carrying the instructions needed to rebuild the target
// package from the source package.
package drpm

import (
	"fmt"
	"os"

	"github.com/midbel/drpm/comp"
	"github.com/midbel/drpm/rpm"
)

const (
	// MagicDelta opens rpm-only deltas ("drpm").
	MagicDelta = 0x6472706d
	// MagicRPM opens standard deltas, which embed a full RPM lead,
	// signature and header before the delta payload.
	MagicRPM = 0xedabeedb

	magicDLT  = 0x444c54   // "DLT", top bytes of the version tag
	magicDLT3 = 0x444c5433 // "DLT3", rpm-only sub-header
)

const md5Len = 16

type Kind uint8

const (
	Standard Kind = iota
	RPMOnly
)

func (k Kind) String() string {
	switch k {
	case Standard:
		return "standard"
	case RPMOnly:
		return "rpm-only"
	default:
		return "unknown"
	}
}

// Adjust corrects the offset of one archive entry: Delta is added to
// positions at or past Pos when the patch is applied.
type Adjust struct {
	Pos   uint32
	Delta int32
}

// Copy instructs the patch step to take Len bytes at Off from the data
// travelling inside the delta.
type Copy struct {
	Off uint32
	Len uint32
}

// ExtCopy instructs the patch step to take Len bytes from the source
// package payload. Adv advances a running cursor; offsets on the wire
// are cumulative deltas, not absolute positions.
type ExtCopy struct {
	Adv int32
	Len uint32
}

// Delta is the raw decoded form of a delta file. Fields appear in wire
// order. A Delta returned by Open is fully populated and has passed all
// structural validation; a failed decode returns no Delta at all.
type Delta struct {
	Filename string
	Kind     Kind
	Version  int
	Comp     comp.Method

	SrcNEVR  string
	Sequence []byte
	TgtMD5   []byte

	TgtSize      uint32
	TgtComp      comp.Method
	TgtCompLevel int
	TgtCompParam []byte

	TgtHeaderLen uint32
	Adjusts      []Adjust

	TgtLeadSig []byte

	PayloadFormatOff uint32
	IntCopies        []Copy
	ExtCopies        []ExtCopy

	ExtDataLen uint64
	AddData    []byte
	IntDataLen uint64
	IntData    []byte

	head head
}

// head carries the part of a delta that differs per kind: rpm-only
// deltas store the target NEVR in their own sub-header, standard deltas
// embed a full RPM package head.
type head interface {
	TargetNEVR() string
}

type rpmonlyHead struct {
	nevr string
}

func (h rpmonlyHead) TargetNEVR() string {
	return h.nevr
}

type standardHead struct {
	pkg *rpm.Package
}

func (h standardHead) TargetNEVR() string {
	return h.pkg.NEVR()
}

// TargetNEVR returns the identity of the package the delta rebuilds.
func (d *Delta) TargetNEVR() string {
	if d.head == nil {
		return ""
	}
	return d.head.TargetNEVR()
}

// Package returns the embedded RPM package head of a standard delta,
// or nil for rpm-only deltas.
func (d *Delta) Package() *rpm.Package {
	if h, ok := d.head.(standardHead); ok {
		return h.pkg
	}
	return nil
}

// Open reads and validates the delta file at file. The returned Delta
// owns all of its buffers; the file is closed before Open returns.
func Open(file string) (*Delta, error) {
	if file == "" {
		return nil, fmt.Errorf("%w: no file given", ErrArgument)
	}
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	magic, err := readBE32(r)
	if err != nil {
		return nil, err
	}
	d := Delta{
		Filename: file,
	}
	switch magic {
	case MagicDelta:
		d.Kind = RPMOnly
		err = readRPMOnly(r, &d)
	case MagicRPM:
		d.Kind = Standard
		err = readStandard(r, &d)
	default:
		return nil, fmt.Errorf("%w: unrecognized magic %08x", ErrFormat, magic)
	}
	if err != nil {
		return nil, err
	}
	if err := readPayload(r, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
