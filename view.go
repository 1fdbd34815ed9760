package drpm

import (
	"encoding/hex"
	"fmt"

	"github.com/midbel/drpm/comp"
)

// View is the display form of a decoded delta: binary blobs become
// lowercase hex strings and pair lists become flat integer slices with
// count*2 elements in (first, second) wire order. A View shares no
// storage with the Delta it was built from.
type View struct {
	Filename string
	Kind     Kind
	Version  int
	Comp     comp.Method

	SrcNEVR string
	TgtNEVR string

	Sequence string
	TgtMD5   string

	TgtSize      uint32
	TgtComp      comp.Method
	TgtCompLevel int
	TgtCompParam string

	TgtHeaderLen uint32
	TgtLeadSig   string

	PayloadFormatOff uint32
	Adjusts          []int64
	IntCopies        []int64
	ExtCopies        []int64

	ExtDataLen uint64
	IntDataLen uint64
}

// View converts a validated delta into its display form.
func (d *Delta) View() (*View, error) {
	if d == nil || d.head == nil {
		return nil, fmt.Errorf("%w: nil or incomplete delta", ErrArgument)
	}
	v := View{
		Filename:         d.Filename,
		Kind:             d.Kind,
		Version:          d.Version,
		Comp:             d.Comp,
		SrcNEVR:          d.SrcNEVR,
		TgtNEVR:          d.TargetNEVR(),
		Sequence:         hex.EncodeToString(d.Sequence),
		TgtMD5:           hex.EncodeToString(d.TgtMD5),
		TgtSize:          d.TgtSize,
		TgtComp:          d.TgtComp,
		TgtCompLevel:     d.TgtCompLevel,
		TgtCompParam:     hex.EncodeToString(d.TgtCompParam),
		TgtHeaderLen:     d.TgtHeaderLen,
		TgtLeadSig:       hex.EncodeToString(d.TgtLeadSig),
		PayloadFormatOff: d.PayloadFormatOff,
		ExtDataLen:       d.ExtDataLen,
		IntDataLen:       d.IntDataLen,
	}
	if n := len(d.Adjusts); n > 0 {
		v.Adjusts = make([]int64, 0, n*2)
		for _, a := range d.Adjusts {
			v.Adjusts = append(v.Adjusts, int64(a.Pos), int64(a.Delta))
		}
	}
	if n := len(d.IntCopies); n > 0 {
		v.IntCopies = make([]int64, 0, n*2)
		for _, c := range d.IntCopies {
			v.IntCopies = append(v.IntCopies, int64(c.Off), int64(c.Len))
		}
	}
	if n := len(d.ExtCopies); n > 0 {
		v.ExtCopies = make([]int64, 0, n*2)
		for _, c := range d.ExtCopies {
			v.ExtCopies = append(v.ExtCopies, int64(c.Adv), int64(c.Len))
		}
	}
	return &v, nil
}
