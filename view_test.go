package drpm

import (
	"bytes"
	"errors"
	"testing"
)

func TestViewHex(t *testing.T) {
	d := Delta{
		Filename: "dummy.drpm",
		Kind:     RPMOnly,
		Version:  3,
		Sequence: []byte{0xde, 0xad},
		TgtMD5:   bytes.Repeat([]byte{0x0f}, 16),
		head:     rpmonlyHead{nevr: "dummy-2.0-1"},
	}
	v, err := d.View()
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if v.Sequence != "dead" {
		t.Fatalf("sequence %q, want dead", v.Sequence)
	}
	if v.TgtMD5 != "0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f" {
		t.Fatalf("md5 %q", v.TgtMD5)
	}
	if v.TgtNEVR != "dummy-2.0-1" {
		t.Fatalf("target nevr %q", v.TgtNEVR)
	}
}

func TestViewFlatten(t *testing.T) {
	d := Delta{
		Kind:      Standard,
		Adjusts:   []Adjust{{Pos: 4, Delta: -8}, {Pos: 100, Delta: 16}},
		IntCopies: []Copy{{Off: 0, Len: 10}},
		ExtCopies: []ExtCopy{{Adv: -5, Len: 3}},
		head:      rpmonlyHead{nevr: "x-1-1"},
	}
	v, err := d.View()
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	wantAdj := []int64{4, -8, 100, 16}
	if len(v.Adjusts) != 4 {
		t.Fatalf("adjusts %v", v.Adjusts)
	}
	for i := range wantAdj {
		if v.Adjusts[i] != wantAdj[i] {
			t.Fatalf("adjusts %v, want %v", v.Adjusts, wantAdj)
		}
	}
	if len(v.IntCopies) != 2 || v.IntCopies[0] != 0 || v.IntCopies[1] != 10 {
		t.Fatalf("internal copies %v", v.IntCopies)
	}
	if len(v.ExtCopies) != 2 || v.ExtCopies[0] != -5 || v.ExtCopies[1] != 3 {
		t.Fatalf("external copies %v", v.ExtCopies)
	}
}

func TestViewOwnership(t *testing.T) {
	f := rpmonlyFixture()
	f.adjusts = []Adjust{{Pos: 1, Delta: 2}}
	d, err := f.open(t)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	v, err := d.View()
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	// mutating the delta must not show through the view
	d.Adjusts[0] = Adjust{Pos: 9, Delta: 9}
	if v.Adjusts[0] != 1 || v.Adjusts[1] != 2 {
		t.Fatalf("view aliases delta storage: %v", v.Adjusts)
	}
}

func TestViewIncomplete(t *testing.T) {
	var d Delta
	if _, err := d.View(); !errors.Is(err, ErrArgument) {
		t.Fatalf("expected argument error, got %v", err)
	}
}
