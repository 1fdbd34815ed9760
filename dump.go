package drpm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/midbel/textwrap"
)

// Dump decodes the delta at file and writes a full field dump to w,
// hex blobs included.
func Dump(file string, w io.Writer) error {
	d, err := Open(file)
	if err != nil {
		return err
	}
	v, err := d.View()
	if err != nil {
		return err
	}
	ws := tabwriter.NewWriter(w, 16, 2, 2, ' ', 0)
	defer ws.Flush()

	fmt.Fprintf(ws, "file\t%s\n", v.Filename)
	fmt.Fprintf(ws, "kind\t%s\n", v.Kind)
	fmt.Fprintf(ws, "version\t%d\n", v.Version)
	fmt.Fprintf(ws, "compression\t%s\n", v.Comp)
	fmt.Fprintf(ws, "source\t%s\n", v.SrcNEVR)
	fmt.Fprintf(ws, "target\t%s\n", v.TgtNEVR)
	fmt.Fprintf(ws, "target md5\t%s\n", v.TgtMD5)
	fmt.Fprintf(ws, "target size\t%d\n", v.TgtSize)
	fmt.Fprintf(ws, "target comp\t%s (level %d)\n", v.TgtComp, v.TgtCompLevel)
	if v.TgtCompParam != "" {
		fmt.Fprintf(ws, "comp params\t%s\n", v.TgtCompParam)
	}
	fmt.Fprintf(ws, "header length\t%d\n", v.TgtHeaderLen)
	fmt.Fprintf(ws, "payload offset\t%d\n", v.PayloadFormatOff)
	fmt.Fprintf(ws, "external data\t%d\n", v.ExtDataLen)
	fmt.Fprintf(ws, "internal data\t%d\n", v.IntDataLen)
	dumpBlob(ws, "sequence", v.Sequence)
	dumpBlob(ws, "lead/signature", v.TgtLeadSig)
	dumpInts(ws, "adjustments", v.Adjusts)
	dumpInts(ws, "internal copies", v.IntCopies)
	dumpInts(ws, "external copies", v.ExtCopies)
	return nil
}

func dumpBlob(w io.Writer, label, str string) {
	if str == "" {
		return
	}
	var grp strings.Builder
	for i := 0; i < len(str); i += 8 {
		if i > 0 {
			grp.WriteByte(' ')
		}
		j := i + 8
		if j > len(str) {
			j = len(str)
		}
		grp.WriteString(str[i:j])
	}
	for i, line := range strings.Split(textwrap.Wrap(grp.String()), "\n") {
		if i > 0 {
			label = ""
		}
		fmt.Fprintf(w, "%s\t%s\n", label, line)
	}
}

func dumpInts(w io.Writer, label string, vs []int64) {
	if len(vs) == 0 {
		return
	}
	var str strings.Builder
	for i := 0; i < len(vs); i += 2 {
		if i > 0 {
			str.WriteByte(' ')
		}
		str.WriteByte('(')
		str.WriteString(strconv.FormatInt(vs[i], 10))
		str.WriteByte(',')
		str.WriteString(strconv.FormatInt(vs[i+1], 10))
		str.WriteByte(')')
	}
	fmt.Fprintf(w, "%s\t%d\t%s\n", label, len(vs)/2, str.String())
}
