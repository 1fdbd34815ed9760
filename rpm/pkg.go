package rpm

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/midbel/drpm/comp"
	"github.com/midbel/tape/cpio"
)

// Package holds the parts of an RPM package that precede the payload:
// the lead, the signature block and the metadata header. The payload
// itself is left untouched on the underlying reader.
type Package struct {
	Lead Lead

	name    string
	version string
	release string
	epoch   int64
	epochOk bool

	payload    string
	compressor string

	file string
	size int64
}

type Resource struct {
	Name    string
	Size    int64
	Perm    int64
	ModTime time.Time
}

// Open parses the lead, signature and header of the package at file.
func Open(file string) (*Package, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	p, err := Read(r)
	if err != nil {
		return nil, err
	}
	p.file = file
	return p, nil
}

// Read parses the lead, signature and header from r, leaving r
// positioned on the first payload byte.
func Read(r io.Reader) (*Package, error) {
	cr := counter{inner: r}
	var p Package

	lead, err := readLead(&cr)
	if err != nil {
		return nil, err
	}
	p.Lead = *lead
	if err := readHeader(&cr, true, nil); err != nil {
		return nil, err
	}
	err = readHeader(&cr, false, func(tag int32, v interface{}) error {
		switch tag {
		case tagName:
			p.name, _ = v.(string)
		case tagVersion:
			p.version, _ = v.(string)
		case tagRelease:
			p.release, _ = v.(string)
		case tagEpoch:
			if xs, ok := v.([]int64); ok && len(xs) == 1 {
				p.epoch, p.epochOk = xs[0], true
			}
		case tagPayloadFormat:
			p.payload, _ = v.(string)
		case tagPayloadCompressor:
			p.compressor, _ = v.(string)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.size = cr.total
	return &p, nil
}

// NEVR returns the name-[epoch:]version-release identity string.
func (p *Package) NEVR() string {
	evr := p.version + "-" + p.release
	if p.epochOk {
		evr = strconv.FormatInt(p.epoch, 10) + ":" + evr
	}
	return p.name + "-" + evr
}

// Compression returns the payload compressor recorded in the header.
// Old packages omit the tag; they are always gzip.
func (p *Package) Compression() string {
	if p.compressor == "" {
		return "gzip"
	}
	return p.compressor
}

// Size returns the total on-disk size of the lead, signature and header.
func (p *Package) Size() int64 {
	return p.size
}

// Resources walks the cpio payload of the package and returns its
// entries. The package must have been opened from a file.
func (p *Package) Resources() ([]Resource, error) {
	if p.file == "" {
		return nil, fmt.Errorf("package not opened from a file")
	}
	r, err := os.Open(p.file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if _, err := r.Seek(p.size, io.SeekStart); err != nil {
		return nil, err
	}
	if p.payload != "" && p.payload != "cpio" {
		return nil, fmt.Errorf("%w: unsupported payload format %q", ErrMalformed, p.payload)
	}
	z, err := comp.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer z.Close()

	c := cpio.NewReader(z)
	var rs []Resource
	for {
		h, err := c.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		e := Resource{
			Name:    h.Filename,
			Size:    h.Size,
			Perm:    h.Mode,
			ModTime: h.ModTime,
		}
		rs = append(rs, e)
		if _, err := io.CopyN(io.Discard, c, h.Size); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

type counter struct {
	inner io.Reader
	total int64
}

func (c *counter) Read(bs []byte) (int, error) {
	n, err := c.inner.Read(bs)
	c.total += int64(n)
	return n, err
}
