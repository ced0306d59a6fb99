// Package testutil builds GIF byte streams for tests.
//
// Streams are assembled block by block so tests control exactly which
// tables and extensions a frame carries. Image data is real LZW output, so
// the result also decodes with image/gif.
package testutil

import (
	"bytes"
	"compress/lzw"
)

// GCE describes a graphic control extension to place before the image.
type GCE struct {
	Disposal    byte
	Delay       uint16
	Transparent int // -1 for none
}

// FrameSpec describes one single-image GIF stream.
type FrameSpec struct {
	Version     string // "87a" or "89a"; empty means "89a"
	Width       int    // defaults to 2
	Height      int    // defaults to 2
	Colors      [][3]byte
	LocalColors [][3]byte
	Pixels      []byte // defaults to all zero
	GCE         *GCE
	// Before holds raw blocks written between the header and the image.
	Before [][]byte
	// After holds raw blocks written between the image and the trailer.
	After [][]byte
}

// Gray returns n distinct gray entries starting at black.
func Gray(n int) [][3]byte {
	c := make([][3]byte, n)
	for i := range c {
		v := byte(i * 255 / max(n-1, 1))
		c[i] = [3]byte{v, v, v}
	}
	return c
}

// Solid returns a 2-entry table of c followed by white.
func Solid(r, g, b byte) [][3]byte {
	return [][3]byte{{r, g, b}, {0xFF, 0xFF, 0xFF}}
}

// TableExponent is the packed-field exponent e for a table of n entries.
func TableExponent(n int) byte {
	var e byte
	for (1 << (e + 1)) < n {
		e++
	}
	return e
}

// Table pads colors to a power of two and flattens them.
func Table(colors [][3]byte) []byte {
	n := 1 << (TableExponent(len(colors)) + 1)
	b := make([]byte, 3*n)
	for i, c := range colors {
		copy(b[3*i:], c[:])
	}
	return b
}

// EncodeFrame renders s as a complete GIF stream ending in the trailer.
func EncodeFrame(s FrameSpec) []byte {
	if s.Version == "" {
		s.Version = "89a"
	}
	if s.Width == 0 {
		s.Width = 2
	}
	if s.Height == 0 {
		s.Height = 2
	}
	pix := s.Pixels
	if pix == nil {
		pix = make([]byte, s.Width*s.Height)
	}

	var b bytes.Buffer
	b.WriteString("GIF" + s.Version)

	var packed byte
	if s.Colors != nil {
		packed = 0x80 | 0x70 | TableExponent(len(s.Colors))
	}
	b.Write(le16(s.Width))
	b.Write(le16(s.Height))
	b.Write([]byte{packed, 0x00, 0x00})
	if s.Colors != nil {
		b.Write(Table(s.Colors))
	}

	for _, blk := range s.Before {
		b.Write(blk)
	}
	if s.GCE != nil {
		b.Write(GraphicControl(*s.GCE))
	}

	b.WriteByte(0x2C)
	b.Write(le16(0))
	b.Write(le16(0))
	b.Write(le16(s.Width))
	b.Write(le16(s.Height))
	var imgPacked byte
	bits := 1
	if s.Colors != nil {
		bits = int(TableExponent(len(s.Colors))) + 1
	}
	if s.LocalColors != nil {
		e := TableExponent(len(s.LocalColors))
		imgPacked = 0x80 | e
		bits = int(e) + 1
	}
	b.WriteByte(imgPacked)
	if s.LocalColors != nil {
		b.Write(Table(s.LocalColors))
	}
	b.Write(ImageData(pix, bits))

	for _, blk := range s.After {
		b.Write(blk)
	}
	b.WriteByte(0x3B)
	return b.Bytes()
}

// GraphicControl encodes g as an 8-byte extension.
func GraphicControl(g GCE) []byte {
	packed := g.Disposal << 2
	idx := byte(0)
	if g.Transparent >= 0 {
		packed |= 0x01
		idx = byte(g.Transparent)
	}
	d := le16(int(g.Delay))
	return []byte{0x21, 0xF9, 0x04, packed, d[0], d[1], idx, 0x00}
}

// Extension encodes label followed by data as sub-blocks and a terminator.
func Extension(label byte, blocks ...[]byte) []byte {
	b := []byte{0x21, label}
	for _, blk := range blocks {
		b = append(b, byte(len(blk)))
		b = append(b, blk...)
	}
	return append(b, 0x00)
}

// NetscapeLoop is the application extension animated GIFs carry.
func NetscapeLoop(n uint16) []byte {
	return Extension(0xFF, []byte("NETSCAPE2.0"), []byte{0x01, byte(n), byte(n >> 8)})
}

// Comment is a comment extension holding text.
func Comment(text string) []byte {
	return Extension(0xFE, []byte(text))
}

// ImageData is the LZW minimum code size followed by the compressed pixels
// split into sub-blocks.
func ImageData(pix []byte, bits int) []byte {
	litWidth := bits
	if litWidth < 2 {
		litWidth = 2
	}
	var compressed bytes.Buffer
	w := lzw.NewWriter(&compressed, lzw.LSB, litWidth)
	_, _ = w.Write(pix)
	_ = w.Close()

	b := []byte{byte(litWidth)}
	data := compressed.Bytes()
	for len(data) > 0 {
		n := min(len(data), 255)
		b = append(b, byte(n))
		b = append(b, data[:n]...)
		data = data[n:]
	}
	return append(b, 0x00)
}

func le16(v int) []byte {
	return []byte{byte(v), byte(v >> 8)}
}
