package gifcreator

import "fmt"

const (
	EXTENSION_BLOCK = 0x21

	GRAPHICS_CONTROL_BLOCK      = 0xF9
	GRAPHICS_CONTROL_BLOCK_SIZE = 0x04

	PLAINTEXT_BLOCK = 0x01
	COMMENT_BLOCK   = 0xFE

	APPLICATION_BLOCK      = 0xFF
	APPLICATION_BLOCK_SIZE = 0x0B

	IMAGE_DESCRIPTOR = 0x2C
	TRAILER          = 0x3B
)

const (
	signatureLen       = 6
	headerLen          = 13 // signature + logical screen descriptor
	imageDescriptorLen = 10
	graphicsControlLen = 8
	loopExtensionLen   = 19
)

// Disposal methods carried in bits 2-4 of the graphics control packed byte.
const (
	DisposalUnspecified byte = 0
	DisposalNone        byte = 1 // leave the frame in place
	DisposalBackground  byte = 2
	DisposalPrevious    byte = 3

	maxDisposal byte = 7
)

var (
	sigGIF87a = []byte("GIF87a")
	sigGIF89a = []byte("GIF89a")

	netscapeID = []byte("NETSCAPE")
	loopAppID  = []byte("NETSCAPE2.0")
)

/*
HeaderPacked {
	0-2: 	GlobalColorTableSize
	  3: 	ColorTableSortFlag   | Only valid under 89a, 87a always sets it to 0
	4-6:	ColorResolution
	  7:	GlobalColorTableFlag
}
*/

// LogicalScreenDescriptor is the 7 bytes following the signature.
type LogicalScreenDescriptor struct {
	ScreenWidth     uint16
	ScreenHeight    uint16
	Packed          byte
	BackgroundColor byte // unused if GlobalColorTableFlag is unset
	AspectRatio     byte
}

func parseScreenDescriptor(b []byte) LogicalScreenDescriptor {
	return LogicalScreenDescriptor{
		ScreenWidth:     readUint16(b[0:2]),
		ScreenHeight:    readUint16(b[2:4]),
		Packed:          b[4],
		BackgroundColor: b[5],
		AspectRatio:     b[6],
	}
}

func (d LogicalScreenDescriptor) HasGlobalColorTable() bool {
	return d.Packed&0x80 != 0
}

// ColorTableExponent is e in 2^(e+1) entries.
func (d LogicalScreenDescriptor) ColorTableExponent() byte {
	return d.Packed & 0x07
}

// ColorTableEntries = 1 << ((Packed & 7) + 1)
func (d LogicalScreenDescriptor) ColorTableEntries() int {
	return tableEntries(d.Packed)
}

// ColorTableSize = 3 * (1 << ((Packed & 7) + 1))
func (d LogicalScreenDescriptor) ColorTableSize() int {
	return 3 * tableEntries(d.Packed)
}

func tableEntries(packed byte) int {
	return 1 << ((packed & 7) + 1)
}

// [OPTIONAL]
// Comes right after the logical screen descriptor or an image descriptor.
// Size of color table is always a power of 2, with a max of 256 entries in the table
type RGB struct {
	Red   byte
	Green byte
	Blue  byte
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue)
}

type Palette []RGB

func (v Palette) UnmarshalBinary(data []byte) error {
	if len(v)*3 != len(data) {
		return fmt.Errorf("len is not valid. required: %d, actual: %d", len(v)*3, len(data))
	}
	for i := 0; i < len(v); i++ {
		v[i].Red = data[i*3]
		v[i].Green = data[i*3+1]
		v[i].Blue = data[i*3+2]
	}
	return nil
}

func (v Palette) MarshalBinary() []byte {
	data := make([]byte, len(v)*3)

	for i := 0; i < len(v); i++ {
		data[i*3] = v[i].Red
		data[i*3+1] = v[i].Green
		data[i*3+2] = v[i].Blue
	}

	return data
}

// Index returns the first entry equal to c, or -1.
func (v Palette) Index(c RGB) int {
	for i, e := range v {
		if e == c {
			return i
		}
	}
	return -1
}

// Equal reports whether both palettes hold the same entries in the same order.
func (v Palette) Equal(o Palette) bool {
	if len(v) != len(o) {
		return false
	}
	return comparePalettes(v.MarshalBinary(), o.MarshalBinary(), len(v))
}

func decodePalette(table []byte) Palette {
	p := make(Palette, len(table)/3)
	// length is a multiple of 3 by construction
	_ = p.UnmarshalBinary(table[:len(p)*3])
	return p
}

// comparePalettes reports whether the first n RGB triples of a and b match.
func comparePalettes(a, b []byte, n int) bool {
	if len(a) < 3*n || len(b) < 3*n {
		return false
	}
	for i := 0; i < n; i++ {
		if a[3*i+0] != b[3*i+0] ||
			a[3*i+1] != b[3*i+1] ||
			a[3*i+2] != b[3*i+2] {
			return false
		}
	}
	return true
}

/*
ImageDescriptorPacked {
	7:   LocalColorTableFlag | this flag is set (1) if the image contains a local color table
	6:   InterlaceFlag       | this flag is set (1) if the image is interlaced
	5:   SortFlag            | this flag is set (1) if the color table is sorted by importance (frequency of occurrence). only available on 89a
	3-4: Reserved
	0-2: LocalColorTableEntrySize
}
*/

type ImageDescriptor struct {
	Left   uint16 // X position of image
	Top    uint16 // Y position of image
	Width  uint16 // width of image in pixels
	Height uint16 // height of image in pixels
	Packed byte   // image and color table data information
}

// parseImageDescriptor reads the 10 bytes starting at the ',' introducer.
func parseImageDescriptor(b []byte) ImageDescriptor {
	return ImageDescriptor{
		Left:   readUint16(b[1:3]),
		Top:    readUint16(b[3:5]),
		Width:  readUint16(b[5:7]),
		Height: readUint16(b[7:9]),
		Packed: b[9],
	}
}

func (d ImageDescriptor) HasLocalColorTable() bool {
	return d.Packed&0x80 != 0
}

func (d ImageDescriptor) LocalColorTableSize() int {
	return 3 * tableEntries(d.Packed)
}

/*
GraphicsControlPacked {
	0:   TransparentColorFlag
	1:   UserInputFlag
	2-4: DisposalMethod
	5-7: Reserved
}
*/

// GraphicsControlBlock is the payload of a graphic control extension.
type GraphicsControlBlock struct {
	Packed                byte   // method of graphics disposal to use
	DelayTime             uint16 // delay to wait, in 1/100s
	TransparentColorIndex byte   // transparent color index
}

func (g GraphicsControlBlock) Disposal() byte {
	return (g.Packed >> 2) & 0x07
}

func (g GraphicsControlBlock) HasTransparency() bool {
	return g.Packed&0x01 != 0
}

// MarshalBinary encodes the full 8-byte extension, introducer to terminator.
func (g GraphicsControlBlock) MarshalBinary() []byte {
	b := make([]byte, graphicsControlLen)
	b[0] = EXTENSION_BLOCK
	b[1] = GRAPHICS_CONTROL_BLOCK
	b[2] = GRAPHICS_CONTROL_BLOCK_SIZE
	b[3] = g.Packed
	writeUint16(b[4:6], g.DelayTime)
	b[6] = g.TransparentColorIndex
	b[7] = 0x00
	return b
}

// Little-endian.
func readUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// Little-endian.
func writeUint16(b []byte, u uint16) {
	b[0] = uint8(u)
	b[1] = uint8(u >> 8)
}
