package gifcreator

import (
	"bytes"
	"fmt"
	"io"
)

// frame is the parsed layout of one single-image GIF stream. Slices alias
// the caller's buffer and are never written to.
type frame struct {
	screen      LogicalScreenDescriptor
	screenRaw   []byte // offsets 6..12
	globalTable []byte

	gce *GraphicsControlBlock // the source's own, if any

	descriptor []byte // 10 bytes, ',' through packed
	localTable []byte
	body       []byte // LZW code size through the last block before the trailer

	netscape bool
	comments int
}

func (f *frame) hasGlobalTable() bool {
	return f.globalTable != nil
}

// palette is the table the frame's pixels index into.
func (f *frame) palette() []byte {
	if f.localTable != nil {
		return f.localTable
	}
	return f.globalTable
}

func hasSignature(data []byte) bool {
	if len(data) < signatureLen {
		return false
	}
	sig := data[:signatureLen]
	return bytes.Equal(sig, sigGIF87a) || bytes.Equal(sig, sigGIF89a)
}

// parseFrame checks the signature and walks the frame's block stream,
// rejecting sources that already carry a NETSCAPE application extension.
func parseFrame(data []byte, index int) (*frame, error) {
	f, err := walkFrame(data)
	if err != nil {
		return nil, frameErr(index, err)
	}
	if f.netscape {
		return nil, frameErr(index, ErrAlreadyAnimated)
	}
	return f, nil
}

// walkFrame parses the block stream without judging it. Each block's
// declared length decides where the next one starts.
func walkFrame(data []byte) (*frame, error) {
	if !hasSignature(data) || len(data) < headerLen {
		return nil, ErrInvalidSignature
	}

	f := &frame{
		screenRaw: data[signatureLen:headerLen],
	}
	f.screen = parseScreenDescriptor(f.screenRaw)

	pos := headerLen
	if f.screen.HasGlobalColorTable() {
		end := pos + f.screen.ColorTableSize()
		if end > len(data) {
			return nil, fmt.Errorf("%w: global color table runs past end of data", ErrMalformedBlock)
		}
		f.globalTable = data[pos:end]
		pos = end
	}

	r := bytes.NewReader(data[pos:])
	bodyStart := -1

	for {
		at := offset(data, r)
		c, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: missing trailer", ErrMalformedBlock)
		}

		switch c {
		case EXTENSION_BLOCK:
			if err := readExtension(f, r); err != nil {
				return nil, fmt.Errorf("%w: extension at offset %d: %v", ErrMalformedBlock, at, err)
			}
		case IMAGE_DESCRIPTOR:
			end, err := readImage(f, data, at, r)
			if err != nil {
				return nil, fmt.Errorf("%w: image at offset %d: %v", ErrMalformedBlock, at, err)
			}
			if bodyStart < 0 {
				bodyStart = end
			}
		case TRAILER:
			if f.descriptor == nil {
				return nil, ErrNoImage
			}
			f.body = data[bodyStart:at]
			return f, nil
		default:
			return nil, fmt.Errorf("%w: unexpected byte 0x%02x at offset %d", ErrMalformedBlock, c, at)
		}
	}
}

func readExtension(f *frame, r *bytes.Reader) error {
	label, err := readByte(r)
	if err != nil {
		return err
	}
	br := newBlockReader(r)
	first, err := br.firstBlock()
	if err != nil {
		return err
	}

	switch label {
	case APPLICATION_BLOCK:
		if len(first) >= len(netscapeID) && bytes.Equal(first[:len(netscapeID)], netscapeID) {
			f.netscape = true
		}
	case COMMENT_BLOCK:
		// Only the application identifier marks a loop; comment text is opaque.
		f.comments++
	case GRAPHICS_CONTROL_BLOCK:
		if len(first) != GRAPHICS_CONTROL_BLOCK_SIZE {
			return fmt.Errorf("graphics control block size %d", len(first))
		}
		if f.gce == nil && f.descriptor == nil {
			f.gce = &GraphicsControlBlock{
				Packed:                first[0],
				DelayTime:             readUint16(first[1:3]),
				TransparentColorIndex: first[3],
			}
		}
	}

	if first == nil {
		// the terminator was already consumed
		return nil
	}
	return br.drain()
}

// readImage consumes an image descriptor, its optional local table and its
// data sub-blocks. It returns the offset just past the descriptor and table.
func readImage(f *frame, data []byte, at int, r *bytes.Reader) (int, error) {
	tableEnd := at + imageDescriptorLen
	if tableEnd > len(data) {
		return 0, io.ErrUnexpectedEOF
	}
	desc := parseImageDescriptor(data[at:tableEnd])
	if desc.HasLocalColorTable() {
		tableEnd += desc.LocalColorTableSize()
		if tableEnd > len(data) {
			return 0, io.ErrUnexpectedEOF
		}
	}
	if _, err := r.Seek(int64(tableEnd-offset(data, r)), io.SeekCurrent); err != nil {
		return 0, err
	}

	// LZW minimum code size
	if _, err := readByte(r); err != nil {
		return 0, err
	}
	if err := newBlockReader(r).drain(); err != nil {
		return 0, err
	}

	if f.descriptor == nil {
		f.descriptor = data[at : at+imageDescriptorLen]
		if desc.HasLocalColorTable() {
			f.localTable = data[at+imageDescriptorLen : tableEnd]
		}
	}
	return tableEnd, nil
}
