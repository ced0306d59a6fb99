package gifcreator

import (
	"bytes"
	"io"
)

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	n, err := r.Read(buf[:])
	if n == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	return buf[0], err
}

func (v *blockReader) readNextBlock() error {
	blockSize, err := readByte(v.r)
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	if err != nil {
		return err
	}
	if blockSize == 0 {
		return io.EOF
	}
	_, err = io.ReadFull(v.r, v.buf[:blockSize])
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	if err != nil {
		return err
	}
	v.bufLen = int(blockSize)
	v.bufNext = 0
	return nil
}

func (v *blockReader) Read(p []byte) (n int, err error) {
	if v.bufNext >= v.bufLen {
		err = v.readNextBlock()
		if err != nil {
			return 0, err
		}
	}
	n = min(len(p), v.bufLen-v.bufNext)
	copy(p, v.buf[v.bufNext:v.bufNext+n])
	v.bufNext += n
	return
}

// firstBlock reads the leading sub-block of a chain and marks it consumed.
// An immediate terminator yields an empty block.
func (v *blockReader) firstBlock() ([]byte, error) {
	err := v.readNextBlock()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b := make([]byte, v.bufLen)
	copy(b, v.buf[:v.bufLen])
	v.bufNext = v.bufLen
	return b, nil
}

// drain consumes every remaining sub-block up to and including the
// zero-length terminator.
func (v *blockReader) drain() error {
	_, err := io.Copy(io.Discard, v)
	return err
}

// blockReader walks the (n, n bytes) sub-block chains used by extensions
// and image data. The zero-length terminator surfaces as io.EOF.
type blockReader struct {
	buf     [255]byte
	bufLen  int
	bufNext int
	r       io.Reader
}

func newBlockReader(r io.Reader) *blockReader {
	return &blockReader{
		r:       r,
		bufLen:  0,
		bufNext: 0,
	}
}

// offset is the position of r within the buffer it was created from.
func offset(data []byte, r *bytes.Reader) int {
	return len(data) - r.Len()
}
