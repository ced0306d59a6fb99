// Package gifcreator merges single-image GIF streams into one animated GIF89a
// stream without touching the compressed pixel data.
//
// Every frame's image data is copied byte for byte. Frame 0 supplies the
// logical screen descriptor and global color table. Later frames reuse that
// table when theirs is identical and otherwise carry it as a local table.
package gifcreator

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

type writer interface {
	io.Writer
	io.ByteWriter
	Flush() error
}

type encoder struct {
	w   writer
	err error
}

func newEncoder(w io.Writer) *encoder {
	if ww, ok := w.(writer); ok {
		return &encoder{w: ww}
	}
	return &encoder{w: bufio.NewWriter(w)}
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) writeTrailer() {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(TRAILER)
}

func (e *encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// EncodeAll validates every frame in a and then writes the animation to w.
// Nothing is written when any frame is rejected.
func EncodeAll(w io.Writer, a *Animation, o *Options) error {
	if a == nil || len(a.Frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrInvalidInputShape)
	}
	if len(a.Delay) < len(a.Frames) {
		return fmt.Errorf("%w: %d frames but %d durations", ErrInvalidInputShape, len(a.Frames), len(a.Delay))
	}
	if a.Disposal != nil && len(a.Disposal) < len(a.Frames) {
		return fmt.Errorf("%w: %d frames but %d disposal methods", ErrInvalidInputShape, len(a.Frames), len(a.Disposal))
	}
	if o == nil {
		o = DefaultOptions()
	}
	if o.Disposal > maxDisposal {
		return fmt.Errorf("%w: got %d", ErrInvalidDisposal, o.Disposal)
	}
	for i, d := range a.Disposal {
		if d > maxDisposal {
			return frameErr(i, fmt.Errorf("%w: got %d", ErrInvalidDisposal, d))
		}
	}

	frames := make([]*frame, len(a.Frames))
	for i, data := range a.Frames {
		f, err := parseFrame(data, i)
		if err != nil {
			return err
		}
		frames[i] = f
	}

	transparent := resolveTransparency(frames[0], o)
	st := newBuilderState(frames[0])

	e := newEncoder(w)
	e.write(sigGIF89a)
	e.write(headerBytes(frames[0], a.LoopCount))
	for i, f := range frames {
		plan := framePlan{
			delay:       a.Delay[i],
			disposal:    o.Disposal,
			transparent: transparent,
		}
		if plan.delay < 0 {
			plan.delay = 0
		}
		if a.Disposal != nil {
			plan.disposal = a.Disposal[i]
		}
		var block []byte
		block, st = buildFrame(st, f, plan)
		e.write(block)
	}
	e.writeTrailer()
	return e.flush()
}

// Create returns the animated GIF built from frames, shown for durations
// hundredths of a second each and repeated loopCount times (0 is forever).
// A nil o uses DefaultOptions.
func Create(frames [][]byte, durations []int, loopCount int, o *Options) ([]byte, error) {
	var buf bytes.Buffer
	err := EncodeAll(&buf, &Animation{
		Frames:    frames,
		Delay:     durations,
		LoopCount: loopCount,
	}, o)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
