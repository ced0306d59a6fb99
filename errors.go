package gifcreator

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInputShape = errors.New("gif: input must be frames with a duration for each frame")
	ErrInvalidSignature  = errors.New("gif: source is not a GIF image")
	ErrAlreadyAnimated   = errors.New("gif: animation cannot be made from an animated GIF source")
	ErrMalformedBlock    = errors.New("gif: malformed block stream")
	ErrNoImage           = errors.New("gif: source has no image descriptor")
	ErrInvalidDisposal   = errors.New("gif: disposal method must be in 0..7")
)

// FrameError ties a validation failure to the frame that caused it.
type FrameError struct {
	Index int
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Index, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

func frameErr(index int, err error) error {
	return &FrameError{Index: index, Err: err}
}
