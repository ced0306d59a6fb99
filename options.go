package gifcreator

// TransparencyMode picks what happens when frame 0 declares no transparent color.
type TransparencyMode int

const (
	// TransparencyBlack treats RGB(0,0,0) as transparent wherever a frame's
	// palette contains it.
	TransparencyBlack TransparencyMode = iota
	// TransparencyNone writes every graphic control block without the
	// transparency flag.
	TransparencyNone
)

// Options are the encoding parameters.
type Options struct {
	// Disposal applies to every frame without a per-frame override.
	Disposal byte
	// Transparency is the fallback used when TransparentColor is nil and
	// frame 0 has no transparent color of its own.
	Transparency TransparencyMode
	// TransparentColor, when set, overrides whatever frame 0 declares.
	TransparentColor *RGB
}

// DefaultOptions restores to background between frames and falls back to
// black for transparency.
func DefaultOptions() *Options {
	return &Options{
		Disposal:     DisposalBackground,
		Transparency: TransparencyBlack,
	}
}

// Animation is the input to EncodeAll.
type Animation struct {
	// Frames are single-image GIF87a/89a streams.
	Frames [][]byte
	// Delay holds one entry per frame in 1/100s. Extra entries are ignored.
	Delay []int
	// LoopCount of 0 loops forever. Negative values are treated as 0.
	LoopCount int
	// Disposal optionally overrides Options.Disposal per frame.
	Disposal []byte
}

// resolveTransparency picks the single transparent color applied to every
// frame, or nil for none.
func resolveTransparency(first *frame, o *Options) *RGB {
	if o.TransparentColor != nil {
		c := *o.TransparentColor
		return &c
	}
	if first.gce != nil && first.gce.HasTransparency() {
		pal := decodePalette(first.palette())
		if idx := int(first.gce.TransparentColorIndex); idx < len(pal) {
			c := pal[idx]
			return &c
		}
	}
	if o.Transparency == TransparencyNone {
		return nil
	}
	return &RGB{}
}
