package gifcreator

// builderState is what one frame's block needs to know about the frames
// before it.
type builderState struct {
	built     int
	hasGlobal bool
	global    []byte // frame 0's global color table
	globalExp byte
}

func newBuilderState(first *frame) builderState {
	return builderState{
		hasGlobal: first.hasGlobalTable(),
		global:    first.globalTable,
		globalExp: first.screen.ColorTableExponent(),
	}
}

// framePlan carries the per-frame encoding parameters.
type framePlan struct {
	delay       int
	disposal    byte
	transparent *RGB
}

// buildFrame renders one frame as graphic control extension, image
// descriptor, optional local color table and the source's image data.
func buildFrame(st builderState, f *frame, p framePlan) ([]byte, builderState) {
	gce := graphicsControl(f, p)

	desc := make([]byte, imageDescriptorLen)
	copy(desc, f.descriptor)

	var table []byte
	switch {
	case f.localTable != nil:
		// The source already carries its own palette.
		table = f.localTable
	case st.hasGlobal && st.built > 0 && f.hasGlobalTable():
		exp := f.screen.ColorTableExponent()
		if exp == st.globalExp && comparePalettes(st.global, f.globalTable, tableEntries(exp)) {
			break
		}
		desc[9] |= 0x80
		desc[9] &= 0xF8
		desc[9] |= exp
		table = f.globalTable
	}

	b := make([]byte, 0, graphicsControlLen+imageDescriptorLen+len(table)+len(f.body))
	b = append(b, gce.MarshalBinary()...)
	b = append(b, desc...)
	b = append(b, table...)
	b = append(b, f.body...)

	st.built++
	return b, st
}

func graphicsControl(f *frame, p framePlan) GraphicsControlBlock {
	g := GraphicsControlBlock{
		Packed:    p.disposal << 2,
		DelayTime: uint16(p.delay),
	}
	if p.transparent == nil {
		return g
	}
	pal := f.palette()
	if pal == nil {
		return g
	}
	if idx := decodePalette(pal).Index(*p.transparent); idx >= 0 {
		g.Packed |= 0x01
		g.TransparentColorIndex = byte(idx)
	}
	return g
}
