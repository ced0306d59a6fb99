package gifcreator

// FrameInfo summarizes one GIF stream as the block walker sees it.
type FrameInfo struct {
	Version          string
	Screen           LogicalScreenDescriptor
	GlobalColorTable Palette
	Image            ImageDescriptor
	LocalColorTable  Palette
	GraphicsControl  *GraphicsControlBlock
	Animated         bool // a NETSCAPE application extension is present
	Comments         int  // comment extensions anywhere in the stream
}

// Inspect walks data and reports its layout. Animated sources are reported,
// not rejected.
func Inspect(data []byte) (*FrameInfo, error) {
	f, err := walkFrame(data)
	if err != nil {
		return nil, err
	}
	info := &FrameInfo{
		Version:         string(data[3:signatureLen]),
		Screen:          f.screen,
		Image:           parseImageDescriptor(f.descriptor),
		GraphicsControl: f.gce,
		Animated:        f.netscape,
		Comments:        f.comments,
	}
	if f.globalTable != nil {
		info.GlobalColorTable = decodePalette(f.globalTable)
	}
	if f.localTable != nil {
		info.LocalColorTable = decodePalette(f.localTable)
	}
	return info, nil
}
