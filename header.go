package gifcreator

import "github.com/Nanolucas/GifCreator/internal/monitoring"

// headerBytes builds everything between the signature and the first frame.
// Only frame 0 is consulted. Without a global color table nothing is
// produced, and players fall back to their own defaults.
func headerBytes(first *frame, loopCount int) []byte {
	if !first.hasGlobalTable() {
		monitoring.Logf("gifcreator: first frame has no global color table; writing header without screen descriptor or loop extension")
		return nil
	}
	if loopCount < 0 {
		loopCount = 0
	}

	b := make([]byte, 0, len(first.screenRaw)+len(first.globalTable)+loopExtensionLen)
	b = append(b, first.screenRaw...)
	b = append(b, first.globalTable...)
	return append(b, loopExtension(uint16(loopCount))...)
}

// loopExtension is the NETSCAPE2.0 application block.
func loopExtension(loopCount uint16) []byte {
	b := make([]byte, 0, loopExtensionLen)
	b = append(b,
		EXTENSION_BLOCK,        // Extension Introducer.
		APPLICATION_BLOCK,      // Application Label.
		APPLICATION_BLOCK_SIZE, // Block Size.
	)
	b = append(b, loopAppID...) // Application Identifier.
	b = append(b,
		0x03, // Block Size.
		0x01, // Sub-block Index.
		byte(loopCount),
		byte(loopCount>>8),
		0x00, // Block Terminator.
	)
	return b
}
