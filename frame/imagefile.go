package frame

import (
	"encoding/binary"
	"fmt"
)

// ExtractFrames reads a multi-frame image resource: a skipped 32-bit file
// size, a 16-bit frame count, and that many 32-bit absolute frame offsets,
// each handed to ReadFrame.
func ExtractFrames(data []byte) ([]*Frame, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("%w: image resource too short for header", ErrMalformedHeader)
	}

	frameCount := int(binary.LittleEndian.Uint16(data[4:]))

	offsetsStart := 6
	if offsetsStart+frameCount*4 > len(data) {
		return nil, fmt.Errorf("%w: frame offset table runs past end of data", ErrMalformedHeader)
	}

	frames := make([]*Frame, frameCount)
	for i := 0; i < frameCount; i++ {
		offset := int(binary.LittleEndian.Uint32(data[offsetsStart+i*4:]))
		f, err := ReadFrame(data, offset)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames[i] = f
	}

	return frames, nil
}
