// Package xmi scans and mutates the event stream embedded in an IFF-like
// chunked music resource: locating its EVNT and RBRN chunks, indexing
// controller-change messages by kind, and rewriting loop and callback
// controllers in place.
package xmi

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedHeader is returned when the outer chunk structure doesn't
// match the expected FORM/CAT/FORM wrapper.
var ErrMalformedHeader = errors.New("xmi: malformed chunk header")

// ScanResult locates the editable regions of an XMI buffer and indexes its
// controller-change messages by kind.
type ScanResult struct {
	// EVNTStart and EVNTLength bound the EVNT chunk's body within the
	// original buffer.
	EVNTStart  int
	EVNTLength int

	// ControllerOffsets maps each recognized controller kind to the
	// ascending list of offsets (relative to EVNTStart) where it occurs.
	ControllerOffsets map[ControllerKind][]int

	// RBRNCountOffset is the absolute offset of the RBRN chunk's 16-bit
	// sequence-branch count, or -1 if the buffer has no RBRN chunk.
	RBRNCountOffset int
}

const (
	tagFORM = "FORM"
	tagCAT  = "CAT "
	tagEVNT = "EVNT"
	tagRBRN = "RBRN"
)

func readTag(data []byte, pos int) (string, error) {
	if pos+4 > len(data) {
		return "", fmt.Errorf("%w: truncated tag at %d", ErrMalformedHeader, pos)
	}
	return string(data[pos : pos+4]), nil
}

func expectTag(data []byte, pos int, want string) error {
	got, err := readTag(data, pos)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: expected tag %q at %d, got %q", ErrMalformedHeader, want, pos, got)
	}
	return nil
}

// scanChunks walks the FORM/CAT/FORM wrapper and every chunk inside the
// inner FORM, invoking visit for each (tag, bodyStart, bodyLength).
func scanChunks(data []byte, visit func(tag string, bodyStart, bodyLength int) error) error {
	pos := 0

	if err := expectTag(data, pos, tagFORM); err != nil {
		return err
	}
	pos += 4
	if pos+4 > len(data) {
		return fmt.Errorf("%w: truncated outer FORM length", ErrMalformedHeader)
	}
	outerLength := int(binary.BigEndian.Uint32(data[pos:]))
	pos += 4 + outerLength // outer FORM length, body skipped entirely

	if err := expectTag(data, pos, tagCAT); err != nil {
		return err
	}
	pos += 4
	if pos+4 > len(data) {
		return fmt.Errorf("%w: truncated CAT subtag", ErrMalformedHeader)
	}
	pos += 4 // CAT subtag

	if err := expectTag(data, pos, tagFORM); err != nil {
		return err
	}
	pos += 4
	if pos+4 > len(data) {
		return fmt.Errorf("%w: truncated inner FORM subtag", ErrMalformedHeader)
	}
	pos += 4 // inner FORM subtag

	for pos+8 <= len(data) {
		tag, err := readTag(data, pos)
		if err != nil {
			return err
		}
		length := int(binary.BigEndian.Uint32(data[pos+4:]))
		bodyStart := pos + 8
		if bodyStart+length > len(data) {
			return fmt.Errorf("%w: chunk %q at %d overruns buffer", ErrMalformedHeader, tag, pos)
		}
		if err := visit(tag, bodyStart, length); err != nil {
			return err
		}
		pos = bodyStart + length
	}

	return nil
}

// Scan locates the EVNT and RBRN chunks within an XMI buffer and indexes the
// EVNT body's controller-change messages by kind.
func Scan(data []byte) (*ScanResult, error) {
	result := &ScanResult{RBRNCountOffset: -1}
	foundEVNT := false

	err := scanChunks(data, func(tag string, bodyStart, bodyLength int) error {
		switch tag {
		case tagEVNT:
			if foundEVNT {
				return fmt.Errorf("%w: more than one EVNT chunk", ErrMalformedHeader)
			}
			foundEVNT = true
			result.EVNTStart = bodyStart
			result.EVNTLength = bodyLength

			offsets, err := scanEvents(data[bodyStart : bodyStart+bodyLength])
			if err != nil {
				return err
			}
			result.ControllerOffsets = offsets
		case tagRBRN:
			if bodyLength < 2 {
				return fmt.Errorf("%w: RBRN body too short for sequence count", ErrMalformedHeader)
			}
			result.RBRNCountOffset = bodyStart
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !foundEVNT {
		return nil, fmt.Errorf("%w: no EVNT chunk found", ErrMalformedHeader)
	}

	return result, nil
}
