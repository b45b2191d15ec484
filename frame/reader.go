package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/relkit/shatterkit/bitio"
	"github.com/relkit/shatterkit/pixrle"
)

// ErrMalformedHeader is returned when a frame's tag or fixed fields don't
// match the expected shape.
var ErrMalformedHeader = errors.New("frame: malformed header")

// ErrOutOfRange is returned when a row-based frame names a row number at or
// beyond its own height, or a planar frame yields a symbol outside its
// dictionary.
var ErrOutOfRange = errors.New("frame: row number out of range")

const (
	noMoreRowsRowNumber = 0xFF
	column256Flag       = 0x01
	lastRunFlag         = 0x80
)

// ReadFrame decodes the frame beginning at offset p within data, dispatching
// between the row-based RLE format and the two bit-packed planar formats by
// peeking at the header tag.
func ReadFrame(data []byte, p int) (*Frame, error) {
	if isPlanarTag(data, p, "PLAN") {
		return readPlanarFrame(data, p, newPlanSymbolSource)
	}
	if isPlanarTag(data, p, "PLNR") {
		return readPlanarFrame(data, p, newPlnrSymbolSource)
	}
	return readRowBasedFrame(data, p)
}

func isPlanarTag(data []byte, p int, tag string) bool {
	if p+9 > len(data) || data[p+4] != 0xFF {
		return false
	}
	return string(data[p+5:p+9]) == tag
}

func readRowBasedFrame(data []byte, p int) (*Frame, error) {
	if p+4 > len(data) {
		return nil, fmt.Errorf("%w: frame at %d too short for width/height", ErrMalformedHeader, p)
	}
	width := int(binary.LittleEndian.Uint16(data[p:]))
	height := int(binary.LittleEndian.Uint16(data[p+2:]))

	runsByRow := make(map[int][]pixelRun)
	i := p + 4
	for len(runsByRow) < height {
		if i >= len(data) {
			return nil, fmt.Errorf("%w: row-based frame at %d ran out of data", ErrMalformedHeader, p)
		}
		row := int(data[i])
		i++
		if row == noMoreRowsRowNumber {
			break
		}
		if row >= height {
			return nil, fmt.Errorf("%w: row %d >= height %d", ErrOutOfRange, row, height)
		}

		var runs []pixelRun
		for {
			if i+4 > len(data) {
				return nil, fmt.Errorf("%w: truncated pixel run header at %d", ErrMalformedHeader, i)
			}
			startX := int(data[i])
			flags := data[i+1]
			uncompressedLen := int(data[i+2])
			compressedLen := int(data[i+3])
			i += 4

			if flags&column256Flag != 0 {
				startX += 256
			}

			if i+compressedLen > len(data) {
				return nil, fmt.Errorf("%w: truncated compressed run at %d", ErrMalformedHeader, i)
			}
			compressed := data[i : i+compressedLen]
			i += compressedLen

			pixels, err := pixrle.Decode(compressed, uncompressedLen)
			if err != nil {
				return nil, fmt.Errorf("frame: decoding row %d run at column %d: %w", row, startX, err)
			}
			runs = append(runs, pixelRun{startX: startX, pixels: pixels})

			if flags&lastRunFlag != 0 {
				break
			}
		}
		runsByRow[row] = runs
	}

	return newFrame(width, height, runsByRow), nil
}

// symbolSource yields the next dictionary-lookup symbol for a planar frame.
type symbolSource interface {
	next() (uint16, error)
}

type planSymbolSource struct {
	bits *bitio.Reader
	bps  int
}

func newPlanSymbolSource(bits *bitio.Reader, bps int) symbolSource {
	return &planSymbolSource{bits: bits, bps: bps}
}

func (s *planSymbolSource) next() (uint16, error) {
	return s.bits.Chomp(s.bps)
}

// plnrSymbolSource implements the run-length symbol stream used by PLNR:
// a single non-zero code, an explicit zero via (0,0), or a run of b+2
// copies of the previous value via (0, b != 0).
type plnrSymbolSource struct {
	bits      *bitio.Reader
	bps       int
	lastValue uint16
	remaining int
}

func newPlnrSymbolSource(bits *bitio.Reader, bps int) symbolSource {
	return &plnrSymbolSource{bits: bits, bps: bps}
}

func (s *plnrSymbolSource) next() (uint16, error) {
	if s.remaining == 0 {
		a, err := s.bits.Chomp(s.bps)
		if err != nil {
			return 0, err
		}
		if a != 0 {
			s.lastValue = a
			s.remaining = 1
		} else {
			b, err := s.bits.Chomp(s.bps)
			if err != nil {
				return 0, err
			}
			if b == 0 {
				s.lastValue = 0
				s.remaining = 1
			} else {
				s.remaining = int(b) + 2
			}
		}
	}

	s.remaining--
	return s.lastValue, nil
}

type symbolSourceProvider func(bits *bitio.Reader, bps int) symbolSource

func readPlanarFrame(data []byte, p int, newSource symbolSourceProvider) (*Frame, error) {
	if p+10 > len(data) {
		return nil, fmt.Errorf("%w: planar frame at %d too short for header", ErrMalformedHeader, p)
	}
	width := int(binary.LittleEndian.Uint16(data[p:]))
	height := int(binary.LittleEndian.Uint16(data[p+2:]))
	bps := int(data[p+9])

	if bps == 0 {
		return newFrame(width, height, map[int][]pixelRun{}), nil
	}

	dictSize := 1 << bps
	dictStart := p + 10
	if dictStart+dictSize > len(data) {
		return nil, fmt.Errorf("%w: planar frame at %d dictionary runs past end of data", ErrMalformedHeader, p)
	}
	dictionary := data[dictStart : dictStart+dictSize]

	codeStart := dictStart + dictSize
	bits := bitio.New(data, codeStart, 0, bitio.BigEndian)
	source := newSource(bits, bps)

	runsByRow := make(map[int][]pixelRun, height)
	for y := 0; y < height; y++ {
		var runs []pixelRun
		var runStart int
		var runBytes []byte

		flush := func() {
			if runBytes != nil {
				runs = append(runs, pixelRun{startX: runStart, pixels: runBytes})
				runBytes = nil
			}
		}

		for x := 0; x < width; x++ {
			symbol, err := source.next()
			if err != nil {
				return nil, fmt.Errorf("frame: planar frame at %d, row %d: %w", p, y, err)
			}
			if int(symbol) >= len(dictionary) {
				return nil, fmt.Errorf("%w: symbol %d outside dictionary of size %d", ErrOutOfRange, symbol, len(dictionary))
			}
			d := dictionary[symbol]
			if d == 0 {
				flush()
				continue
			}

			if runBytes == nil {
				runStart = x
			}
			runBytes = append(runBytes, d)
		}
		flush()

		if len(runs) > 0 {
			runsByRow[y] = runs
		}
	}

	return newFrame(width, height, runsByRow), nil
}
