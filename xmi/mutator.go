package xmi

import (
	"encoding/binary"
	"sort"
)

// Mutator edits the EVNT body of a scanned XMI buffer in place.
type Mutator struct {
	data   []byte
	result *ScanResult
}

// NewMutator returns a Mutator that edits data according to result, a prior
// Scan of the same buffer.
func NewMutator(data []byte, result *ScanResult) *Mutator {
	return &Mutator{data: data, result: result}
}

// obliterate rewrites the three bytes of the message at the given
// EVNT-relative offset to an inert controller change (0xBF, 0x00, 0x00).
func (m *Mutator) obliterate(offset int) {
	base := m.result.EVNTStart + offset
	m.data[base] = 0xBF
	m.data[base+1] = 0x00
	m.data[base+2] = 0x00
}

// RemoveAPIControl obliterates every Callback message, then every
// IndirectControl message.
func (m *Mutator) RemoveAPIControl() {
	for _, offset := range m.result.ControllerOffsets[Callback] {
		m.obliterate(offset)
	}
	for _, offset := range m.result.ControllerOffsets[IndirectControl] {
		m.obliterate(offset)
	}
}

// LoopPair is a matched For/Next controller pair, both EVNT-relative
// offsets, identified as an infinite loop.
type LoopPair struct {
	ForOffset  int
	NextOffset int
}

func (m *Mutator) isInfiniteFor(forOffset int) bool {
	valueByte := m.data[m.result.EVNTStart+forOffset+2]
	return valueByte == 0 || valueByte == 127
}

// lowerIndex returns the index of the greatest element of the ascending
// slice sorted that is strictly less than x, or -1 if none qualifies.
func lowerIndex(sorted []int, x int) int {
	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= x })
	if idx == 0 {
		return -1
	}
	return idx - 1
}

// IdentifyInfiniteLoops walks the Next offsets ascending, matching each
// against the greatest remaining For offset strictly less than it. A match
// whose For is not an infinite-loop marker is discarded and its For offset
// is removed from further consideration, mirroring the candidate pool
// shrinking as non-looping Fors are ruled out; an infinite match is kept
// (and may still match a later Next). The result is ordered by For offset
// ascending.
func (m *Mutator) IdentifyInfiniteLoops() []LoopPair {
	fors := append([]int(nil), m.result.ControllerOffsets[For]...)
	sort.Ints(fors)
	nexts := append([]int(nil), m.result.ControllerOffsets[Next]...)
	sort.Ints(nexts)

	pairsByFor := make(map[int]int)
	for _, next := range nexts {
		idx := lowerIndex(fors, next)
		if idx < 0 {
			continue
		}
		forOffset := fors[idx]
		if m.isInfiniteFor(forOffset) {
			pairsByFor[forOffset] = next
		} else {
			fors = append(fors[:idx], fors[idx+1:]...)
		}
	}

	pairs := make([]LoopPair, 0, len(pairsByFor))
	for forOffset, next := range pairsByFor {
		pairs = append(pairs, LoopPair{ForOffset: forOffset, NextOffset: next})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ForOffset < pairs[j].ForOffset })
	return pairs
}

// UnifyLoops collapses the given infinite-loop pairs (ordered by For offset,
// as returned by IdentifyInfiniteLoops) into a single outer loop running
// from the first For to the last Next: every other For and Next is
// obliterated.
func (m *Mutator) UnifyLoops(pairs []LoopPair) {
	if len(pairs) < 2 {
		return
	}
	for _, p := range pairs[1:] {
		m.obliterate(p.ForOffset)
	}
	for _, p := range pairs[:len(pairs)-1] {
		m.obliterate(p.NextOffset)
	}
}

// SetAllLoops writes newCount into the value byte of every For in pairs.
func (m *Mutator) SetAllLoops(pairs []LoopPair, newCount byte) {
	for _, p := range pairs {
		m.data[m.result.EVNTStart+p.ForOffset+2] = newCount
	}
}

// ZeroRBRNCount overwrites the RBRN chunk's sequence-branch count with 0, if
// the scanned buffer has one.
func (m *Mutator) ZeroRBRNCount() {
	if m.result.RBRNCountOffset < 0 {
		return
	}
	binary.LittleEndian.PutUint16(m.data[m.result.RBRNCountOffset:], 0)
}
