package gff

import "encoding/binary"

// table is a parsed index table: a sequence of fixed-size entries, each
// naming an (offset, size) span within the archive's backing buffer, plus
// a way to recover the resource number for a given entry index.
type table interface {
	entryCount() int
	resourceNumber(data []byte, index int) uint32
	offset(data []byte, index int) uint32
	size(data []byte, index int) uint32
	setOffset(data []byte, index int, v uint32)
	setSize(data []byte, index int, v uint32)
}

// primaryTable is a GFF primary table: entries are (resourceNumber, offset,
// size) triples laid out contiguously starting 4 bytes past the table's
// start (the leading 4 bytes are the entry count).
type primaryTable struct {
	start int
	count int
}

const primaryEntrySize = 12

func newPrimaryTable(data []byte, start int) primaryTable {
	count := int(binary.LittleEndian.Uint32(data[start:]))
	return primaryTable{start: start, count: count}
}

func (t primaryTable) totalSize() int { return 4 + t.count*primaryEntrySize }

func (t primaryTable) entryCount() int { return t.count }

func (t primaryTable) entryPos(index int) int {
	return t.start + 4 + index*primaryEntrySize
}

func (t primaryTable) resourceNumber(data []byte, index int) uint32 {
	return binary.LittleEndian.Uint32(data[t.entryPos(index):])
}

func (t primaryTable) offset(data []byte, index int) uint32 {
	return binary.LittleEndian.Uint32(data[t.entryPos(index)+4:])
}

func (t primaryTable) size(data []byte, index int) uint32 {
	return binary.LittleEndian.Uint32(data[t.entryPos(index)+8:])
}

func (t primaryTable) setOffset(data []byte, index int, v uint32) {
	binary.LittleEndian.PutUint32(data[t.entryPos(index)+4:], v)
}

func (t primaryTable) setSize(data []byte, index int, v uint32) {
	binary.LittleEndian.PutUint32(data[t.entryPos(index)+8:], v)
}

// numberingSegment records that entries starting at cumulativeStart are
// numbered consecutively from startingResourceNumber.
type numberingSegment struct {
	cumulativeStart        int
	startingResourceNumber uint32
}

// secondaryTable is a GFF secondary table: entries are (offset, size) pairs;
// resource numbers come from a separate run-length numbering segment list
// recorded elsewhere in the index area.
type secondaryTable struct {
	start    int
	count    int
	segments []numberingSegment
}

const secondaryEntrySize = 8

func newSecondaryTable(data []byte, start int, segments []numberingSegment) secondaryTable {
	count := int(binary.LittleEndian.Uint32(data[start:]))
	return secondaryTable{start: start, count: count, segments: segments}
}

func (t secondaryTable) entryCount() int { return t.count }

func (t secondaryTable) entryPos(index int) int {
	return t.start + 4 + index*secondaryEntrySize
}

func (t secondaryTable) resourceNumber(_ []byte, index int) uint32 {
	seg := t.segments[0]
	for _, s := range t.segments {
		if s.cumulativeStart > index {
			break
		}
		seg = s
	}
	return seg.startingResourceNumber + uint32(index-seg.cumulativeStart)
}

func (t secondaryTable) offset(data []byte, index int) uint32 {
	return binary.LittleEndian.Uint32(data[t.entryPos(index):])
}

func (t secondaryTable) size(data []byte, index int) uint32 {
	return binary.LittleEndian.Uint32(data[t.entryPos(index)+4:])
}

func (t secondaryTable) setOffset(data []byte, index int, v uint32) {
	binary.LittleEndian.PutUint32(data[t.entryPos(index):], v)
}

func (t secondaryTable) setSize(data []byte, index int, v uint32) {
	binary.LittleEndian.PutUint32(data[t.entryPos(index)+4:], v)
}
