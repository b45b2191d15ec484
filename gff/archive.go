// Package gff parses and edits tagged resource archives: a flat index of
// named, numbered byte ranges within a single buffer, with an indirection
// layer for tables whose entries are numbered in non-contiguous runs.
package gff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedHeader is returned when an archive's index area doesn't match
// the expected shape, and by GetResource when a resource's span runs past
// the end of the buffer.
var ErrMalformedHeader = errors.New("gff: malformed index header")

// ErrNoSuchResource is returned by GetResource and ReplaceResource when the
// named (tag, number) pair isn't present in the archive.
var ErrNoSuchResource = errors.New("gff: no such resource")

const indexStartFieldOffset = 12

// Archive is a parsed GFF buffer: the raw bytes plus a table per tag.
type Archive struct {
	data   []byte
	tables map[Tag]table
}

// Parse reads an archive's index area out of data. The returned Archive
// shares its backing array with data; callers that need an independent copy
// should clone data before calling Parse.
func Parse(data []byte) (*Archive, error) {
	if len(data) < indexStartFieldOffset+4 {
		return nil, fmt.Errorf("%w: buffer too short for index pointer", ErrMalformedHeader)
	}
	indexStart := int(binary.LittleEndian.Uint32(data[indexStartFieldOffset:]))

	pos := indexStart
	need := func(n int) error {
		if pos+n > len(data) {
			return fmt.Errorf("%w: index area truncated at %d", ErrMalformedHeader, pos)
		}
		return nil
	}

	if err := need(8 + 2); err != nil {
		return nil, err
	}
	pos += 8 // two skipped 32-bit fields
	tagCount := int(binary.LittleEndian.Uint16(data[pos:]))
	pos += 2

	type secondaryDeferral struct {
		tag                    Tag
		secondaryTableIndex    int
		resourceNumberingOffset int
	}

	tables := make(map[Tag]table, tagCount)
	var deferred []secondaryDeferral

	for i := 0; i < tagCount; i++ {
		if err := need(4 + 4); err != nil {
			return nil, err
		}
		tag := tagFromBytes(data[pos : pos+4])
		pos += 4

		nIfPrimary := int32(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4

		if nIfPrimary > 0 {
			tableStart := pos - 4
			pt := newPrimaryTable(data, tableStart)
			if _, exists := tables[tag]; exists {
				return nil, fmt.Errorf("%w: duplicate table for tag %s", ErrMalformedHeader, tag)
			}
			tables[tag] = pt
			pos = tableStart + pt.totalSize()
			continue
		}

		if err := need(4 + 4 + 4); err != nil {
			return nil, err
		}
		pos += 4 // skipped word
		secondaryTableIndex := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		resourceNumberingOffset := pos
		segmentCount := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		if err := need(segmentCount * 8); err != nil {
			return nil, err
		}
		pos += segmentCount * 8

		deferred = append(deferred, secondaryDeferral{
			tag:                     tag,
			secondaryTableIndex:     secondaryTableIndex,
			resourceNumberingOffset: resourceNumberingOffset,
		})
	}

	if len(deferred) > 0 {
		gffiTable, ok := tables[gffiTag]
		if !ok {
			return nil, fmt.Errorf("%w: secondary tables present but no GFFI table", ErrMalformedHeader)
		}
		for _, d := range deferred {
			if d.secondaryTableIndex >= gffiTable.entryCount() {
				return nil, fmt.Errorf("%w: GFFI index %d out of range for tag %s", ErrMalformedHeader, d.secondaryTableIndex, d.tag)
			}
			secondaryTableOffset := int(gffiTable.offset(data, d.secondaryTableIndex))

			segments, err := readNumberingSegments(data, d.resourceNumberingOffset)
			if err != nil {
				return nil, fmt.Errorf("tag %s: %w", d.tag, err)
			}
			if secondaryTableOffset+4 > len(data) {
				return nil, fmt.Errorf("%w: secondary table for tag %s out of range", ErrMalformedHeader, d.tag)
			}
			tables[d.tag] = newSecondaryTable(data, secondaryTableOffset, segments)
		}
	}

	return &Archive{data: data, tables: tables}, nil
}

func readNumberingSegments(data []byte, offset int) ([]numberingSegment, error) {
	if offset+4 > len(data) {
		return nil, fmt.Errorf("%w: numbering offset %d out of range", ErrMalformedHeader, offset)
	}
	segmentCount := int(binary.LittleEndian.Uint32(data[offset:]))
	pos := offset + 4
	if pos+segmentCount*8 > len(data) {
		return nil, fmt.Errorf("%w: numbering segments run past end of data", ErrMalformedHeader)
	}

	segments := make([]numberingSegment, segmentCount)
	cumulative := 0
	for i := 0; i < segmentCount; i++ {
		startingResourceNumber := binary.LittleEndian.Uint32(data[pos:])
		segmentLength := int(binary.LittleEndian.Uint32(data[pos+4:]))
		segments[i] = numberingSegment{cumulativeStart: cumulative, startingResourceNumber: startingResourceNumber}
		cumulative += segmentLength
		pos += 8
	}
	return segments, nil
}

func (a *Archive) indexFor(tag Tag, n uint32) (table, int, bool) {
	t, ok := a.tables[tag]
	if !ok {
		return nil, 0, false
	}
	for i := 0; i < t.entryCount(); i++ {
		if t.resourceNumber(a.data, i) == n {
			return t, i, true
		}
	}
	return nil, 0, false
}

// HasResource reports whether the archive contains a resource numbered n
// under tag.
func (a *Archive) HasResource(tag Tag, n uint32) bool {
	_, _, ok := a.indexFor(tag, n)
	return ok
}

// GetResource returns a copy of the named resource's bytes.
func (a *Archive) GetResource(tag Tag, n uint32) ([]byte, error) {
	t, i, ok := a.indexFor(tag, n)
	if !ok {
		return nil, fmt.Errorf("%w: %s-%d", ErrNoSuchResource, tag, n)
	}
	offset := t.offset(a.data, i)
	size := t.size(a.data, i)
	if int(offset)+int(size) > len(a.data) {
		return nil, fmt.Errorf("%w: %s-%d span runs past end of buffer", ErrMalformedHeader, tag, n)
	}
	out := make([]byte, size)
	copy(out, a.data[offset:offset+size])
	return out, nil
}

// ReplaceResource swaps the named resource's bytes for newBytes and returns
// the new archive buffer. If newBytes fits within the existing span the
// replacement happens in place and the buffer keeps its length; otherwise
// the buffer grows and the replacement is appended at its old end. The
// index entry for the replaced resource is updated to match; every other
// entry's (offset, size) is preserved bit-for-bit.
func (a *Archive) ReplaceResource(tag Tag, n uint32, newBytes []byte) ([]byte, error) {
	t, i, ok := a.indexFor(tag, n)
	if !ok {
		return nil, fmt.Errorf("%w: %s-%d", ErrNoSuchResource, tag, n)
	}

	oldSize := t.size(a.data, i)
	newSize := uint32(len(newBytes))

	var newOffset uint32
	if newSize <= oldSize {
		newOffset = t.offset(a.data, i)
	} else {
		newOffset = uint32(len(a.data))
	}

	var out []byte
	if int(newOffset) < len(a.data) {
		out = make([]byte, len(a.data))
		copy(out, a.data)
	} else {
		out = make([]byte, len(a.data)+int(newSize))
		copy(out, a.data)
	}

	t.setOffset(out, i, newOffset)
	t.setSize(out, i, newSize)
	copy(out[newOffset:], newBytes)

	return out, nil
}

// DescribeResources lists every resource in the archive, sorted by ascending
// offset.
func (a *Archive) DescribeResources() []ResourceDescriptor {
	var descriptors []ResourceDescriptor
	for tag, t := range a.tables {
		for i := 0; i < t.entryCount(); i++ {
			descriptors = append(descriptors, ResourceDescriptor{
				Tag:    tag,
				Number: t.resourceNumber(a.data, i),
				Offset: t.offset(a.data, i),
				Size:   t.size(a.data, i),
			})
		}
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Offset < descriptors[j].Offset })
	return descriptors
}
