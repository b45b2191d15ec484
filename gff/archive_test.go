package gff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildSinglePrimaryArchive assembles a minimal GFF buffer: a 16-byte header
// (indexStart at byte 12), followed by the given resource payloads packed
// contiguously, followed by a single primary table named tag listing one
// entry per payload in order, numbered starting at firstNumber.
func buildSinglePrimaryArchive(t *testing.T, tag string, firstNumber uint32, payloads [][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(make([]byte, 16)) // header; indexStart patched in below

	var offsets []uint32
	for _, p := range payloads {
		offsets = append(offsets, uint32(buf.Len()))
		buf.Write(p)
	}

	indexStart := uint32(buf.Len())

	put32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	put16 := func(v uint16) { binary.Write(&buf, binary.LittleEndian, v) }

	put32(0) // skipped field
	put32(0) // skipped field
	put16(1) // tagCount

	buf.WriteString(tag)
	put32(uint32(len(payloads))) // nIfPrimary == entry count

	for i, p := range payloads {
		put32(firstNumber + uint32(i))
		put32(offsets[i])
		put32(uint32(len(p)))
	}

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[12:], indexStart)
	return out
}

func TestArchiveRoundTrip(t *testing.T) {
	data := buildSinglePrimaryArchive(t, "DATA", 1, [][]byte{
		[]byte("hello"),
		[]byte("world"),
		[]byte("!"),
	})
	originalLen := len(data)

	archive, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tag := Tag{'D', 'A', 'T', 'A'}

	for n, want := range map[uint32]string{1: "hello", 2: "world", 3: "!"} {
		got, err := archive.GetResource(tag, n)
		if err != nil {
			t.Fatalf("GetResource(%d): %v", n, err)
		}
		if string(got) != want {
			t.Fatalf("GetResource(%d) = %q; want %q", n, got, want)
		}
	}

	newData, err := archive.ReplaceResource(tag, 2, []byte("WORLD!!"))
	if err != nil {
		t.Fatalf("ReplaceResource: %v", err)
	}

	if len(newData) != originalLen+len("WORLD!!") {
		t.Fatalf("newData length = %d; want %d", len(newData), originalLen+len("WORLD!!"))
	}

	newArchive, err := Parse(newData)
	if err != nil {
		t.Fatalf("re-parsing replaced archive: %v", err)
	}

	r2, err := newArchive.GetResource(tag, 2)
	if err != nil || string(r2) != "WORLD!!" {
		t.Fatalf("GetResource(2) after replace = %q, %v; want WORLD!!, nil", r2, err)
	}

	r1, err := newArchive.GetResource(tag, 1)
	if err != nil || string(r1) != "hello" {
		t.Fatalf("GetResource(1) after replace = %q, %v; want hello, nil", r1, err)
	}
	r3, err := newArchive.GetResource(tag, 3)
	if err != nil || string(r3) != "!" {
		t.Fatalf("GetResource(3) after replace = %q, %v; want !, nil", r3, err)
	}

	descriptors := newArchive.DescribeResources()
	if len(descriptors) != 3 {
		t.Fatalf("DescribeResources returned %d entries; want 3", len(descriptors))
	}
	last := descriptors[len(descriptors)-1]
	if last.Number != 2 {
		t.Fatalf("last descriptor by offset = resource %d; want 2", last.Number)
	}
	if last.Offset != uint32(originalLen) {
		t.Fatalf("replaced resource's new offset = %d; want original file length %d", last.Offset, originalLen)
	}
}

func TestArchiveReplaceInPlace(t *testing.T) {
	data := buildSinglePrimaryArchive(t, "DATA", 1, [][]byte{
		[]byte("hello"),
		[]byte("world"),
	})
	originalLen := len(data)

	archive, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tag := Tag{'D', 'A', 'T', 'A'}
	newData, err := archive.ReplaceResource(tag, 1, []byte("hi"))
	if err != nil {
		t.Fatalf("ReplaceResource: %v", err)
	}

	if len(newData) != originalLen {
		t.Fatalf("in-place replacement changed buffer length: %d != %d", len(newData), originalLen)
	}

	newArchive, err := Parse(newData)
	if err != nil {
		t.Fatalf("re-parsing: %v", err)
	}
	got, err := newArchive.GetResource(tag, 1)
	if err != nil || string(got) != "hi" {
		t.Fatalf("GetResource(1) = %q, %v; want hi, nil", got, err)
	}
}

// buildArchiveWithSecondaryTable assembles a GFF buffer with one secondary
// table (tag secTag) reached through a GFFI primary table, numbered by two
// numbering segments so that the returned resource numbers cross a segment
// boundary: index 0,1 map to firstA,firstA+1 and index 2,3 map to
// firstB,firstB+1.
func buildArchiveWithSecondaryTable(t *testing.T, secTag string, firstA, firstB uint32, payloads [4][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(make([]byte, 16)) // header; indexStart patched in below

	put32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	put16 := func(v uint16) { binary.Write(&buf, binary.LittleEndian, v) }

	var payloadOffsets [4]uint32
	for i, p := range payloads {
		payloadOffsets[i] = uint32(buf.Len())
		buf.Write(p)
	}

	secondaryTableOffset := uint32(buf.Len())
	put32(uint32(len(payloads))) // secondary table's own entry count
	for i, p := range payloads {
		put32(payloadOffsets[i])
		put32(uint32(len(p)))
	}
	secondaryTableSize := uint32(buf.Len()) - secondaryTableOffset

	indexStart := uint32(buf.Len())

	put32(0) // skipped field
	put32(0) // skipped field
	put16(2) // tagCount: GFFI, then the secondary tag

	// GFFI primary table: one entry locating the secondary table above.
	buf.WriteString("GFFI")
	put32(1) // nIfPrimary == entry count
	put32(0) // resourceNumber, unused by GFFI lookups
	put32(secondaryTableOffset)
	put32(secondaryTableSize)

	// Secondary tag record: nIfPrimary == 0 dispatches to the secondary path.
	buf.WriteString(secTag)
	put32(0) // nIfPrimary == 0
	put32(0) // skipped word
	put32(0) // secondaryTableIndex: GFFI entry 0
	put32(2) // segmentCount
	put32(firstA)
	put32(2) // segment length
	put32(firstB)
	put32(2) // segment length

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[12:], indexStart)
	return out
}

func TestArchiveSecondaryTableNumbering(t *testing.T) {
	data := buildArchiveWithSecondaryTable(t, "SECD", 10, 20, [4][]byte{
		[]byte("NN"), []byte("EE"), []byte("SS"), []byte("WW"),
	})

	archive, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tag := Tag{'S', 'E', 'C', 'D'}
	want := map[uint32]string{10: "NN", 11: "EE", 20: "SS", 21: "WW"}
	for n, wantBytes := range want {
		got, err := archive.GetResource(tag, n)
		if err != nil {
			t.Fatalf("GetResource(%d): %v", n, err)
		}
		if string(got) != wantBytes {
			t.Fatalf("GetResource(%d) = %q; want %q", n, got, wantBytes)
		}
	}

	if archive.HasResource(tag, 12) {
		t.Fatal("HasResource reported a resource number outside both segments")
	}

	descriptors := archive.DescribeResources()
	gotNumbers := make(map[uint32]bool)
	for _, d := range descriptors {
		if d.Tag == tag {
			gotNumbers[d.Number] = true
		}
	}
	for n := range want {
		if !gotNumbers[n] {
			t.Fatalf("DescribeResources missing resource number %d for tag %s", n, tag)
		}
	}
}

func TestArchiveNoSuchResource(t *testing.T) {
	data := buildSinglePrimaryArchive(t, "DATA", 1, [][]byte{[]byte("hello")})
	archive, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tag := Tag{'D', 'A', 'T', 'A'}
	if archive.HasResource(tag, 99) {
		t.Fatal("HasResource reported a resource that doesn't exist")
	}

	_, err = archive.GetResource(tag, 99)
	if !errors.Is(err, ErrNoSuchResource) {
		t.Fatalf("GetResource error = %v; want ErrNoSuchResource", err)
	}

	_, err = archive.ReplaceResource(tag, 99, []byte("x"))
	if !errors.Is(err, ErrNoSuchResource) {
		t.Fatalf("ReplaceResource error = %v; want ErrNoSuchResource", err)
	}
}
