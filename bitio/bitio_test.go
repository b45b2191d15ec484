package bitio

import "testing"

func TestChompBigEndian(t *testing.T) {
	r := New([]byte{0b00110011, 0b01111110}, 0, 0, BigEndian)

	got, err := r.Chomp(3)
	if err != nil || got != 0b001 {
		t.Fatalf("chomp(3) = %v, %v; want 0b001, nil", got, err)
	}

	got, err = r.Chomp(6)
	if err != nil || got != 0b100110 {
		t.Fatalf("chomp(6) = %v, %v; want 0b100110, nil", got, err)
	}

	got, err = r.Chomp(7)
	if err != nil || got != 0b1111110 {
		t.Fatalf("chomp(7) = %v, %v; want 0b1111110, nil", got, err)
	}

	if r.ByteOffset() != 2 || r.BitOffset() != 0 {
		t.Fatalf("final offsets = (%d,%d); want (2,0)", r.ByteOffset(), r.BitOffset())
	}
}

func TestChompLittleEndianFourBit(t *testing.T) {
	r := New([]byte{0x20, 0x00, 0x04}, 0, 0, LittleEndian)

	want := []uint16{0x0, 0x2, 0x0, 0x0, 0x4, 0x0}
	for i, w := range want {
		got, err := r.Chomp(4)
		if err != nil {
			t.Fatalf("chomp #%d: unexpected error %v", i, err)
		}
		if got != w {
			t.Fatalf("chomp #%d = %#x; want %#x", i, got, w)
		}
	}
}

func TestChompSplitInvariant(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0,
		0x01, 0x23, 0x45, 0x67}

	splits := [][]int{
		{8, 8, 8, 8},
		{4, 4, 4, 4, 4, 4, 4, 4},
		{16, 16},
		{1, 7, 8, 8, 8, 7, 1, 16, 7, 9},
	}

	for _, split := range splits {
		total := 0
		for _, c := range split {
			total += c
		}

		// Every chunk must equal the same bits of the one little-endian
		// stream (bit k is bit k%8 of data[k/8]), whatever the split.
		a := New(data, 0, 0, LittleEndian)
		pos := 0
		for _, c := range split {
			v, err := a.Chomp(c)
			if err != nil {
				t.Fatalf("LE chomp(%d) error: %v", c, err)
			}
			var want uint16
			for j := 0; j < c; j++ {
				bit := (data[(pos+j)/8] >> uint((pos+j)%8)) & 1
				want |= uint16(bit) << uint(j)
			}
			if v != want {
				t.Fatalf("split %v: chomp(%d) at bit %d = %#x; want %#x", split, c, pos, v, want)
			}
			pos += c
		}

		if got := a.ByteOffset()*8 + a.BitOffset(); got != total {
			t.Fatalf("split %v: cursor at bit %d; want %d", split, got, total)
		}
	}
}

func TestChompOutOfRangeArgument(t *testing.T) {
	r := New([]byte{0x00}, 0, 0, BigEndian)

	if _, err := r.Chomp(0); err == nil {
		t.Fatal("chomp(0) should fail")
	}
	if _, err := r.Chomp(17); err == nil {
		t.Fatal("chomp(17) should fail")
	}
}

func TestRemaining(t *testing.T) {
	r := New([]byte{0x00, 0x00}, 0, 4, BigEndian)

	if !r.Remaining(12) {
		t.Fatal("expected 12 bits remaining")
	}
	if r.Remaining(13) {
		t.Fatal("expected fewer than 13 bits remaining")
	}
}
