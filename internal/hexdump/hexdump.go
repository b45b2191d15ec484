// Package hexdump renders a byte range as a classic hex-plus-ASCII dump.
package hexdump

import (
	"encoding/hex"
	"fmt"
	"io"
	"unicode"
)

// Dump reads length bytes at offset from r and writes a 16-bytes-per-line
// hex-plus-ASCII dump to w.
func Dump(w io.Writer, r io.ReaderAt, offset, length int64) error {
	buf := make([]byte, length)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("hexdump: reading %d bytes at %d: %w", length, offset, err)
	}

	for i := 0; i < len(buf); i += 16 {
		end := i + 16
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[i:end]

		hexStr := hex.EncodeToString(chunk)
		for j := 0; j < len(hexStr); j += 2 {
			if _, err := fmt.Fprintf(w, "%s ", hexStr[j:j+2]); err != nil {
				return err
			}
		}
		for j := len(chunk); j < 16; j++ {
			if _, err := fmt.Fprint(w, "   "); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprint(w, " |"); err != nil {
			return err
		}
		for _, b := range chunk {
			if unicode.IsPrint(rune(b)) {
				if _, err := fmt.Fprintf(w, "%c", b); err != nil {
					return err
				}
			} else if _, err := fmt.Fprint(w, "."); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "|"); err != nil {
			return err
		}
	}

	return nil
}
