package util

import (
	"fmt"
	"strings"
)

const (
	highlightOn  = "\033[1m\033[31m"
	highlightOff = "\033[0m"
)

// DumpByteSlice renders b as rows of hex bytes, like xxd. Each row starts
// with the device offset of its first byte, which is base plus the position
// in b. With showASCII the printable characters of the row follow the hex.
//
// If highlight is non-nil, only rows containing one of the listed positions
// of b are rendered and those bytes are highlighted. An empty, non-nil
// highlight renders nothing.
func DumpByteSlice(b []byte, base int64, bytesPerRow int, showASCII bool, highlight []int) string {
	if bytesPerRow <= 0 {
		bytesPerRow = 16
	}
	marked := make(map[int]bool, len(highlight))
	for _, p := range highlight {
		marked[p] = true
	}

	var out strings.Builder
	for first := 0; first < len(b); first += bytesPerRow {
		last := first + bytesPerRow
		if highlight != nil && !anyMarked(marked, first, last) {
			continue
		}
		fmt.Fprintf(&out, "%012x :", base+int64(first))
		ascii := make([]byte, 0, bytesPerRow)
		for j := first; j < last; j++ {
			if j%8 == 0 {
				out.WriteByte(' ')
			}
			if j >= len(b) {
				out.WriteString("   ")
				ascii = append(ascii, ' ')
				continue
			}
			if marked[j] {
				fmt.Fprintf(&out, " %s%02x%s", highlightOn, b[j], highlightOff)
			} else {
				fmt.Fprintf(&out, " %02x", b[j])
			}
			if b[j] < 32 || b[j] > 126 {
				ascii = append(ascii, '.')
			} else {
				ascii = append(ascii, b[j])
			}
		}
		if showASCII {
			fmt.Fprintf(&out, "  %s", ascii)
		}
		out.WriteByte('\n')
	}
	return out.String()
}

func anyMarked(marked map[int]bool, first, last int) bool {
	for j := first; j < last; j++ {
		if marked[j] {
			return true
		}
	}
	return false
}

// ByteDiff is one position at which two dumps differ. A position past the
// end of the shorter slice compares as 0.
type ByteDiff struct {
	Position int
	A, B     byte
}

// CompareBytes returns every position at which a and b differ
func CompareBytes(a, b []byte) []ByteDiff {
	var diffs []ByteDiff
	for i := 0; i < max(len(a), len(b)); i++ {
		var x, y byte
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if i >= len(a) || i >= len(b) || x != y {
			diffs = append(diffs, ByteDiff{Position: i, A: x, B: y})
		}
	}
	return diffs
}

// DumpByteSlicesWithDiffs renders the rows of a and then of b that differ,
// with the differing bytes highlighted. out is empty when they are equal.
func DumpByteSlicesWithDiffs(a, b []byte, base int64, bytesPerRow int, showASCII bool) (diffs []ByteDiff, out string) {
	diffs = CompareBytes(a, b)
	if len(diffs) == 0 {
		return nil, ""
	}
	positions := make([]int, len(diffs))
	for i, d := range diffs {
		positions[i] = d.Position
	}
	out = DumpByteSlice(a, base, bytesPerRow, showASCII, positions) + "\n" +
		DumpByteSlice(b, base, bytesPerRow, showASCII, positions)
	return diffs, out
}
