package testutil

import (
	"encoding/binary"
	"sort"
	"testing"
)

// Span is a half-open byte range.
type Span struct {
	Start, End uint64
}

// AssertDisjoint fails if any two spans overlap.
func AssertDisjoint(t *testing.T, spans []Span) {
	t.Helper()

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			t.Errorf("spans [%d,%d) and [%d,%d) overlap",
				sorted[i-1].Start, sorted[i-1].End, sorted[i].Start, sorted[i].End)
		}
	}
}

// AssertAligned fails unless v is a multiple of align.
func AssertAligned(t *testing.T, v uint64, align uint64) {
	t.Helper()
	if v%align != 0 {
		t.Errorf("%d is not aligned to %d", v, align)
	}
}

// Uint64At reads a little-endian word, failing the test when out of range.
func Uint64At(t *testing.T, buf []byte, off uint64) uint64 {
	t.Helper()
	if off+8 > uint64(len(buf)) {
		t.Fatalf("word at %d outside buffer of %d bytes", off, len(buf))
	}
	return binary.LittleEndian.Uint64(buf[off:])
}
