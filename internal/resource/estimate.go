package resource

import "encoding/binary"

const (
	// MinRegionSize is the smallest structure a pointer target is assumed
	// to hold.
	MinRegionSize = 64
	// RegionStep is the stride of the size walk; also the stream alignment.
	RegionStep = 16
	// MaxRegionSize caps any single region (1 MiB).
	MaxRegionSize = 1 << 20
	// RootMinSize guarantees the fixed-layout dump header lands in the
	// root region even when no pointer refers to it.
	RootMinSize = 512

	lookaheadWindow  = 64
	zeroRunThreshold = 48
)

// EstimateRegionSize bounds the structure starting at file offset off.
// The walk grows the region in RegionStep increments from MinRegionSize
// and stops before the first step whose 64-byte lookahead holds more than
// 48 zero bytes, or whose leading word is a candidate pointer other than
// self (the address the region was discovered through). The result is
// clamped to the dump and to MaxRegionSize; 0 means off is outside dump.
func EstimateRegionSize(dump []byte, off int, self uint64) int {
	if off < 0 || off >= len(dump) {
		return 0
	}

	limit := len(dump) - off
	if limit > MaxRegionSize {
		limit = MaxRegionSize
	}

	size := MinRegionSize
	for size < limit {
		p := off + size
		if zeroHeavy(dump[p:min(p+lookaheadWindow, len(dump))]) {
			break
		}
		if p+8 <= len(dump) {
			word := binary.LittleEndian.Uint64(dump[p:])
			if word != self && IsPointer(word) {
				break
			}
		}
		size += RegionStep
	}

	return min(size, limit)
}

func zeroHeavy(window []byte) bool {
	if len(window) <= zeroRunThreshold {
		return false
	}
	zeros := 0
	for _, b := range window {
		if b == 0 {
			zeros++
			if zeros > zeroRunThreshold {
				return true
			}
		}
	}
	return false
}
