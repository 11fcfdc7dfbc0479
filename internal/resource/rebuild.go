package resource

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// StreamAlignment is the alignment of every region inside a stream.
const StreamAlignment = RegionStep

// RebuiltStreams are the position-independent system and graphics
// payloads before compression.
type RebuiltStreams struct {
	System   []byte
	Graphics []byte
}

// RelocationWarning describes a pointer site left unpatched.
type RelocationWarning struct {
	FileOffset uint64 `json:"file_offset"`
	RawValue   uint64 `json:"raw_value"`
	Reason     string `json:"reason"`
}

// String implements fmt.Stringer.
func (w RelocationWarning) String() string {
	return fmt.Sprintf("pointer at 0x%x (0x%08x) not relocated: %s", w.FileOffset, w.RawValue, w.Reason)
}

// RebuildResult is the outcome of Rebuild.
type RebuildResult struct {
	Streams RebuiltStreams
	// Regions are the input regions with NewOffset assigned, ordered by
	// original address.
	Regions []MemoryRegion
	// Patched counts pointer words rewritten across both streams.
	Patched  int
	Warnings []RelocationWarning
}

// windowIndex orders the regions of one window by file offset. Regions of
// a window never overlap, so at most one holds a given byte.
type windowIndex []MemoryRegion

func (idx windowIndex) at(off uint64, n uint64) (MemoryRegion, bool) {
	i := sort.Search(len(idx), func(i int) bool { return uint64(idx[i].FileOffset()) > off })
	if i == 0 {
		return MemoryRegion{}, false
	}
	r := idx[i-1]
	return r, r.holds(off, n)
}

// Rebuild lays regions out in fresh per-window streams and rewrites every
// pointer site so it addresses the relocated copy of its target.
func Rebuild(dump []byte, regions []MemoryRegion, pointers []PointerSite) (*RebuildResult, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("no regions to rebuild")
	}

	laid := make([]MemoryRegion, len(regions))
	copy(laid, regions)
	sort.SliceStable(laid, func(i, j int) bool {
		return laid[i].OriginalAddress < laid[j].OriginalAddress
	})

	var sysCursor, gfxCursor uint32
	byWindow := map[Window]windowIndex{}
	for i := range laid {
		r := &laid[i]
		if r.Size == 0 {
			return nil, fmt.Errorf("region 0x%08x is empty", r.OriginalAddress)
		}
		if r.FileEnd() > uint64(len(dump)) {
			return nil, fmt.Errorf("region 0x%08x+%d exceeds dump of %d bytes",
				r.OriginalAddress, r.Size, len(dump))
		}

		var cursor *uint32
		switch r.Window {
		case WindowSystem:
			cursor = &sysCursor
		case WindowGraphics:
			cursor = &gfxCursor
		default:
			return nil, fmt.Errorf("region 0x%08x has no window", r.OriginalAddress)
		}
		r.NewOffset = *cursor
		*cursor = alignUp(*cursor+r.Size, StreamAlignment)
		byWindow[r.Window] = append(byWindow[r.Window], *r)
	}

	for w, idx := range byWindow {
		if err := checkDisjoint(idx); err != nil {
			return nil, fmt.Errorf("%s window: %w", w, err)
		}
	}

	result := &RebuildResult{
		Streams: RebuiltStreams{
			System:   make([]byte, sysCursor),
			Graphics: make([]byte, gfxCursor),
		},
		Regions: laid,
	}
	stream := func(w Window) []byte {
		if w == WindowGraphics {
			return result.Streams.Graphics
		}
		return result.Streams.System
	}

	for _, r := range laid {
		copy(stream(r.Window)[r.NewOffset:], dump[r.FileOffset():r.FileEnd()])
	}

	for _, site := range pointers {
		var holders []MemoryRegion
		for _, w := range []Window{WindowSystem, WindowGraphics} {
			if r, ok := byWindow[w].at(site.FileOffset, 8); ok {
				holders = append(holders, r)
			}
		}
		if len(holders) == 0 {
			// Dead data; the site was never copied.
			continue
		}

		targetOff := uint64(site.TargetOffset())
		target, ok := byWindow[site.Window()].at(targetOff, 1)
		if !ok {
			reason := "target not in any region"
			if targetOff >= uint64(len(dump)) {
				reason = "target outside dump"
			}
			result.Warnings = append(result.Warnings, RelocationWarning{
				FileOffset: site.FileOffset,
				RawValue:   site.RawValue,
				Reason:     reason,
			})
			continue
		}

		relocated := Address(target.Window, target.NewOffset+uint32(targetOff-uint64(target.FileOffset())))
		for _, h := range holders {
			pos := uint64(h.NewOffset) + site.FileOffset - uint64(h.FileOffset())
			binary.LittleEndian.PutUint64(stream(h.Window)[pos:], relocated)
			result.Patched++
		}
	}

	return result, nil
}

func checkDisjoint(idx windowIndex) error {
	for i := 1; i < len(idx); i++ {
		prev, cur := idx[i-1], idx[i]
		if uint64(cur.FileOffset()) < prev.FileEnd() {
			return fmt.Errorf("regions 0x%08x and 0x%08x overlap", prev.OriginalAddress, cur.OriginalAddress)
		}
	}
	return nil
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}
