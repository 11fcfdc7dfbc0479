package resource

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// PointerSite is one candidate pointer word found in the dump.
type PointerSite struct {
	FileOffset uint64 `json:"file_offset"`
	RawValue   uint64 `json:"raw_value"`
}

// Window returns the window the site points into.
func (p PointerSite) Window() Window {
	return Classify(p.RawValue)
}

// TargetOffset returns the file offset the site refers to.
func (p PointerSite) TargetOffset() uint32 {
	return WindowOffset(p.RawValue)
}

// String implements fmt.Stringer.
func (p PointerSite) String() string {
	return fmt.Sprintf("site@0x%x -> 0x%08x", p.FileOffset, p.RawValue)
}

// MemoryRegion is a contiguous byte range of the dump that is copied as a
// unit into one of the output streams.
type MemoryRegion struct {
	// OriginalAddress is the virtual address the region was reached
	// through (window base | file offset).
	OriginalAddress uint32 `json:"original_address"`
	Size            uint32 `json:"size"`
	// NewOffset is the position inside the window's stream; assigned by
	// Rebuild, zero before.
	NewOffset uint32 `json:"new_offset"`
	Window    Window `json:"window"`
}

// FileOffset returns where the region starts in the dump.
func (r MemoryRegion) FileOffset() uint32 {
	return uint32(uint64(r.OriginalAddress) & WindowOffsetMask)
}

// FileEnd returns the first dump offset past the region.
func (r MemoryRegion) FileEnd() uint64 {
	return uint64(r.FileOffset()) + uint64(r.Size)
}

// holds reports whether [off, off+n) lies inside the region's file range.
func (r MemoryRegion) holds(off uint64, n uint64) bool {
	return off >= uint64(r.FileOffset()) && off+n <= r.FileEnd()
}

// MemoryMap is the result of analyzing a dump.
type MemoryMap struct {
	DumpSize int            `json:"dump_size"`
	Regions  []MemoryRegion `json:"regions"`
	Pointers []PointerSite  `json:"pointers"`
	// Unresolvable holds sites whose target lies past the end of the dump.
	Unresolvable []PointerSite `json:"unresolvable,omitempty"`
}

// RegionCount returns the number of regions in window w.
func (m *MemoryMap) RegionCount(w Window) int {
	n := 0
	for _, r := range m.Regions {
		if r.Window == w {
			n++
		}
	}
	return n
}

// CoveredBytes returns the total size of the regions in window w.
func (m *MemoryMap) CoveredBytes(w Window) int {
	n := 0
	for _, r := range m.Regions {
		if r.Window == w {
			n += int(r.Size)
		}
	}
	return n
}

// Lookup returns the region containing the virtual address addr.
func (m *MemoryMap) Lookup(addr uint64) (MemoryRegion, bool) {
	w := Classify(addr)
	if w == WindowNone {
		return MemoryRegion{}, false
	}
	off := uint64(WindowOffset(addr))
	for _, r := range m.Regions {
		if r.Window == w && r.holds(off, 1) {
			return r, true
		}
	}
	return MemoryRegion{}, false
}

// BuildMemoryMap scans dump for pointers and derives its region table.
func BuildMemoryMap(dump []byte) *MemoryMap {
	sites := ScanPointers(dump)
	regions, unresolvable := DeriveRegions(dump, sites)
	return &MemoryMap{
		DumpSize:     len(dump),
		Regions:      regions,
		Pointers:     sites,
		Unresolvable: unresolvable,
	}
}

// ScanPointers tests every 8-byte aligned little-endian word of dump and
// returns the candidate pointers in ascending file offset order.
func ScanPointers(dump []byte) []PointerSite {
	var sites []PointerSite
	for i := 0; i+8 <= len(dump); i += 8 {
		v := binary.LittleEndian.Uint64(dump[i:])
		if IsPointer(v) {
			sites = append(sites, PointerSite{FileOffset: uint64(i), RawValue: v})
		}
	}
	return sites
}

// claimSet keeps the regions of one window ordered by file offset.
type claimSet struct {
	starts []uint64
	ends   []uint64
}

// find returns the index of the first region starting after off.
func (c *claimSet) find(off uint64) int {
	return sort.Search(len(c.starts), func(i int) bool { return c.starts[i] > off })
}

func (c *claimSet) claimed(off uint64) bool {
	i := c.find(off)
	return i > 0 && off < c.ends[i-1]
}

// limit returns how far a new region at off may extend.
func (c *claimSet) limit(off uint64, end uint64) uint64 {
	if i := c.find(off); i < len(c.starts) && c.starts[i] < end {
		return c.starts[i]
	}
	return end
}

func (c *claimSet) add(start, end uint64) {
	i := c.find(start)
	c.starts = append(c.starts, 0)
	c.ends = append(c.ends, 0)
	copy(c.starts[i+1:], c.starts[i:])
	copy(c.ends[i+1:], c.ends[i:])
	c.starts[i] = start
	c.ends[i] = end
}

// DeriveRegions reduces the site list to a region table. The root region
// (system window, file offset 0) comes first, followed by one region per
// newly reached target in site order. A target already inside a region of
// the same window creates nothing; a new region is clipped where the next
// claimed region of its window begins. Sites pointing past the end of the
// dump are returned separately.
func DeriveRegions(dump []byte, sites []PointerSite) ([]MemoryRegion, []PointerSite) {
	if len(dump) == 0 {
		return nil, nil
	}

	claims := map[Window]*claimSet{
		WindowSystem:   {},
		WindowGraphics: {},
	}

	rootSize := max(RootMinSize, EstimateRegionSize(dump, 0, SystemBase))
	rootSize = min(rootSize, len(dump), MaxRegionSize)
	regions := []MemoryRegion{{
		OriginalAddress: uint32(SystemBase),
		Size:            uint32(rootSize),
		Window:          WindowSystem,
	}}
	claims[WindowSystem].add(0, uint64(rootSize))

	var unresolvable []PointerSite
	for _, site := range sites {
		w := site.Window()
		if w == WindowNone {
			continue
		}
		off := uint64(site.TargetOffset())
		if off >= uint64(len(dump)) {
			unresolvable = append(unresolvable, site)
			continue
		}

		cs := claims[w]
		if cs.claimed(off) {
			continue
		}

		size := uint64(EstimateRegionSize(dump, int(off), site.RawValue))
		end := cs.limit(off, off+size)
		cs.add(off, end)
		regions = append(regions, MemoryRegion{
			OriginalAddress: uint32(Address(w, uint32(off))),
			Size:            uint32(end - off),
			Window:          w,
		})
	}

	return regions, unresolvable
}
