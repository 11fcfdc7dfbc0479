package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsc-forge/internal/testutil"
)

func TestScanPointers(t *testing.T) {
	dump := testutil.NewDump(128).
		Pattern(0, 128).
		SystemPointer(8, 0x40).
		GraphicsPointer(24, 0x10).
		Word(40, 0x4FFF_FFFF).
		Word(48, 0x7000_0000).
		Bytes()
	// Unaligned pointers are not candidates.
	copy(dump[61:], []byte{0x00, 0x01, 0x00, 0x50, 0, 0, 0, 0})

	sites := ScanPointers(dump)
	require.Len(t, sites, 2)
	assert.Equal(t, PointerSite{FileOffset: 8, RawValue: 0x5000_0040}, sites[0])
	assert.Equal(t, PointerSite{FileOffset: 24, RawValue: 0x6000_0010}, sites[1])
	assert.Equal(t, WindowGraphics, sites[1].Window())
	assert.Equal(t, uint32(0x10), sites[1].TargetOffset())
}

func TestScanPointers_IgnoresTrailingPartialWord(t *testing.T) {
	dump := testutil.NewDump(20).SystemPointer(8, 0).Bytes()
	dump = append(dump[:16], 0x00, 0x00, 0x00, 0x50)
	assert.Len(t, ScanPointers(dump), 1)
}

func TestDeriveRegions(t *testing.T) {
	t.Run("root only", func(t *testing.T) {
		dump := testutil.RootOnlyDump()
		regions, unresolvable := DeriveRegions(dump, ScanPointers(dump))
		require.Len(t, regions, 1)
		assert.Empty(t, unresolvable)
		assert.Equal(t, MemoryRegion{
			OriginalAddress: 0x5000_0000,
			Size:            512,
			Window:          WindowSystem,
		}, regions[0])
	})

	t.Run("root is at least 512 bytes", func(t *testing.T) {
		dump := testutil.NewDump(2048).Pattern(0, 100).Bytes()
		regions, _ := DeriveRegions(dump, nil)
		require.Len(t, regions, 1)
		assert.Equal(t, uint32(RootMinSize), regions[0].Size)
	})

	t.Run("root clamped to short dump", func(t *testing.T) {
		dump := testutil.NewDump(100).Pattern(0, 100).Bytes()
		regions, _ := DeriveRegions(dump, nil)
		require.Len(t, regions, 1)
		assert.Equal(t, uint32(100), regions[0].Size)
	})

	t.Run("pointer creates region", func(t *testing.T) {
		dump := testutil.LinkedDump()
		regions, _ := DeriveRegions(dump, ScanPointers(dump))
		require.Len(t, regions, 2)
		assert.Equal(t, MemoryRegion{OriginalAddress: 0x5000_0300, Size: 64, Window: WindowSystem}, regions[1])
		assert.Equal(t, uint32(768), regions[1].FileOffset())
	})

	t.Run("claimed target creates nothing", func(t *testing.T) {
		dump := testutil.NewDump(1024).
			Pattern(0, 512).
			SystemPointer(16, 0x40).
			SystemPointer(24, 0).
			Bytes()
		regions, _ := DeriveRegions(dump, ScanPointers(dump))
		assert.Len(t, regions, 1)
	})

	t.Run("windows are claimed separately", func(t *testing.T) {
		dump := testutil.NewDump(1024).
			Pattern(0, 512).
			GraphicsPointer(16, 0x40).
			Bytes()
		regions, _ := DeriveRegions(dump, ScanPointers(dump))
		require.Len(t, regions, 2)
		assert.Equal(t, WindowGraphics, regions[1].Window)
		assert.Equal(t, uint32(0x6000_0040), regions[1].OriginalAddress)
	})

	t.Run("new region clipped at claimed neighbour", func(t *testing.T) {
		dump := testutil.NewDump(4096).
			Pattern(0, 4096).
			SystemPointer(16, 2048).
			SystemPointer(24, 1024).
			SystemPointer(512, 1024).
			Bytes()
		regions, _ := DeriveRegions(dump, ScanPointers(dump))
		require.Len(t, regions, 3)
		assert.Equal(t, uint32(512), regions[0].Size, "root stops at the pointer word at 512")
		assert.Equal(t, MemoryRegion{OriginalAddress: 0x5000_0800, Size: 2048, Window: WindowSystem}, regions[1])
		assert.Equal(t, MemoryRegion{OriginalAddress: 0x5000_0400, Size: 1024, Window: WindowSystem}, regions[2])
	})

	t.Run("target outside dump", func(t *testing.T) {
		dump := testutil.NewDump(512).
			Pattern(0, 512).
			Word(32, 0x5FFF_0000).
			Bytes()
		regions, unresolvable := DeriveRegions(dump, ScanPointers(dump))
		assert.Len(t, regions, 1)
		require.Len(t, unresolvable, 1)
		assert.Equal(t, uint64(32), unresolvable[0].FileOffset)
	})

	t.Run("empty dump", func(t *testing.T) {
		regions, unresolvable := DeriveRegions(nil, nil)
		assert.Nil(t, regions)
		assert.Nil(t, unresolvable)
	})
}

func TestDeriveRegions_NoOverlapPerWindow(t *testing.T) {
	b := testutil.NewDump(8192).Pattern(0, 8192)
	for i := 0; i < 32; i++ {
		b.SystemPointer(64+i*8, (i*373)%8000)
		b.GraphicsPointer(1024+i*8, (i*611)%8000)
	}
	dump := b.Bytes()

	regions, _ := DeriveRegions(dump, ScanPointers(dump))
	spans := map[Window][]testutil.Span{}
	for _, r := range regions {
		assert.Greater(t, r.Size, uint32(0))
		assert.LessOrEqual(t, r.FileEnd(), uint64(len(dump)))
		spans[r.Window] = append(spans[r.Window], testutil.Span{Start: uint64(r.FileOffset()), End: r.FileEnd()})
	}
	testutil.AssertDisjoint(t, spans[WindowSystem])
	testutil.AssertDisjoint(t, spans[WindowGraphics])
}

func TestBuildMemoryMap_Deterministic(t *testing.T) {
	dump := testutil.LinkedDump()
	first := BuildMemoryMap(dump)
	second := BuildMemoryMap(dump)
	assert.Equal(t, first, second)
	assert.Equal(t, len(dump), first.DumpSize)
	assert.Equal(t, 2, first.RegionCount(WindowSystem))
	assert.Equal(t, 0, first.RegionCount(WindowGraphics))
	assert.Equal(t, 576, first.CoveredBytes(WindowSystem))
}

func TestMemoryMap_Lookup(t *testing.T) {
	m := BuildMemoryMap(testutil.LinkedDump())

	r, ok := m.Lookup(0x5000_0310)
	require.True(t, ok)
	assert.Equal(t, uint32(0x5000_0300), r.OriginalAddress)

	_, ok = m.Lookup(0x5000_0250)
	assert.False(t, ok, "dead data belongs to no region")

	_, ok = m.Lookup(0x6000_0000)
	assert.False(t, ok, "graphics window has no regions")

	_, ok = m.Lookup(0x10)
	assert.False(t, ok)
}
