package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsc-forge/internal/resource"
	"github.com/rsc-forge/internal/testutil"
	"github.com/rsc-forge/pkg/compression"
)

var reportTime = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

// laidOutMap returns the memory map of dump with stream offsets assigned.
func laidOutMap(t *testing.T, dump []byte) *resource.MemoryMap {
	t.Helper()
	m := resource.BuildMemoryMap(dump)
	rebuilt, err := resource.Rebuild(dump, m.Regions, m.Pointers)
	require.NoError(t, err)
	m.Regions = rebuilt.Regions
	return m
}

func TestBuild(t *testing.T) {
	m := laidOutMap(t, testutil.LinkedDump())
	r := Build("linked.ydr", m, reportTime)

	assert.Equal(t, "linked.ydr", r.Input)
	assert.Equal(t, 1024, r.DumpSize)
	assert.Equal(t, 1, r.Pointers)
	assert.Empty(t, r.Unresolvable)

	require.Len(t, r.Regions, 2)
	assert.Equal(t, "0x50000000", r.Regions[0].Address)
	assert.Equal(t, "0x50000300", r.Regions[1].Address)
	assert.Equal(t, uint32(768), r.Regions[1].FileOffset)
	assert.Equal(t, uint32(64), r.Regions[1].Size)
	assert.Equal(t, uint32(0), r.Regions[0].NewOffset)
	assert.Equal(t, uint32(512), r.Regions[1].NewOffset)

	sys := r.Windows[resource.WindowSystem.String()]
	assert.Equal(t, 2, sys.Regions)
	assert.Equal(t, 576, sys.CoveredBytes)
	assert.InDelta(t, 56.25, sys.CoveragePct, 0.001)
	assert.Zero(t, r.Windows[resource.WindowGraphics.String()].Regions)
}

func TestBuild_Unresolvable(t *testing.T) {
	dump := testutil.NewDump(512).Pattern(0, 512).SystemPointer(16, 4096).Bytes()
	r := Build("broken", resource.BuildMemoryMap(dump), reportTime)

	require.Len(t, r.Unresolvable, 1)
	assert.Equal(t, uint64(16), r.Unresolvable[0].FileOffset)
	assert.Equal(t, "0x50001000", r.Unresolvable[0].Value)
}

func TestWriter_RoundTrip(t *testing.T) {
	r := Build("linked.ydr", resource.BuildMemoryMap(testutil.LinkedDump()), reportTime)

	for _, codec := range []string{"zstd", "gzip", "none"} {
		t.Run(codec, func(t *testing.T) {
			w, err := NewWriter(codec)
			require.NoError(t, err)
			defer w.Close()

			data, stats, err := w.Encode(r)
			require.NoError(t, err)
			assert.Equal(t, codec, stats.Codec)
			if codec != "none" {
				wantType, _ := compression.ParseType(codec)
				assert.Equal(t, wantType, compression.DetectType(data))
			}

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, r, got)
		})
	}
}

func TestWriter_WriteFile(t *testing.T) {
	w, err := NewWriter("zstd")
	require.NoError(t, err)
	defer w.Close()

	r := Build("root", resource.BuildMemoryMap(testutil.RootOnlyDump()), reportTime)
	path := filepath.Join(t.TempDir(), "root.map.json.zst")
	stats, err := w.WriteFile(r, path)
	require.NoError(t, err)
	assert.Positive(t, stats.CompressedSize)

	got, err := Decode(testutil.ReadFile(t, path))
	require.NoError(t, err)
	assert.Equal(t, r.Regions, got.Regions)
}

func TestNewWriter_Invalid(t *testing.T) {
	_, err := NewWriter("lzma")
	assert.Error(t, err)

	_, err = NewWriter("deflate")
	assert.ErrorContains(t, err, "not self-describing")
}
