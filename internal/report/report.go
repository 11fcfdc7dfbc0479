// Package report renders a dump's memory map as a compressed JSON
// artifact for offline inspection.
package report

import (
	"fmt"
	"time"

	"github.com/rsc-forge/internal/resource"
	"github.com/rsc-forge/pkg/compression"
	"github.com/rsc-forge/pkg/writer"
)

// Report is the serialized form of a memory map.
type Report struct {
	Input        string                   `json:"input"`
	DumpSize     int                      `json:"dump_size"`
	GeneratedAt  time.Time                `json:"generated_at"`
	Windows      map[string]WindowSummary `json:"windows"`
	Regions      []Region                 `json:"regions"`
	Pointers     int                      `json:"pointers"`
	Unresolvable []Pointer                `json:"unresolvable,omitempty"`
}

// WindowSummary aggregates the regions of one address window.
type WindowSummary struct {
	Regions      int     `json:"regions"`
	CoveredBytes int     `json:"covered_bytes"`
	CoveragePct  float64 `json:"coverage_pct"`
}

// Region is one memory region. NewOffset is its position in the rebuilt
// stream and is zero for maps that were never laid out.
type Region struct {
	Window     string `json:"window"`
	Address    string `json:"address"`
	FileOffset uint32 `json:"file_offset"`
	Size       uint32 `json:"size"`
	NewOffset  uint32 `json:"new_offset"`
}

// Pointer is a pointer site whose target could not be resolved.
type Pointer struct {
	FileOffset uint64 `json:"file_offset"`
	Value      string `json:"value"`
}

// Build converts m into a Report. Region order follows m.
func Build(input string, m *resource.MemoryMap, now time.Time) *Report {
	r := &Report{
		Input:       input,
		DumpSize:    m.DumpSize,
		GeneratedAt: now.UTC(),
		Windows:     make(map[string]WindowSummary, 2),
		Regions:     make([]Region, 0, len(m.Regions)),
		Pointers:    len(m.Pointers),
	}

	for _, w := range []resource.Window{resource.WindowSystem, resource.WindowGraphics} {
		covered := m.CoveredBytes(w)
		ws := WindowSummary{Regions: m.RegionCount(w), CoveredBytes: covered}
		if m.DumpSize > 0 {
			ws.CoveragePct = float64(covered) / float64(m.DumpSize) * 100
		}
		r.Windows[w.String()] = ws
	}

	for _, reg := range m.Regions {
		r.Regions = append(r.Regions, Region{
			Window:     reg.Window.String(),
			Address:    fmt.Sprintf("0x%08x", reg.OriginalAddress),
			FileOffset: reg.FileOffset(),
			Size:       reg.Size,
			NewOffset:  reg.NewOffset,
		})
	}
	for _, p := range m.Unresolvable {
		r.Unresolvable = append(r.Unresolvable, Pointer{
			FileOffset: p.FileOffset,
			Value:      fmt.Sprintf("0x%08x", p.RawValue),
		})
	}
	return r
}

// Writer encodes reports with the configured codec.
type Writer struct {
	comp compression.Compressor
	out  *writer.CompressedWriter[*Report]
}

// NewWriter creates a Writer for a codec name (zstd, gzip or none).
// Raw deflate is refused because Decode could not recognize it.
func NewWriter(codec string) (*Writer, error) {
	t, err := compression.ParseType(codec)
	if err != nil {
		return nil, err
	}
	if t == compression.TypeDeflate {
		return nil, fmt.Errorf("report codec %q is not self-describing", codec)
	}
	comp, err := compression.New(t, compression.LevelDefault)
	if err != nil {
		return nil, err
	}
	return &Writer{comp: comp, out: writer.NewCompressedWriter[*Report](comp)}, nil
}

// Encode returns the compressed JSON report.
func (w *Writer) Encode(r *Report) ([]byte, *writer.WriteResult, error) {
	return w.out.Encode(r)
}

// WriteFile writes the report to path.
func (w *Writer) WriteFile(r *Report, path string) (*writer.WriteResult, error) {
	return w.out.WriteToFileWithStats(r, path)
}

// Close releases codec resources.
func (w *Writer) Close() {
	compression.Close(w.comp)
}

// Decode parses a report written by any Writer.
func Decode(data []byte) (*Report, error) {
	return writer.Decode[*Report](data)
}
