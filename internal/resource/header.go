package resource

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Generation selects the container version and its flag nibbles.
type Generation int

const (
	// GenerationLegacy writes version 162 containers.
	GenerationLegacy Generation = iota
	// GenerationNext writes version 171 containers.
	GenerationNext
)

const (
	VersionLegacy uint32 = 162
	VersionNext   uint32 = 171
)

// ParseGeneration parses "legacy" or "next".
func ParseGeneration(s string) (Generation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy", "":
		return GenerationLegacy, nil
	case "next":
		return GenerationNext, nil
	default:
		return GenerationLegacy, fmt.Errorf("unsupported generation: %q", s)
	}
}

// String returns the configuration name of the generation.
func (g Generation) String() string {
	switch g {
	case GenerationLegacy:
		return "legacy"
	case GenerationNext:
		return "next"
	default:
		return fmt.Sprintf("generation(%d)", int(g))
	}
}

// Version returns the container version written for g.
func (g Generation) Version() uint32 {
	if g == GenerationNext {
		return VersionNext
	}
	return VersionLegacy
}

// HeaderSize is the encoded size of a ContainerHeader.
const HeaderSize = 16

// ContainerMagic is the leading tag of a container.
var ContainerMagic = [4]byte{'R', 'S', 'C', '7'}

// MagicValue is ContainerMagic read as a little-endian uint32.
var MagicValue = binary.LittleEndian.Uint32(ContainerMagic[:])

// ContainerHeader is the fixed 16-byte container prefix.
type ContainerHeader struct {
	Magic         uint32 `json:"magic"`
	Version       uint32 `json:"version"`
	SystemFlags   uint32 `json:"system_flags"`
	GraphicsFlags uint32 `json:"graphics_flags"`
}

// NewContainerHeader computes the header for compressed payload sizes.
func NewContainerHeader(version uint32, systemSize, graphicsSize int) (ContainerHeader, error) {
	sys, err := FlagsFromSize(systemSize, (version>>4)&0xF)
	if err != nil {
		return ContainerHeader{}, fmt.Errorf("system flags: %w", err)
	}
	gfx, err := FlagsFromSize(graphicsSize, version&0xF)
	if err != nil {
		return ContainerHeader{}, fmt.Errorf("graphics flags: %w", err)
	}
	return ContainerHeader{
		Magic:         MagicValue,
		Version:       version,
		SystemFlags:   sys,
		GraphicsFlags: gfx,
	}, nil
}

// MarshalBinary encodes the header little-endian.
func (h ContainerHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.Version)
	binary.LittleEndian.PutUint32(buf[8:], h.SystemFlags)
	binary.LittleEndian.PutUint32(buf[12:], h.GraphicsFlags)
	return buf, nil
}

// ParseHeader decodes the header at the start of buf.
func ParseHeader(buf []byte) (ContainerHeader, error) {
	if len(buf) < HeaderSize {
		return ContainerHeader{}, fmt.Errorf("header needs %d bytes, have %d", HeaderSize, len(buf))
	}
	h := ContainerHeader{
		Magic:         binary.LittleEndian.Uint32(buf[0:]),
		Version:       binary.LittleEndian.Uint32(buf[4:]),
		SystemFlags:   binary.LittleEndian.Uint32(buf[8:]),
		GraphicsFlags: binary.LittleEndian.Uint32(buf[12:]),
	}
	if h.Magic != MagicValue {
		return ContainerHeader{}, fmt.Errorf("bad magic 0x%08x", h.Magic)
	}
	return h, nil
}

// Page table layout of a flags word. Bits 0-3 hold the base page shift
// (page = 0x200 << shift), bits 4-27 hold page counts for nine page sizes
// from base*256 down to base*1, bits 28-31 hold the version nibble.
var pageClasses = [...]struct {
	shift uint32
	bits  uint32
	mult  uint64
}{
	{4, 1, 256},
	{5, 2, 128},
	{7, 4, 64},
	{11, 6, 32},
	{17, 7, 16},
	{24, 1, 8},
	{25, 1, 4},
	{26, 1, 2},
	{27, 1, 1},
}

const (
	basePageSize = 0x200
	maxPageShift = 15
)

// pageCapacity is the number of base pages one flags word can describe.
var pageCapacity = func() uint64 {
	var n uint64
	for _, c := range pageClasses {
		n += (uint64(1)<<c.bits - 1) * c.mult
	}
	return n
}()

// FlagsFromSize encodes size as a page table using the smallest base page
// that can describe it, tagged with the version nibble. The described size
// is size rounded up to the base page.
func FlagsFromSize(size int, nibble uint32) (uint32, error) {
	if size < 0 {
		return 0, fmt.Errorf("negative size %d", size)
	}
	flags := (nibble & 0xF) << 28
	if size == 0 {
		return flags, nil
	}

	for ss := uint32(0); ss <= maxPageShift; ss++ {
		base := uint64(basePageSize) << ss
		units := (uint64(size) + base - 1) / base
		if units > pageCapacity {
			continue
		}

		flags |= ss
		for _, c := range pageClasses {
			n := min(units/c.mult, uint64(1)<<c.bits-1)
			units -= n * c.mult
			flags |= uint32(n) << c.shift
		}
		return flags, nil
	}
	return 0, fmt.Errorf("size %d exceeds page table capacity", size)
}

// SizeFromFlags returns the byte size a flags word describes.
func SizeFromFlags(flags uint32) int {
	base := uint64(basePageSize) << (flags & 0xF)
	var units uint64
	for _, c := range pageClasses {
		n := uint64(flags>>c.shift) & (uint64(1)<<c.bits - 1)
		units += n * c.mult
	}
	return int(units * base)
}

// VersionFromFlags recovers the container version from the two nibbles.
func VersionFromFlags(systemFlags, graphicsFlags uint32) uint32 {
	return (systemFlags>>28)<<4 | graphicsFlags>>28
}
