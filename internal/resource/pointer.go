package resource

import "fmt"

// Window identifies one of the two virtual address ranges a pointer can
// target.
type Window uint8

const (
	// WindowNone marks a value that is not a relocatable pointer.
	WindowNone Window = iota
	// WindowSystem is [0x5000_0000, 0x6000_0000).
	WindowSystem
	// WindowGraphics is [0x6000_0000, 0x7000_0000).
	WindowGraphics
)

const (
	// SystemBase is the first address of the system window.
	SystemBase uint64 = 0x5000_0000
	// GraphicsBase is the first address of the graphics window.
	GraphicsBase uint64 = 0x6000_0000
	// WindowLimit is the first address past the graphics window.
	WindowLimit uint64 = 0x7000_0000
	// WindowSpan is the size of each window (256 MiB).
	WindowSpan uint64 = 0x1000_0000

	// PointerMask recovers the 31-bit virtual address from a stored
	// pointer word.
	PointerMask uint64 = 0x7FFF_FFFF
	// WindowOffsetMask extracts the offset inside a window, which is also
	// the file offset of the target in the dump.
	WindowOffsetMask uint64 = 0x0FFF_FFFF
)

// String returns the window name.
func (w Window) String() string {
	switch w {
	case WindowNone:
		return "none"
	case WindowSystem:
		return "system"
	case WindowGraphics:
		return "graphics"
	default:
		return fmt.Sprintf("window(%d)", uint8(w))
	}
}

// Base returns the first virtual address of the window, or 0 for
// WindowNone.
func (w Window) Base() uint64 {
	switch w {
	case WindowSystem:
		return SystemBase
	case WindowGraphics:
		return GraphicsBase
	default:
		return 0
	}
}

// Classify reports which window value points into. Values outside
// [0x5000_0000, 0x7000_0000) are not pointers; 0x6000_0000 belongs to the
// graphics window.
func Classify(value uint64) Window {
	// Unsigned wrap sends everything below SystemBase out of range too.
	rel := value - SystemBase
	if rel < 2*WindowSpan {
		return Window(1 + rel>>28)
	}
	return WindowNone
}

// IsPointer reports whether value is a candidate pointer.
func IsPointer(value uint64) bool {
	return Classify(value) != WindowNone
}

// VirtualAddress narrows a candidate pointer word to its 32-bit address.
func VirtualAddress(value uint64) uint32 {
	return uint32(value & PointerMask)
}

// WindowOffset returns the offset of value inside its window.
func WindowOffset(value uint64) uint32 {
	return uint32(value & WindowOffsetMask)
}

// Address composes the virtual address of offset inside window w.
func Address(w Window, offset uint32) uint64 {
	return w.Base() | uint64(offset)
}
