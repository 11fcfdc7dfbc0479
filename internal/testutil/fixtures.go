// Package testutil provides dump fixtures and helpers for tests.
package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Virtual window bases as written into synthetic dumps.
const (
	SystemBase   uint64 = 0x5000_0000
	GraphicsBase uint64 = 0x6000_0000
)

// DumpBuilder assembles synthetic fragment dumps. Offsets are file offsets.
type DumpBuilder struct {
	buf    []byte
	tagged bool
}

// NewDump returns a zeroed dump of size bytes carrying the FRAG tag.
func NewDump(size int) *DumpBuilder {
	b := &DumpBuilder{buf: make([]byte, size), tagged: true}
	copy(b.buf, "FRAG")
	return b
}

// Untagged returns a zeroed dump of size bytes without a tag.
func Untagged(size int) *DumpBuilder {
	return &DumpBuilder{buf: make([]byte, size)}
}

// Pattern fills [off, off+n) with non-zero bytes that never form a
// candidate pointer word. The tag is preserved when off is 0.
func (b *DumpBuilder) Pattern(off, n int) *DumpBuilder {
	for i := off; i < off+n && i < len(b.buf); i++ {
		if i < 4 && b.tagged {
			continue
		}
		b.buf[i] = byte(i%251) + 1
	}
	return b
}

// Fill sets [off, off+n) to v.
func (b *DumpBuilder) Fill(off, n int, v byte) *DumpBuilder {
	for i := off; i < off+n && i < len(b.buf); i++ {
		b.buf[i] = v
	}
	return b
}

// Word writes a little-endian 64-bit value at off.
func (b *DumpBuilder) Word(off int, v uint64) *DumpBuilder {
	binary.LittleEndian.PutUint64(b.buf[off:], v)
	return b
}

// SystemPointer writes a system-window pointer to target at off.
func (b *DumpBuilder) SystemPointer(off, target int) *DumpBuilder {
	return b.Word(off, SystemBase|uint64(target))
}

// GraphicsPointer writes a graphics-window pointer to target at off.
func (b *DumpBuilder) GraphicsPointer(off, target int) *DumpBuilder {
	return b.Word(off, GraphicsBase|uint64(target))
}

// Text writes s at off.
func (b *DumpBuilder) Text(off int, s string) *DumpBuilder {
	copy(b.buf[off:], s)
	return b
}

// Bytes returns a copy of the dump.
func (b *DumpBuilder) Bytes() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}

// RootOnlyDump is a 512-byte dump without pointers.
func RootOnlyDump() []byte {
	return NewDump(512).Pattern(0, 512).Bytes()
}

// LinkedDump is a 1024-byte dump whose root holds one system pointer (at
// offset 16) to a 64-byte structure at offset 768. Bytes 512-767 are
// never referenced.
func LinkedDump() []byte {
	return NewDump(1024).
		Pattern(0, 512).
		SystemPointer(16, 768).
		Pattern(768, 64).
		Bytes()
}

// WriteFile writes content into dir and returns the path.
func WriteFile(t *testing.T, dir, filename string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

// ReadFile reads a file and fails the test on error.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return data
}
