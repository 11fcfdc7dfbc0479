// Package resource implements the byte-level path from a raw fragment dump
// to a compressed resource container.
//
// # Package Organization
//
//   - detect.go: input size gates and format detection (FRAG / RSC7 / fingerprints)
//   - pointer.go: address windows and pointer classification
//   - memmap.go: pointer-site scan and region derivation
//   - estimate.go: heuristic region size estimation
//   - rebuild.go: offset assignment, copy and pointer relocation
//   - header.go: container header and page-flag encoding
//   - encode.go: payload compression and container decoding
//
// A dump is treated as one flat buffer addressed through two 256 MiB
// virtual windows: system pointers 0x5000_0000+off and graphics pointers
// 0x6000_0000+off both refer to file offset off. Rebuilding assigns every
// discovered region a new offset inside the stream of its window and
// rewrites each pointer so it refers to that new offset.
//
// Nothing in this package keeps state between calls; concurrent
// conversions of independent dumps need no locking.
package resource
