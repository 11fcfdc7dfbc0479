// Package writer provides JSON writers with optional payload compression
// for diagnostic artifacts.
package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rsc-forge/pkg/compression"
)

// JSONWriter writes data as JSON.
type JSONWriter[T any] struct {
	// Indent specifies the indentation for pretty printing.
	// Empty string means compact output.
	Indent string
}

// NewJSONWriter creates a new JSON writer with compact output.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: ""}
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  "}
}

// Write writes the data as JSON to the writer.
func (w *JSONWriter[T]) Write(data T, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	return encoder.Encode(data)
}

// WriteToFile writes the data as JSON to a file.
func (w *JSONWriter[T]) WriteToFile(data T, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return w.Write(data, file)
}

// CompressedWriter writes JSON through a compression codec.
type CompressedWriter[T any] struct {
	json       *JSONWriter[T]
	compressor compression.Compressor
}

// NewCompressedWriter creates a writer using comp; nil means no
// compression.
func NewCompressedWriter[T any](comp compression.Compressor) *CompressedWriter[T] {
	if comp == nil {
		comp = compression.NewNoOpCompressor()
	}
	return &CompressedWriter[T]{json: NewJSONWriter[T](), compressor: comp}
}

// WriteResult contains statistics about the written payload.
type WriteResult struct {
	Codec          string
	JSONSize       int64
	CompressedSize int64
	CompressionPct float64
}

// Encode returns the compressed JSON encoding of data.
func (w *CompressedWriter[T]) Encode(data T) ([]byte, *WriteResult, error) {
	var buf bytes.Buffer
	if err := w.json.Write(data, &buf); err != nil {
		return nil, nil, fmt.Errorf("failed to encode data: %w", err)
	}
	jsonSize := int64(buf.Len())

	out, err := w.compressor.Compress(buf.Bytes())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compress data: %w", err)
	}

	compressionPct := 0.0
	if jsonSize > 0 {
		compressionPct = float64(len(out)) / float64(jsonSize) * 100
	}

	return out, &WriteResult{
		Codec:          w.compressor.Name(),
		JSONSize:       jsonSize,
		CompressedSize: int64(len(out)),
		CompressionPct: compressionPct,
	}, nil
}

// WriteToFileWithStats writes data to a file and returns statistics about
// the output.
func (w *CompressedWriter[T]) WriteToFileWithStats(data T, filepath string) (*WriteResult, error) {
	out, stats, err := w.Encode(data)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath, out, 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	return stats, nil
}

// Decode reverses Encode for self-describing codecs (zstd, gzip, none).
func Decode[T any](data []byte) (T, error) {
	var v T
	raw, err := compression.AutoDecompress(data)
	if err != nil {
		return v, fmt.Errorf("failed to decompress data: %w", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to decode data: %w", err)
	}
	return v, nil
}
