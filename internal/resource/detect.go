package resource

import (
	"bytes"

	apperrors "github.com/rsc-forge/pkg/errors"
)

// Format is the classification of an input buffer.
type Format int

const (
	// FormatUnrecognized is neither a dump nor a container.
	FormatUnrecognized Format = iota
	// FormatRawDump is an uncompressed fragment dump.
	FormatRawDump
	// FormatCompressedContainer is an RSC7 container.
	FormatCompressedContainer
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatRawDump:
		return "raw-dump"
	case FormatCompressedContainer:
		return "compressed-container"
	default:
		return "unrecognized"
	}
}

const (
	// MinInputSize is the smallest buffer the converter accepts.
	MinInputSize = 16
	// MaxInputSize is the largest buffer the converter accepts (500 MiB).
	MaxInputSize = 500 << 20
)

// DumpTag is the leading tag of a fragment dump.
var DumpTag = []byte("FRAG")

// DetectOptions tunes the fingerprint fallback of Detect.
type DetectOptions struct {
	// FingerprintScanLimit bounds how many leading bytes are searched.
	// Zero searches the whole buffer.
	FingerprintScanLimit int
	// Fingerprints are lowercase name fragments found in dumps that lack
	// the FRAG tag.
	Fingerprints []string
}

// DefaultDetectOptions returns the built-in fingerprint set.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		FingerprintScanLimit: 4 << 20,
		Fingerprints: []string{
			".dds", ".sps", "shader", "material", "texture", "diffuse", "normal", "specular",
		},
	}
}

// ValidateSize applies the input size gates.
func ValidateSize(buf []byte) error {
	if len(buf) < MinInputSize {
		return apperrors.Newf(apperrors.CodeInputTooSmall,
			"input is %d bytes, need at least %d", len(buf), MinInputSize)
	}
	if len(buf) > MaxInputSize {
		return apperrors.Newf(apperrors.CodeInputTooLarge,
			"input is %d bytes, limit is %d", len(buf), MaxInputSize)
	}
	return nil
}

// Detect classifies buf with the default options.
func Detect(buf []byte) Format {
	return DetectWith(buf, DefaultDetectOptions())
}

// DetectWith classifies buf. The leading 4-byte tag decides; untagged
// buffers are searched for known fingerprints before giving up.
func DetectWith(buf []byte, opts DetectOptions) Format {
	if len(buf) >= 4 {
		switch {
		case bytes.Equal(buf[:4], DumpTag):
			return FormatRawDump
		case bytes.Equal(buf[:4], ContainerMagic[:]):
			return FormatCompressedContainer
		}
	}

	if matchFingerprint(buf, opts) {
		return FormatRawDump
	}
	return FormatUnrecognized
}

func matchFingerprint(buf []byte, opts DetectOptions) bool {
	if len(opts.Fingerprints) == 0 {
		return false
	}
	window := buf
	if opts.FingerprintScanLimit > 0 && len(window) > opts.FingerprintScanLimit {
		window = window[:opts.FingerprintScanLimit]
	}
	lower := bytes.ToLower(window)
	for _, fp := range opts.Fingerprints {
		if fp != "" && bytes.Contains(lower, []byte(fp)) {
			return true
		}
	}
	return false
}
