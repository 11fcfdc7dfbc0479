package resource

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/rsc-forge/pkg/errors"
)

func TestValidateSize(t *testing.T) {
	tests := []struct {
		name string
		size int
		code string
	}{
		{"empty", 0, apperrors.CodeInputTooSmall},
		{"fifteen", 15, apperrors.CodeInputTooSmall},
		{"sixteen", 16, ""},
		{"typical", 4096, ""},
		{"at limit", MaxInputSize, ""},
		{"over limit", MaxInputSize + 1, apperrors.CodeInputTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSize(make([]byte, tt.size))
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.code, apperrors.GetErrorCode(err))
		})
	}
}

func TestDetect(t *testing.T) {
	pad := make([]byte, 32)

	tests := []struct {
		name string
		buf  []byte
		want Format
	}{
		{"frag tag", append([]byte("FRAG"), pad...), FormatRawDump},
		{"rsc7 tag", append([]byte("RSC7"), pad...), FormatCompressedContainer},
		{"fingerprint", append(append([]byte("XXXX"), pad...), []byte("vehicle_Diffuse.dds")...), FormatRawDump},
		{"shader name", append([]byte{0, 1, 2, 3}, []byte("gta_default.sps")...), FormatRawDump},
		{"garbage", bytes.Repeat([]byte{0xAA}, 64), FormatUnrecognized},
		{"tiny", []byte("FR"), FormatUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.buf))
		})
	}
}

func TestDetectWith_ScanLimit(t *testing.T) {
	buf := append(bytes.Repeat([]byte{0}, 128), []byte("material")...)

	assert.Equal(t, FormatRawDump, DetectWith(buf, DetectOptions{Fingerprints: []string{"material"}}))
	assert.Equal(t, FormatUnrecognized, DetectWith(buf, DetectOptions{
		FingerprintScanLimit: 64,
		Fingerprints:         []string{"material"},
	}))
	assert.Equal(t, FormatUnrecognized, DetectWith(buf, DetectOptions{}))
}

func TestDetect_DoesNotMutate(t *testing.T) {
	buf := append([]byte("ABCD"), []byte("SHADER")...)
	orig := append([]byte(nil), buf...)
	Detect(buf)
	assert.Equal(t, orig, buf)
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "raw-dump", FormatRawDump.String())
	assert.Equal(t, "compressed-container", FormatCompressedContainer.String())
	assert.Equal(t, "unrecognized", FormatUnrecognized.String())
}
