package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsc-forge/internal/testutil"
	"github.com/rsc-forge/pkg/compression"
	apperrors "github.com/rsc-forge/pkg/errors"
)

type failingCompressor struct{}

func (failingCompressor) Compress([]byte) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (failingCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (failingCompressor) Type() compression.Type                 { return compression.TypeNone }
func (failingCompressor) Name() string                           { return "failing" }

func TestEncode_RootOnlyRoundTrip(t *testing.T) {
	dump := testutil.RootOnlyDump()
	rebuilt := rebuildDump(t, dump)

	out, err := NewEncoder(nil).Encode(rebuilt.Streams, GenerationLegacy)
	require.NoError(t, err)
	assert.Equal(t, "RSC7", string(out[:4]))

	c, err := DecodeContainer(out)
	require.NoError(t, err)
	assert.Equal(t, dump, c.System)
	assert.Empty(t, c.Graphics)
	assert.Equal(t, VersionLegacy, c.Header.Version)
	assert.Equal(t, len(out)-HeaderSize, c.CompressedSystem)
	assert.GreaterOrEqual(t, SizeFromFlags(c.Header.SystemFlags), c.CompressedSystem)

	gen, err := c.Generation()
	require.NoError(t, err)
	assert.Equal(t, GenerationLegacy, gen)
}

func TestEncode_TwoStreams(t *testing.T) {
	streams := RebuiltStreams{
		System:   testutil.NewDump(1024).Pattern(0, 1024).Bytes(),
		Graphics: testutil.Untagged(256).Pattern(0, 256).Bytes(),
	}

	out, err := NewEncoder(nil).Encode(streams, GenerationNext)
	require.NoError(t, err)

	c, err := DecodeContainer(out)
	require.NoError(t, err)
	assert.Equal(t, streams.System, c.System)
	assert.Equal(t, streams.Graphics, c.Graphics)
	assert.Equal(t, len(out), HeaderSize+c.CompressedSystem+c.CompressedGraphics)
	assert.Equal(t, VersionNext, VersionFromFlags(c.Header.SystemFlags, c.Header.GraphicsFlags))
}

func TestEncode_Deterministic(t *testing.T) {
	rebuilt := rebuildDump(t, testutil.LinkedDump())
	enc := NewEncoder(nil)

	first, err := enc.Encode(rebuilt.Streams, GenerationNext)
	require.NoError(t, err)
	second, err := enc.Encode(rebuilt.Streams, GenerationNext)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEncodeOpaque(t *testing.T) {
	dump := testutil.LinkedDump()
	out, err := NewEncoder(compression.Container()).EncodeOpaque(dump, GenerationLegacy)
	require.NoError(t, err)

	c, err := DecodeContainer(out)
	require.NoError(t, err)
	assert.Equal(t, dump, c.System, "opaque payload keeps dead data and raw pointers")
}

func TestEncode_CompressorFailure(t *testing.T) {
	_, err := NewEncoder(failingCompressor{}).Encode(RebuiltStreams{System: []byte("x")}, GenerationLegacy)
	require.Error(t, err)
	assert.True(t, apperrors.IsEncodingFailed(err))
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestDecodeContainer_Errors(t *testing.T) {
	_, err := DecodeContainer(testutil.RootOnlyDump())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err))

	head, err := ContainerHeader{Magic: MagicValue, Version: VersionLegacy}.MarshalBinary()
	require.NoError(t, err)
	_, err = DecodeContainer(append(head, 0xFF, 0xFF, 0xFF))
	assert.Error(t, err)
}
