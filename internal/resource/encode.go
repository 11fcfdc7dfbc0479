package resource

import (
	"fmt"

	"github.com/rsc-forge/pkg/compression"
	apperrors "github.com/rsc-forge/pkg/errors"
)

// Encoder compresses rebuilt streams into a container.
type Encoder struct {
	compressor compression.Compressor
}

// NewEncoder creates an Encoder. A nil compressor selects the container
// codec (raw deflate, best compression).
func NewEncoder(c compression.Compressor) *Encoder {
	if c == nil {
		c = compression.Container()
	}
	return &Encoder{compressor: c}
}

// Encode writes header, compressed system stream and, when present, the
// compressed graphics stream.
func (e *Encoder) Encode(streams RebuiltStreams, gen Generation) ([]byte, error) {
	sys, err := e.compressor.Compress(streams.System)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEncodingFailed, "failed to compress system stream", err)
	}

	var gfx []byte
	if len(streams.Graphics) > 0 {
		gfx, err = e.compressor.Compress(streams.Graphics)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeEncodingFailed, "failed to compress graphics stream", err)
		}
	}

	header, err := NewContainerHeader(gen.Version(), len(sys), len(gfx))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEncodingFailed, "failed to build header", err)
	}
	head, err := header.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEncodingFailed, "failed to marshal header", err)
	}

	out := make([]byte, 0, len(head)+len(sys)+len(gfx))
	out = append(out, head...)
	out = append(out, sys...)
	out = append(out, gfx...)
	return out, nil
}

// EncodeOpaque stores dump verbatim as the system stream.
func (e *Encoder) EncodeOpaque(dump []byte, gen Generation) ([]byte, error) {
	return e.Encode(RebuiltStreams{System: dump}, gen)
}

// Container is a decoded container.
type Container struct {
	Header   ContainerHeader
	System   []byte
	Graphics []byte
	// CompressedSystem and CompressedGraphics are the payload lengths.
	CompressedSystem   int
	CompressedGraphics int
}

// Generation maps the header version back to a generation.
func (c *Container) Generation() (Generation, error) {
	switch c.Header.Version {
	case VersionLegacy:
		return GenerationLegacy, nil
	case VersionNext:
		return GenerationNext, nil
	default:
		return GenerationLegacy, fmt.Errorf("unknown container version %d", c.Header.Version)
	}
}

// DecodeContainer parses buf and inflates its payload streams. Only the
// raw deflate payloads written by the default encoder are understood.
func DecodeContainer(buf []byte) (*Container, error) {
	header, err := ParseHeader(buf)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "not a container", err)
	}

	payload := buf[HeaderSize:]
	sys, n, err := compression.InflateStream(payload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "corrupt system stream", err)
	}
	c := &Container{Header: header, System: sys, CompressedSystem: n}

	rest := payload[n:]
	if len(rest) > 0 {
		gfx, m, err := compression.InflateStream(rest)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "corrupt graphics stream", err)
		}
		c.Graphics = gfx
		c.CompressedGraphics = m
	}
	return c, nil
}
