package convert

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rsc-forge/internal/resource"
	apperrors "github.com/rsc-forge/pkg/errors"
)

// StructuralModel is the fully typed object model produced by an external
// loader. The converter never looks inside it.
type StructuralModel any

// StructuralCodec loads dumps into the typed model and saves the model as
// a container. Implementations must treat the dump as read-only.
type StructuralCodec interface {
	Load(ctx context.Context, dump []byte) (StructuralModel, error)
	Save(ctx context.Context, model StructuralModel, gen resource.Generation) ([]byte, error)
}

type structuralTier struct {
	codec StructuralCodec
}

func (t *structuralTier) Name() TierName { return TierStructural }

func (t *structuralTier) Run(ctx context.Context, in *Input) (*Output, error) {
	var model StructuralModel
	err := in.time("load", func() (err error) {
		model, err = loadStructural(ctx, t.codec, in.Dump)
		return err
	})
	if err != nil {
		return nil, err
	}

	var out []byte
	err = in.time("save", func() (err error) {
		out, err = t.codec.Save(ctx, model, in.Generation)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEncodingFailed, "structural save failed", err)
	}
	if !bytes.HasPrefix(out, resource.ContainerMagic[:]) {
		return nil, apperrors.New(apperrors.CodeEncodingFailed, "structural save produced no container")
	}
	return &Output{Container: out}, nil
}

func loadStructural(ctx context.Context, codec StructuralCodec, dump []byte) (StructuralModel, error) {
	if codec == nil {
		return nil, apperrors.New(apperrors.CodeStructuralParseFailed, "no structural loader")
	}
	model, err := codec.Load(ctx, dump)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStructuralParseFailed, "structural load failed", err)
	}
	if model == nil {
		return nil, apperrors.New(apperrors.CodeStructuralParseFailed, "structural loader returned no model")
	}
	return model, nil
}

type heuristicTier struct {
	encoder *resource.Encoder
}

func (t *heuristicTier) Name() TierName { return TierHeuristic }

func (t *heuristicTier) Run(_ context.Context, in *Input) (*Output, error) {
	m := &resource.MemoryMap{DumpSize: len(in.Dump)}
	stop := in.start("scan")
	m.Pointers = resource.ScanPointers(in.Dump)
	stop()

	stop = in.start("derive")
	m.Regions, m.Unresolvable = resource.DeriveRegions(in.Dump, m.Pointers)
	stop()

	var rebuilt *resource.RebuildResult
	err := in.time("rebuild", func() (err error) {
		rebuilt, err = resource.Rebuild(in.Dump, m.Regions, m.Pointers)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("relocation failed: %w", err)
	}
	m.Regions = rebuilt.Regions

	var out []byte
	err = in.time("encode", func() (err error) {
		out, err = t.encoder.Encode(rebuilt.Streams, in.Generation)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Output{Container: out, Warnings: rebuilt.Warnings, Map: m}, nil
}

type opaqueTier struct {
	encoder *resource.Encoder
}

func (t *opaqueTier) Name() TierName { return TierOpaque }

func (t *opaqueTier) Run(_ context.Context, in *Input) (*Output, error) {
	var out []byte
	err := in.time("compress", func() (err error) {
		out, err = t.encoder.EncodeOpaque(in.Dump, in.Generation)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Output{Container: out}, nil
}
