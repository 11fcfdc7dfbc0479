// Package convert turns raw fragment dumps into compressed resource
// containers through a fallback ladder of conversion tiers.
//
// Tiers run in order (structural, heuristic, opaque); the first success
// wins and later tiers are never tried. Every call owns its own state, so
// one Converter may serve concurrent conversions.
package convert

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rsc-forge/internal/resource"
	"github.com/rsc-forge/pkg/compression"
	"github.com/rsc-forge/pkg/config"
	apperrors "github.com/rsc-forge/pkg/errors"
	"github.com/rsc-forge/pkg/telemetry"
	"github.com/rsc-forge/pkg/utils"
)

// Options are the per-call conversion options.
type Options struct {
	Generation resource.Generation
	// Verbose records phase timings and logs a summary. It never changes
	// the produced bytes.
	Verbose bool
}

// Result is a successful conversion.
type Result struct {
	Container  []byte
	Tier       TierName
	Generation resource.Generation
	InputSize  int
	// Attempts lists the tiers that failed before Tier succeeded.
	Attempts []Attempt
	Warnings []resource.RelocationWarning
	// Map is set when the heuristic tier produced the container.
	Map *resource.MemoryMap
	// Phases holds timings when Options.Verbose is set.
	Phases []utils.Phase
}

// Incomplete returns a RelocationIncomplete error describing unpatched
// pointer sites, or nil. The container is usable either way.
func (r *Result) Incomplete() error {
	if len(r.Warnings) == 0 {
		return nil
	}
	return apperrors.Newf(apperrors.CodeRelocationIncomplete,
		"%d pointer sites not relocated; first: %s", len(r.Warnings), r.Warnings[0])
}

// Converter runs conversions. The zero value is not usable; call New.
type Converter struct {
	codec      StructuralCodec
	compressor compression.Compressor
	detect     resource.DetectOptions
	tiers      []TierName
	logger     utils.Logger
	tracer     trace.Tracer
	clock      utils.Clock
}

// Option configures a Converter.
type Option func(*Converter)

// WithStructuralCodec sets the external structural loader and saver.
func WithStructuralCodec(codec StructuralCodec) Option {
	return func(c *Converter) { c.codec = codec }
}

// WithCompressor replaces the container payload codec.
func WithCompressor(comp compression.Compressor) Option {
	return func(c *Converter) { c.compressor = comp }
}

// WithDetectOptions sets the fingerprint scan used for untagged dumps.
func WithDetectOptions(opts resource.DetectOptions) Option {
	return func(c *Converter) { c.detect = opts }
}

// WithTiers restricts and orders the ladder.
func WithTiers(tiers ...TierName) Option {
	return func(c *Converter) { c.tiers = tiers }
}

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(c *Converter) { c.logger = logger }
}

// WithTracerProvider sets where spans go; default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Converter) { c.tracer = telemetry.Tracer(tp) }
}

// WithClock sets the clock used for phase timings.
func WithClock(clock utils.Clock) Option {
	return func(c *Converter) { c.clock = clock }
}

// New creates a Converter.
func New(opts ...Option) *Converter {
	c := &Converter{
		detect: resource.DefaultDetectOptions(),
		tiers:  DefaultTiers,
		clock:  utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNull(c.logger)
	if c.compressor == nil {
		c.compressor = compression.Container()
	}
	if c.tracer == nil {
		c.tracer = telemetry.Tracer(nil)
	}
	return c
}

// NewFromConfig creates a Converter from the conversion and detection
// sections. Explicit options are applied afterwards.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Converter, error) {
	tiers, err := ParseTiers(cfg.Conversion.Tiers)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithTiers(tiers...),
		WithDetectOptions(resource.DetectOptions{
			FingerprintScanLimit: cfg.Detection.FingerprintScanLimit,
			Fingerprints:         cfg.Detection.Fingerprints,
		}),
	}
	return New(append(base, opts...)...), nil
}

// OptionsFromConfig returns the per-call options configured in cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	gen, err := resource.ParseGeneration(cfg.Conversion.Generation)
	if err != nil {
		return Options{}, apperrors.Wrap(apperrors.CodeConfigError, "invalid generation", err)
	}
	return Options{Generation: gen, Verbose: cfg.Conversion.Verbose}, nil
}

// Tiers returns the configured ladder.
func (c *Converter) Tiers() []TierName {
	out := make([]TierName, len(c.tiers))
	copy(out, c.tiers)
	return out
}

func (c *Converter) buildTiers() []Tier {
	enc := resource.NewEncoder(c.compressor)
	tiers := make([]Tier, 0, len(c.tiers))
	for _, name := range c.tiers {
		switch name {
		case TierStructural:
			tiers = append(tiers, &structuralTier{codec: c.codec})
		case TierHeuristic:
			tiers = append(tiers, &heuristicTier{encoder: enc})
		case TierOpaque:
			tiers = append(tiers, &opaqueTier{encoder: enc})
		}
	}
	return tiers
}

// gate applies the size limits and format detection shared by every
// entry point. Containers are reported as AlreadyCompressed.
func (c *Converter) gate(dump []byte) error {
	if err := resource.ValidateSize(dump); err != nil {
		return err
	}
	switch resource.DetectWith(dump, c.detect) {
	case resource.FormatRawDump:
		return nil
	case resource.FormatCompressedContainer:
		return apperrors.New(apperrors.CodeAlreadyCompressed, "input is already a compressed container")
	default:
		return apperrors.New(apperrors.CodeUnrecognizedHeader, "input is not a fragment dump")
	}
}

// ToCompressedContainer converts dump into a container. On success the
// result may still carry relocation warnings; see Result.Incomplete.
func (c *Converter) ToCompressedContainer(ctx context.Context, dump []byte, opts Options) (result *Result, err error) {
	ctx, span := c.tracer.Start(ctx, "convert.ToCompressedContainer", trace.WithAttributes(
		attribute.Int("input.size", len(dump)),
		attribute.String("generation", opts.Generation.String()),
	))
	defer func() {
		var attrs []attribute.KeyValue
		if result != nil {
			attrs = append(attrs,
				attribute.String("tier", string(result.Tier)),
				attribute.Int("output.size", len(result.Container)),
				attribute.Int("warnings", len(result.Warnings)),
			)
		} else {
			attrs = append(attrs, attribute.String("error.code", apperrors.GetErrorCode(err)))
		}
		telemetry.EndSpan(span, err, attrs...)
	}()

	timer := utils.NewTimer("convert",
		utils.WithLogger(c.logger),
		utils.WithEnabled(opts.Verbose),
		utils.WithClock(c.clock),
	)
	if err := timer.Time("detect", func() error { return c.gate(dump) }); err != nil {
		return nil, err
	}

	in := &Input{Dump: dump, Generation: opts.Generation, timer: timer}
	out, tier, attempts, err := runLadder(ctx, c.buildTiers(), in, c.traceTier)
	for _, a := range attempts {
		c.logger.Debug("Tier %s failed: %v", a.Tier, a.Err)
	}
	if err != nil {
		c.logger.Error("Conversion failed: %v", err)
		return nil, err
	}

	result = &Result{
		Container:  out.Container,
		Tier:       tier,
		Generation: opts.Generation,
		InputSize:  len(dump),
		Attempts:   attempts,
		Warnings:   out.Warnings,
		Map:        out.Map,
	}
	if len(attempts) > 0 {
		c.logger.Warn("Converted via %s tier after %d failed tier(s)", tier, len(attempts))
	} else {
		c.logger.Info("Converted via %s tier (%d -> %d bytes)", tier, len(dump), len(out.Container))
	}
	if incomplete := result.Incomplete(); incomplete != nil {
		c.logger.Warn("%v", incomplete)
	}
	if opts.Verbose {
		result.Phases = timer.Phases()
		timer.PrintSummary()
	}
	return result, nil
}

func (c *Converter) traceTier(ctx context.Context, tier TierName, run func(context.Context) (*Output, error)) (*Output, error) {
	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("convert.tier.%s", tier))
	out, err := run(ctx)

	var attrs []attribute.KeyValue
	if out != nil && out.Map != nil {
		attrs = append(attrs,
			attribute.Int("regions", len(out.Map.Regions)),
			attribute.Int("pointers", len(out.Map.Pointers)),
			attribute.Int("warnings", len(out.Warnings)),
		)
	}
	telemetry.EndSpan(span, err, attrs...)
	return out, err
}

// ToStructuralForm loads dump through the structural codec.
func (c *Converter) ToStructuralForm(ctx context.Context, dump []byte) (StructuralModel, error) {
	ctx, span := c.tracer.Start(ctx, "convert.ToStructuralForm",
		trace.WithAttributes(attribute.Int("input.size", len(dump))))

	model, err := func() (StructuralModel, error) {
		if err := c.gate(dump); err != nil {
			return nil, err
		}
		return loadStructural(ctx, c.codec, dump)
	}()
	telemetry.EndSpan(span, err)
	return model, err
}

// Analyze builds the memory map of dump without encoding it. Regions carry
// the stream offsets the heuristic tier would assign.
func (c *Converter) Analyze(ctx context.Context, dump []byte) (*resource.MemoryMap, error) {
	_, span := c.tracer.Start(ctx, "convert.Analyze",
		trace.WithAttributes(attribute.Int("input.size", len(dump))))

	if err := c.gate(dump); err != nil {
		telemetry.EndSpan(span, err)
		return nil, err
	}
	m := resource.BuildMemoryMap(dump)
	rebuilt, err := resource.Rebuild(dump, m.Regions, m.Pointers)
	if err != nil {
		err = fmt.Errorf("relocation failed: %w", err)
		telemetry.EndSpan(span, err)
		return nil, err
	}
	m.Regions = rebuilt.Regions
	telemetry.EndSpan(span, nil,
		attribute.Int("regions", len(m.Regions)),
		attribute.Int("pointers", len(m.Pointers)),
	)
	return m, nil
}
