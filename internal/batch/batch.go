// Package batch converts every dump under a storage prefix and records
// each outcome in the conversion ledger.
package batch

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/rsc-forge/internal/convert"
	"github.com/rsc-forge/internal/repository"
	"github.com/rsc-forge/internal/storage"
	"github.com/rsc-forge/pkg/config"
	apperrors "github.com/rsc-forge/pkg/errors"
	"github.com/rsc-forge/pkg/parallel"
	"github.com/rsc-forge/pkg/utils"
)

// Converter is the conversion entry point the service drives.
type Converter interface {
	ToCompressedContainer(ctx context.Context, dump []byte, opts convert.Options) (*convert.Result, error)
}

// Config controls a batch run.
type Config struct {
	InputPrefix  string
	OutputPrefix string
	OutputSuffix string
	Workers      int
	Options      convert.Options
}

// ConfigFromConfig builds a batch Config from the batch and conversion
// sections.
func ConfigFromConfig(cfg *config.Config) (Config, error) {
	opts, err := convert.OptionsFromConfig(cfg)
	if err != nil {
		return Config{}, err
	}
	return Config{
		InputPrefix:  cfg.Batch.InputPrefix,
		OutputPrefix: cfg.Batch.OutputPrefix,
		OutputSuffix: cfg.Batch.OutputSuffix,
		Workers:      cfg.Batch.Workers,
		Options:      opts,
	}, nil
}

// OutputKey maps an input key to its container key: the input prefix is
// replaced by the output prefix and the extension by the output suffix.
func (c Config) OutputKey(inputKey string) string {
	rel := strings.TrimPrefix(inputKey, c.InputPrefix)
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	return c.OutputPrefix + rel + c.OutputSuffix
}

// FileResult is the outcome for one input object.
type FileResult struct {
	InputKey   string
	OutputKey  string
	Status     repository.ConversionStatus
	Tier       convert.TierName
	InputSize  int
	OutputSize int
	Warnings   int
	Err        error
	Duration   time.Duration
}

// Summary is the outcome of a batch run. Files is in listing order and
// excludes inputs never started because the context ended.
type Summary struct {
	Files     []FileResult
	Converted int
	Skipped   int
	Failed    int
	Cancelled int
	Elapsed   time.Duration
}

// Service runs batch conversions.
type Service struct {
	conv   Converter
	store  storage.Storage
	ledger repository.ConversionRepository
	cfg    Config
	logger utils.Logger
	clock  utils.Clock
}

// Option configures a Service.
type Option func(*Service)

// WithLedger records every processed input in repo.
func WithLedger(repo repository.ConversionRepository) Option {
	return func(s *Service) { s.ledger = repo }
}

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock sets the clock used for durations.
func WithClock(clock utils.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// New creates a Service reading from and writing to store.
func New(conv Converter, store storage.Storage, cfg Config, opts ...Option) *Service {
	s := &Service{
		conv:  conv,
		store: store,
		cfg:   cfg,
		clock: utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNull(s.logger)
	return s
}

// Run converts every object under the input prefix, one object per
// worker. Cancellation is observed between objects; the summary of the
// objects already processed is returned together with the context error.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	start := s.clock.Now()

	keys, err := s.store.List(ctx, s.cfg.InputPrefix)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "failed to list inputs", err)
	}
	s.logger.Info("Batch: %d input(s) under %q", len(keys), s.cfg.InputPrefix)

	poolCfg := parallel.DefaultConfig().WithProgress(func(done, total int) {
		s.logger.Debug("Batch progress: %d/%d", done, total)
	})
	if s.cfg.Workers > 0 {
		poolCfg = poolCfg.WithWorkers(s.cfg.Workers)
	}
	pool := parallel.NewPool[string, FileResult](poolCfg)
	results := pool.Run(ctx, keys, s.convertOne)

	summary := &Summary{}
	for _, r := range results {
		if r.Skipped {
			summary.Cancelled++
			continue
		}
		fr := r.Value
		switch fr.Status {
		case repository.StatusConverted:
			summary.Converted++
		case repository.StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		summary.Files = append(summary.Files, fr)
	}
	summary.Elapsed = s.clock.Since(start)

	s.logger.Info("Batch done: %d converted, %d skipped, %d failed, %d cancelled in %v",
		summary.Converted, summary.Skipped, summary.Failed, summary.Cancelled, summary.Elapsed)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Service) convertOne(ctx context.Context, key string) (FileResult, error) {
	begin := s.clock.Now()
	fr := FileResult{InputKey: key}
	log := s.logger.WithField("key", key)

	var result *convert.Result
	fr.Err = func() error {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			return err
		}
		fr.InputSize = len(data)

		result, err = s.conv.ToCompressedContainer(ctx, data, s.cfg.Options)
		if err != nil {
			return err
		}

		fr.OutputKey = s.cfg.OutputKey(key)
		if err := s.store.Put(ctx, fr.OutputKey, result.Container); err != nil {
			return err
		}
		fr.Tier = result.Tier
		fr.OutputSize = len(result.Container)
		fr.Warnings = len(result.Warnings)
		return nil
	}()
	fr.Duration = s.clock.Since(begin)

	switch {
	case fr.Err == nil:
		fr.Status = repository.StatusConverted
		log.Info("Converted via %s tier -> %s", fr.Tier, fr.OutputKey)
	case apperrors.IsAlreadyCompressed(fr.Err):
		fr.Status = repository.StatusSkipped
		fr.OutputKey = ""
		fr.Err = nil
		log.Info("Skipped: already a container")
	default:
		fr.Status = repository.StatusFailed
		fr.OutputKey = ""
		log.Error("Conversion failed: %v", fr.Err)
	}

	s.record(ctx, fr, result)
	return fr, fr.Err
}

func (s *Service) record(ctx context.Context, fr FileResult, result *convert.Result) {
	if s.ledger == nil {
		return
	}

	rec := &repository.ConversionRecord{
		InputKey:   fr.InputKey,
		OutputKey:  fr.OutputKey,
		Status:     fr.Status,
		Tier:       string(fr.Tier),
		Generation: s.cfg.Options.Generation.String(),
		InputSize:  fr.InputSize,
		OutputSize: fr.OutputSize,
		Warnings:   fr.Warnings,
		Duration:   fr.Duration,
	}
	if result != nil {
		for _, a := range result.Attempts {
			rec.FailedTiers = append(rec.FailedTiers, a.String())
		}
	}
	if fr.Err != nil {
		rec.ErrorCode = apperrors.GetErrorCode(fr.Err)
		rec.ErrorMessage = fr.Err.Error()
	}

	// The ledger must outlive a cancelled run.
	if err := s.ledger.SaveRecord(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("Failed to record %s in ledger: %v", fr.InputKey, err)
	}
}
