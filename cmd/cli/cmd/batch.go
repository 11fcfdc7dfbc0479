package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rsc-forge/internal/batch"
	"github.com/rsc-forge/internal/convert"
	"github.com/rsc-forge/internal/repository"
	"github.com/rsc-forge/internal/storage"
)

var (
	batchPrefix    string
	batchOutPrefix string
	batchWorkers   int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Convert every dump under a storage prefix",
	Long: `Batch lists the configured storage (local directory or COS bucket) under a
prefix, converts each object on a worker pool and writes the containers
under the output prefix. Containers found among the inputs are skipped.

When database.enabled is set, every outcome is recorded in the
conversion ledger.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchPrefix, "prefix", "", "Input key prefix (default: batch.input_prefix)")
	batchCmd.Flags().StringVar(&batchOutPrefix, "out-prefix", "", "Output key prefix (default: batch.output_prefix)")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Concurrent conversions (default: batch.workers)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	bcfg, err := batch.ConfigFromConfig(appConfig)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("prefix") {
		bcfg.InputPrefix = batchPrefix
	}
	if cmd.Flags().Changed("out-prefix") {
		bcfg.OutputPrefix = batchOutPrefix
	}
	if cmd.Flags().Changed("workers") {
		if batchWorkers < 1 {
			return fmt.Errorf("--workers must be at least 1")
		}
		bcfg.Workers = batchWorkers
	}

	store, err := storage.New(&appConfig.Storage)
	if err != nil {
		return err
	}

	conv, err := convert.NewFromConfig(appConfig, convert.WithLogger(logger))
	if err != nil {
		return err
	}

	opts := []batch.Option{batch.WithLogger(logger)}
	if appConfig.Database.Enabled {
		repos, err := repository.Open(ctx, &appConfig.Database)
		if err != nil {
			return fmt.Errorf("failed to open conversion ledger: %w", err)
		}
		defer repos.Close()
		opts = append(opts, batch.WithLedger(repos.Conversions))
	}

	summary, runErr := batch.New(conv, store, bcfg, opts...).Run(ctx)
	if summary != nil {
		printBatchSummary(cmd, summary)
	}
	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d input(s) failed", summary.Failed, len(summary.Files))
	}
	return nil
}

func printBatchSummary(cmd *cobra.Command, s *batch.Summary) {
	out := cmd.OutOrStdout()
	for _, f := range s.Files {
		switch f.Status {
		case repository.StatusFailed:
			fmt.Fprintf(out, "  FAIL  %s: %v\n", f.InputKey, f.Err)
		case repository.StatusSkipped:
			fmt.Fprintf(out, "  SKIP  %s\n", f.InputKey)
		default:
			fmt.Fprintf(out, "  OK    %s -> %s (%s)\n", f.InputKey, f.OutputKey, f.Tier)
		}
	}
	fmt.Fprintf(out, "%d converted, %d skipped, %d failed, %d cancelled in %v\n",
		s.Converted, s.Skipped, s.Failed, s.Cancelled, s.Elapsed)
}
