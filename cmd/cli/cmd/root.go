package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsc-forge/pkg/config"
	"github.com/rsc-forge/pkg/telemetry"
	"github.com/rsc-forge/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger    utils.Logger = &utils.NullLogger{}
	appConfig              = config.Default()

	shutdownTelemetry telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rsc-forge",
	Short: "Convert raw resource fragment dumps into compressed containers",
	Long: `rsc-forge converts raw in-memory resource fragment dumps into the
compressed RSC7 container format consumed by the game engine.

Conversion tries three tiers in order: a structural round trip through an
external loader, a heuristic pointer-relocating rebuild, and an opaque
fallback that stores the dump as a single system blob.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Conversion.Verbose = true
		}
		appConfig = cfg

		l, err := newLogger(cfg, cmd)
		if err != nil {
			return err
		}
		logger = l

		tcfg := telemetry.FromConfig(cfg.Telemetry)
		if tcfg.ServiceVersion == "" || tcfg.ServiceVersion == "unknown" {
			tcfg.ServiceVersion = Version
		}
		shutdown, err := telemetry.Init(cmd.Context(), tcfg)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		shutdownTelemetry = shutdown
		if telemetry.Enabled() {
			logger.Debug("Tracing enabled (%s, %s)", tcfg.Protocol, tcfg.Endpoint)
		}
		return nil
	},
}

func newLogger(cfg *config.Config, cmd *cobra.Command) (utils.Logger, error) {
	level := utils.ParseLogLevel(cfg.Log.Level)
	if verbose {
		level = utils.LevelDebug
	}
	if cfg.Log.OutputPath != "" {
		return utils.NewFileLogger(level, cfg.Log.OutputPath)
	}
	return utils.NewDefaultLogger(level, cmd.ErrOrStderr()), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	flushTelemetry()
	if err != nil {
		os.Exit(1)
	}
}

func flushTelemetry() {
	if shutdownTelemetry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTelemetry(ctx); err != nil {
		logger.Warn("Failed to flush traces: %v", err)
	}
	shutdownTelemetry = nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and phase timings")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: ./rsc-forge.yaml)")

	binName := BinName()
	rootCmd.Example = `  # Convert a dump next to the input (writes model.rsc)
  ` + binName + ` convert -i ./model.ydr

  # Convert for the next-generation engine
  ` + binName + ` convert -i ./model.ydr -o ./out/model.rsc --generation next

  # Show the memory map of a dump and save it as a report
  ` + binName + ` inspect -i ./model.ydr --report ./model.map.json.zst

  # Convert everything under a storage prefix
  ` + binName + ` batch --prefix dumps/ --out-prefix containers/ --workers 8`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
