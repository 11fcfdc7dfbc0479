package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rsc-forge/internal/convert"
	"github.com/rsc-forge/internal/resource"
	apperrors "github.com/rsc-forge/pkg/errors"
)

var (
	convertInput      string
	convertOutput     string
	convertGeneration string
)

// maxListedWarnings bounds how many unpatched pointer sites are printed.
const maxListedWarnings = 10

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a raw fragment dump into a compressed container",
	Long: `Convert reads a raw fragment dump and writes a compressed RSC7 container.

The output defaults to the input path with its extension replaced by .rsc.
Inputs that already are containers are left alone.`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertInput, "input", "i", "", "Input dump file (required)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output container file")
	convertCmd.Flags().StringVarP(&convertGeneration, "generation", "g", "legacy", "Target generation: legacy or next")
	convertCmd.MarkFlagRequired("input")
}

func runConvert(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	dump, err := os.ReadFile(convertInput)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	opts, err := convert.OptionsFromConfig(appConfig)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("generation") {
		gen, err := resource.ParseGeneration(convertGeneration)
		if err != nil {
			return err
		}
		opts.Generation = gen
	}

	conv, err := convert.NewFromConfig(appConfig, convert.WithLogger(logger))
	if err != nil {
		return err
	}

	result, err := conv.ToCompressedContainer(cmd.Context(), dump, opts)
	if apperrors.IsAlreadyCompressed(err) {
		fmt.Fprintf(out, "%s is already a compressed container; nothing to do\n", convertInput)
		return nil
	}
	if err != nil {
		return err
	}

	target := convertOutput
	if target == "" {
		target = strings.TrimSuffix(convertInput, filepath.Ext(convertInput)) + ".rsc"
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(target, result.Container, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Fprintf(out, "Converted %s -> %s\n", convertInput, target)
	fmt.Fprintf(out, "  Tier:       %s\n", result.Tier)
	fmt.Fprintf(out, "  Generation: %s\n", result.Generation)
	fmt.Fprintf(out, "  Size:       %d -> %d bytes\n", result.InputSize, len(result.Container))
	for _, a := range result.Attempts {
		fmt.Fprintf(out, "  Tier failed: %s\n", a)
	}

	if incomplete := result.Incomplete(); incomplete != nil {
		fmt.Fprintf(out, "  Warning: %d pointer site(s) not relocated\n", len(result.Warnings))
		for i, w := range result.Warnings {
			if i == maxListedWarnings {
				fmt.Fprintf(out, "    ... and %d more\n", len(result.Warnings)-maxListedWarnings)
				break
			}
			fmt.Fprintf(out, "    %s\n", w)
		}
	}
	return nil
}
