package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsc-forge/internal/convert"
	"github.com/rsc-forge/internal/report"
	"github.com/rsc-forge/internal/resource"
)

var (
	inspectInput  string
	inspectReport string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Describe a dump's memory map or a container's header",
	Long: `Inspect prints the memory map discovered in a raw dump, or the header and
stream sizes of a compressed container.

With --report, the memory map of a dump is also written as JSON compressed
with the configured report codec (report.compression, zstd by default).`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectInput, "input", "i", "", "Dump or container file (required)")
	inspectCmd.Flags().StringVar(&inspectReport, "report", "", "Write the memory map report to this file")
	inspectCmd.MarkFlagRequired("input")
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(inspectInput)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if resource.Detect(data) == resource.FormatCompressedContainer {
		if inspectReport != "" {
			return fmt.Errorf("a map report needs a raw dump, %s is a container", inspectInput)
		}
		return printContainer(cmd, data)
	}

	conv, err := convert.NewFromConfig(appConfig, convert.WithLogger(logger))
	if err != nil {
		return err
	}
	m, err := conv.Analyze(cmd.Context(), data)
	if err != nil {
		return err
	}
	printMemoryMap(cmd, m)

	if inspectReport == "" {
		return nil
	}

	w, err := report.NewWriter(appConfig.Report.Compression)
	if err != nil {
		return err
	}
	defer w.Close()

	stats, err := w.WriteFile(report.Build(filepath.Base(inspectInput), m, time.Now()), inspectReport)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%s, %d -> %d bytes)\n",
		inspectReport, stats.Codec, stats.JSONSize, stats.CompressedSize)
	return nil
}

func printMemoryMap(cmd *cobra.Command, m *resource.MemoryMap) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dump: %s (%d bytes)\n", inspectInput, m.DumpSize)
	for _, w := range []resource.Window{resource.WindowSystem, resource.WindowGraphics} {
		fmt.Fprintf(out, "  %-8s %4d region(s), %d bytes\n", w, m.RegionCount(w), m.CoveredBytes(w))
	}
	fmt.Fprintf(out, "  Pointers: %d (%d unresolvable)\n", len(m.Pointers), len(m.Unresolvable))

	if !verbose {
		return
	}
	for _, r := range m.Regions {
		fmt.Fprintf(out, "    %-8s 0x%08x  offset %-8d size %-8d stream %d\n",
			r.Window, r.OriginalAddress, r.FileOffset(), r.Size, r.NewOffset)
	}
}

func printContainer(cmd *cobra.Command, data []byte) error {
	c, err := resource.DecodeContainer(data)
	if err != nil {
		return err
	}
	gen, err := c.Generation()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Container: %s (%d bytes)\n", inspectInput, len(data))
	fmt.Fprintf(out, "  Version:    %d (%s)\n", c.Header.Version, gen)
	fmt.Fprintf(out, "  System:     flags 0x%08x, %d compressed, %d bytes\n",
		c.Header.SystemFlags, c.CompressedSystem, len(c.System))
	fmt.Fprintf(out, "  Graphics:   flags 0x%08x, %d compressed, %d bytes\n",
		c.Header.GraphicsFlags, c.CompressedGraphics, len(c.Graphics))
	return nil
}
