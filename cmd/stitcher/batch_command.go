package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stitcher/internal/pipeline"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var diagnostics bool

	cmd := &cobra.Command{
		Use:   "batch <chunk-dir>",
		Short: "Transcribe a directory of pre-segmented chunk files",
		Long: `Transcribe chunks that were segmented upstream. Files are processed in
name order; the originals are left in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			p, err := pipeline.New(cfg, ctx.ensureLogger())
			if err != nil {
				return err
			}
			defer p.Close()

			result, err := p.RunBatch(cmd.Context(), args[0], diagnostics)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %d cues to %s\n", result.CueCount, result.OutputPath)
			if result.FailedChunks > 0 {
				fmt.Fprintf(out, "Warning: %d of %d chunks failed; their spans have no subtitles\n",
					result.FailedChunks, result.ChunkCount)
			}
			if result.DiagnosticsPath != "" {
				fmt.Fprintf(out, "Diagnostics: %s\n", result.DiagnosticsPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "Write raw per-chunk results as JSON next to the SRT")
	return cmd
}
