package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"stitcher/internal/pipeline"
	"stitcher/internal/segmentation"
	"stitcher/internal/srt"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plan <audio.wav>",
		Short: "Show where the segmenter would cut, without dispatching anything",
		Args:  cobra.ExactArgs(1),
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

			plan, pauses, err := p.Plan(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				payload := struct {
					CutPointsMs []int64 `json:"cut_points_ms"`
					Pauses      int     `json:"pauses"`
				}{CutPointsMs: plan, Pauses: len(pauses)}
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(payload)
			}

			boundaries := 0
			for _, pause := range pauses {
				if pause.Class == segmentation.SentenceBoundary {
					boundaries++
				}
			}
			fmt.Fprintf(out, "%d pauses detected (%d sentence boundaries), %d chunks planned\n\n",
				len(pauses), boundaries, len(plan)-1)

			rows := make([][]string, 0, len(plan)-1)
			for i := 0; i < len(plan)-1; i++ {
				startSec := float64(plan[i]) / 1000
				endSec := float64(plan[i+1]) / 1000
				rows = append(rows, []string{
					fmt.Sprintf("%d", i),
					srt.FormatTimestamp(startSec),
					srt.FormatTimestamp(endSec),
					fmt.Sprintf("%.1fs", endSec-startSec),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Chunk", "Start", "End", "Length"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the plan as JSON")
	return cmd
}
