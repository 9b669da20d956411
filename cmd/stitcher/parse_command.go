package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stitcher/internal/srt"
)

func newParseCommand() *cobra.Command {
	var check bool
	var mediaSeconds float64

	cmd := &cobra.Command{
		Use:         "parse <subtitles.srt>",
		Short:       "Parse an SRT file and report its cues or format issues",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if check {
				issues := srt.ValidateContent(args[0], mediaSeconds)
				if len(issues) == 0 {
					fmt.Fprintln(out, "OK")
					return nil
				}
				for _, issue := range issues {
					fmt.Fprintln(out, issue)
				}
				return fmt.Errorf("%d issue(s) found", len(issues))
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read srt: %w", err)
			}
			cues, err := srt.Parse(data)
			if err != nil {
				return err
			}

			last := 0.0
			for _, cue := range cues {
				if cue.End > last {
					last = cue.End
				}
			}
			fmt.Fprintf(out, "%d cues, last ends at %s\n", len(cues), srt.FormatTimestamp(last))
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Validate the file instead of summarizing it")
	cmd.Flags().Float64Var(&mediaSeconds, "media-seconds", 0, "Known media duration for the duration alignment check")
	return cmd
}
