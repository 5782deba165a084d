package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FretLab/core/peaks"
	"FretLab/model"
	"FretLab/storage"
)

// peaksCmd regenerates peak envelopes for a lesson, or for one stem file on
// disk, without starting the server. Useful after tuning the envelope
// resolution.
var peaksCmd = &cobra.Command{
	Use:   "peaks <lessonID> [file]",
	Short: "Generate waveform peak envelopes",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := peaks.NewGenerator(cfg)
		ctx := context.Background()

		if len(args) == 2 {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			summary, err := gen.Generate(ctx, f)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d points at %d/s\n", args[1], len(summary.Data), summary.PointsPerSecond)
			return nil
		}

		if err := storage.InitMinio(cfg); err != nil {
			return err
		}

		lessonID := args[0]
		for _, track := range []string{model.TrackGuitar, model.TrackVocals} {
			obj, err := storage.GetAudio(ctx, lessonID, track)
			if err != nil {
				return fmt.Errorf("fetch %s stem: %w", track, err)
			}

			summary, err := gen.Generate(ctx, obj)
			obj.Close()
			if err != nil {
				return fmt.Errorf("generate %s peaks: %w", track, err)
			}

			raw, err := json.Marshal(summary)
			if err != nil {
				return err
			}
			if err := storage.UploadPeaks(ctx, lessonID, track, raw); err != nil {
				return fmt.Errorf("store %s peaks: %w", track, err)
			}
			fmt.Printf("%s/%s: %d points at %d/s\n", lessonID, track, len(summary.Data), summary.PointsPerSecond)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(peaksCmd)
}
