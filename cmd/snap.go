package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/goober/internal/capture"
	"github.com/spf13/cobra"
)

var (
	snapSource SourceOptions
	snapWarmup time.Duration
)

var snapCmd = &cobra.Command{
	Use:     "snap",
	Aliases: []string{"save"},
	Short:   "Capture one frame and save it as a photo",
	Annotations: map[string]string{
		journalAnnotation: journalOptional,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnap(cmd.Context())
	},
}

func init() {
	addSourceFlags(snapCmd, &snapSource)
	snapCmd.Flags().DurationVarP(&snapWarmup, "warmup", "w", 500*time.Millisecond, "Let the camera settle (exposure, focus) before capturing")
	rootCmd.AddCommand(snapCmd)
}

func runSnap(ctx context.Context) error {
	cam, source := newCamera(snapSource)
	board := newBoard(os.Stdout)

	session := startSession(ctx, source)
	defer endSession(session)

	opts := []capture.Option{capture.WithTimeout(cfg.API.RequestTimeout)}
	if session != nil {
		opts = append(opts, capture.WithRecorder(session))
	}
	ctrl := capture.New(cam, newClient(), board, opts...)

	if err := ctrl.AcquireStream(ctx); err != nil {
		return acquireErr(err)
	}
	defer ctrl.Stop()

	if snapSource.Image == "" && snapWarmup > 0 {
		select {
		case <-time.After(snapWarmup):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	res, err := ctrl.SavePhoto(ctx)
	if err != nil {
		return reported(err)
	}
	fmt.Printf("📸 Photo %d stored as %s\n", res.PhotoID, res.Filename)
	return nil
}
