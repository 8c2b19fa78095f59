package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/goober/internal/camera"
	"github.com/andresmejia3/goober/internal/capture"
	"github.com/andresmejia3/goober/internal/overlay"
	"github.com/spf13/cobra"
)

var detectOutput string

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Run face detection on a still image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetect(cmd.Context(), args[0])
	},
}

func init() {
	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", "", "Write the image with face boxes drawn to this path")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(ctx context.Context, path string) error {
	board := newBoard(os.Stdout)
	canvas := overlay.NewCanvas(true)
	ctrl := capture.New(camera.Still{Path: path}, newClient(), board,
		capture.WithOverlay(canvas),
		capture.WithTimeout(cfg.API.RequestTimeout),
	)

	if err := ctrl.AcquireStream(ctx); err != nil {
		return reported(err)
	}
	defer ctrl.Stop()

	res, err := ctrl.DetectFaces(ctx)
	if err != nil {
		return reported(err)
	}

	fmt.Println(ctrl.Snapshot().Status)
	if len(res.Faces) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "FACE\tX\tY\tWIDTH\tHEIGHT")
		fmt.Fprintln(w, "----\t-\t-\t-----\t------")
		for i, f := range res.Faces {
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", i+1, f.X, f.Y, f.Width, f.Height)
		}
		w.Flush()
	}

	if detectOutput == "" {
		return nil
	}
	frame, err := ctrl.Frame()
	if err != nil {
		return err
	}
	data, err := canvas.RenderJPEG(frame, capture.JPEGQuality)
	if err != nil {
		return fmt.Errorf("render annotated image: %w", err)
	}
	if err := os.WriteFile(detectOutput, data, 0644); err != nil {
		return err
	}
	fmt.Printf("🖼️  Annotated image written to %s\n", detectOutput)
	return nil
}
