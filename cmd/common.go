package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/andresmejia3/goober/internal/api"
	"github.com/andresmejia3/goober/internal/camera"
	"github.com/andresmejia3/goober/internal/capture"
	"github.com/andresmejia3/goober/internal/confirm"
	"github.com/andresmejia3/goober/internal/gallery"
	"github.com/andresmejia3/goober/internal/journal"
	"github.com/andresmejia3/goober/internal/logger"
	"github.com/andresmejia3/goober/internal/message"
	"github.com/spf13/cobra"
)

// SourceOptions selects where frames come from for live and snap.
type SourceOptions struct {
	Device string
	Format string
	FPS    int
	Size   string
	File   string
	Image  string
}

func addSourceFlags(c *cobra.Command, o *SourceOptions) {
	c.Flags().StringVarP(&o.Device, "device", "d", "", "Camera device (default: $GOOBER_CAMERA_DEVICE or /dev/video0)")
	c.Flags().StringVar(&o.Format, "format", "", "FFmpeg input format (default: v4l2 / avfoundation / dshow by OS)")
	c.Flags().IntVar(&o.FPS, "fps", 0, "Capture frame rate (default: $GOOBER_CAMERA_FPS or 15)")
	c.Flags().StringVar(&o.Size, "size", "", "Capture size, e.g. 640x480")
	c.Flags().StringVarP(&o.File, "file", "f", "", "Use a looping video file instead of a camera")
	c.Flags().StringVar(&o.Image, "image", "", "Use a still image instead of a camera")
	c.MarkFlagsMutuallyExclusive("device", "file", "image")
}

// newCamera resolves flags and config into a frame source and a label for the journal.
func newCamera(o SourceOptions) (capture.Camera, string) {
	switch {
	case o.Image != "":
		return camera.Still{Path: o.Image}, o.Image
	case o.File != "":
		return &camera.FFmpeg{Input: o.File, Loop: true}, o.File
	}

	dev := &camera.FFmpeg{
		Input:  firstNonEmpty(o.Device, cfg.Camera.Device),
		Format: firstNonEmpty(o.Format, cfg.Camera.Format, camera.DefaultFormat()),
		FPS:    cfg.Camera.FPS,
		Size:   firstNonEmpty(o.Size, cfg.Camera.Size),
	}
	if o.FPS > 0 {
		dev.FPS = o.FPS
	}
	return dev, dev.Input
}

func newClient() *api.Client {
	return api.New(cfg.API.URL, cfg.API.RequestTimeout)
}

func newBoard(w io.Writer) *message.Board {
	return message.NewBoard(w, useColor())
}

// startSession opens a journal session when the journal is configured.
// Journal trouble never stops a capture.
func startSession(ctx context.Context, source string) *journal.Session {
	if Journal == nil {
		return nil
	}
	s, err := Journal.StartSession(ctx, source, cfg.API.URL)
	if err != nil {
		logger.Warn("Journal", "cannot start session: %v", err)
		return nil
	}
	logger.Info("Journal", "session %s", s.ID)
	return s
}

func endSession(s *journal.Session) {
	if s == nil {
		return
	}
	// Background: the command context is usually already cancelled here.
	if err := s.End(context.Background()); err != nil {
		logger.Warn("Journal", "cannot close session %s: %v", s.ID, err)
	}
}

// acquireErr keeps ffmpeg failures visible; everything else was already shown on the board.
func acquireErr(err error) error {
	var proc *camera.ProcessError
	if errors.As(err, &proc) {
		return err
	}
	return reported(err)
}

// errNotInteractive stops a destructive command that has nobody to ask.
var errNotInteractive = errors.New("stdin is not a terminal, pass --yes to confirm")

// newConfirmer asks on the terminal unless yes is set.
func newConfirmer(yes bool, in *os.File, out io.Writer) (gallery.Confirmer, error) {
	if yes {
		return confirm.Always(true), nil
	}
	if !confirm.IsInteractive(in) {
		return nil, errNotInteractive
	}
	return confirm.New(in, out), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
