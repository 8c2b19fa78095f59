package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andresmejia3/goober/internal/capture"
	"github.com/andresmejia3/goober/internal/logger"
	"github.com/andresmejia3/goober/internal/metrics"
	"github.com/andresmejia3/goober/internal/overlay"
	"github.com/andresmejia3/goober/internal/preview"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	liveSource   SourceOptions
	liveInterval time.Duration
	livePreview  string
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run live face detection on a camera stream (s = save photo, q = quit)",
	Annotations: map[string]string{
		journalAnnotation: journalOptional,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLive(cmd.Context())
	},
}

func init() {
	addSourceFlags(liveCmd, &liveSource)
	liveCmd.Flags().DurationVarP(&liveInterval, "interval", "n", 0, "Detection interval (default: $GOOBER_DETECT_INTERVAL or 1s)")
	liveCmd.Flags().StringVarP(&livePreview, "preview", "p", "", "Serve an annotated preview on this address, e.g. :8090")
	rootCmd.AddCommand(liveCmd)
}

func runLive(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	interval := cfg.API.DetectInterval
	if liveInterval > 0 {
		interval = liveInterval
	}
	previewAddr := firstNonEmpty(livePreview, cfg.Preview.Addr)

	cam, source := newCamera(liveSource)
	m := metrics.New()
	canvas := overlay.NewCanvas(true)
	spinner := newSpinner(os.Stderr)
	defer spinner.Finish()

	// Raw mode so single keys reach us without Enter.
	var out io.Writer = os.Stdout
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		if state, err := term.MakeRaw(fd); err == nil {
			defer term.Restore(fd, state)
			out = crlfWriter{w: os.Stdout}
		} else {
			logger.Warn("Live", "cannot switch terminal to raw mode: %v", err)
		}
	}
	board := newBoard(spinner.Above(out))

	session := startSession(ctx, source)
	defer endSession(session)

	opts := []capture.Option{
		capture.WithOverlay(canvas),
		capture.WithStatusLine(spinner),
		capture.WithMetrics(m),
		capture.WithInterval(interval),
		capture.WithTimeout(cfg.API.RequestTimeout),
	}
	if session != nil {
		opts = append(opts, capture.WithRecorder(session))
	}
	ctrl := capture.New(cam, newClient(), board, opts...)

	if err := ctrl.AcquireStream(ctx); err != nil {
		return acquireErr(err)
	}
	defer ctrl.Stop()

	fmt.Fprint(spinner.Above(out), "🎥 Live detection started. Press 's' to save a photo, 'q' to quit.\n")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return ctrl.Run(gctx) })

	g.Go(func() error {
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				spinner.Tick()
			}
		}
	})

	if previewAddr != "" {
		srv := preview.NewServer(preview.Config{Addr: previewAddr, MaxWidth: 960}, ctrl, canvas, m)
		g.Go(func() error { return srv.ListenAndServe(gctx) })
		fmt.Fprintf(spinner.Above(out), "🌐 Preview at http://%s/\n", displayAddr(previewAddr))
	}

	keys := readKeys(os.Stdin)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case k, ok := <-keys:
				if !ok {
					// stdin closed: keep running until a signal arrives.
					keys = nil
					continue
				}
				switch k {
				case 's', 'S', ' ':
					if ctrl.Saving() {
						continue
					}
					g.Go(func() error {
						if _, err := ctrl.SavePhoto(gctx); err != nil && !errors.Is(err, capture.ErrSaveInProgress) {
							logger.Debug("Live", "save: %v", err)
						}
						return nil
					})
				case 'q', 'Q', 3: // 3 is Ctrl+C in raw mode
					cancel()
					return nil
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err == nil {
		snap := ctrl.Snapshot()
		fmt.Fprintf(spinner.Above(out), "👋 Stopped. Last status: %s\n", snap.Status)
	}
	return err
}

// readKeys forwards stdin bytes until EOF.
func readKeys(r io.Reader) <-chan byte {
	ch := make(chan byte, 8)
	go func() {
		defer close(ch)
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				ch <- buf[0]
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
