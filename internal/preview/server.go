// Package preview serves the annotated live view over HTTP.
package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/andresmejia3/goober/internal/capture"
	"github.com/andresmejia3/goober/internal/logger"
	"github.com/andresmejia3/goober/internal/metrics"
	"github.com/andresmejia3/goober/internal/overlay"
	"github.com/andresmejia3/goober/internal/types"
)

// Config holds preview server options.
type Config struct {
	Addr          string
	FrameInterval time.Duration
	MaxWidth      int
	Quality       int
}

// DefaultConfig returns sane preview defaults.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8090",
		FrameInterval: 100 * time.Millisecond,
		MaxWidth:      960,
		Quality:       80,
	}
}

// Source is what the preview reads from the capture controller.
type Source interface {
	Frame() (image.Image, error)
	Snapshot() capture.Snapshot
}

// Server renders the latest frame with the overlay on top.
type Server struct {
	cfg     Config
	source  Source
	canvas  *overlay.Canvas
	metrics *metrics.Metrics
	blank   []byte
}

func NewServer(cfg Config, source Source, canvas *overlay.Canvas, m *metrics.Metrics) *Server {
	def := DefaultConfig()
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = def.Quality
	}
	s := &Server{cfg: cfg, source: source, canvas: canvas, metrics: m}
	s.blank = blankJPEG()
	return s
}

// Handler returns the preview routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /snapshot.jpg", s.handleSnapshot)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// ListenAndServe runs until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Preview", "listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// Streaming clients never finish on their own.
			srv.Close()
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// currentJPEG renders the newest frame, or the blank card when there is none.
func (s *Server) currentJPEG() []byte {
	frame, err := s.source.Frame()
	if err != nil {
		return s.blank
	}
	data, err := s.canvas.RenderFitJPEG(frame, s.cfg.MaxWidth, s.cfg.Quality)
	if err != nil {
		logger.Debug("Preview", "render failed: %v", err)
		return s.blank
	}
	return data
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(s.currentJPEG())
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		data := s.currentJPEG()
		fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data))
		if _, err := w.Write(data); err != nil {
			return
		}
		w.Write([]byte("\r\n"))
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

type statusResponse struct {
	State     string          `json:"state"`
	Status    string          `json:"status"`
	FaceCount int             `json:"face_count"`
	Faces     []types.FaceBox `json:"faces"`
	Saving    bool            `json:"saving"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	faces := snap.Boxes
	if faces == nil {
		faces = []types.FaceBox{}
	}
	writeJSON(w, statusResponse{
		State:     snap.State.String(),
		Status:    snap.Status,
		FaceCount: snap.FaceCount,
		Faces:     faces,
		Saving:    snap.Saving,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}

// blankJPEG is shown until the camera delivers its first frame.
func blankJPEG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	bg := color.RGBA{R: 32, G: 32, B: 32, A: 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 50})
	return buf.Bytes()
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>goober live</title>
<style>
body { font-family: sans-serif; background: #111; color: #eee; text-align: center; }
img { max-width: 100%; border: 2px solid #333; }
#status { margin: 1em; font-size: 1.2em; }
</style>
</head>
<body>
<h1>Face detection</h1>
<img src="/stream" alt="live preview">
<div id="status">Starting camera...</div>
<script>
async function poll() {
  try {
    const res = await fetch('/api/status');
    const s = await res.json();
    document.getElementById('status').textContent = s.status || s.state;
  } catch (e) {}
  setTimeout(poll, 1000);
}
poll();
</script>
</body>
</html>
`
