package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresmejia3/goober/internal/capture"
)

// MockCloser wraps a reader so in-memory buffers can stand in for the ffmpeg pipe.
type MockCloser struct {
	io.Reader
	closed bool
}

func (m *MockCloser) Close() error { m.closed = true; return nil }

func encodeFrame(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPipeStreamKeepsNewestFrame(t *testing.T) {
	r, w := io.Pipe()
	src := &MockCloser{Reader: r}
	s := NewPipeStream(src, nil)

	small, big := encodeFrame(t, 16, 8, color.White), encodeFrame(t, 32, 24, color.Black)
	go func() {
		w.Write(small)
		w.Write(big)
	}()

	deadline := time.After(time.Second)
	for s.Frames() < 2 {
		select {
		case <-deadline:
			t.Fatalf("got %d frames, want 2", s.Frames())
		case <-time.After(5 * time.Millisecond):
		}
	}

	img, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("expected the 32x24 frame, got %v", img.Bounds())
	}

	again, _ := s.Latest()
	if again != img {
		t.Error("expected cached decode for an unchanged frame")
	}

	// MockCloser does not unblock the pipe, the writer has to.
	w.Close()
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !src.closed {
		t.Error("Close did not close the pipe")
	}
	if _, err := s.Latest(); !errors.Is(err, capture.ErrStreamStopped) {
		t.Errorf("after Close: got %v, want ErrStreamStopped", err)
	}
}

func TestPipeStreamSourceEnded(t *testing.T) {
	var pipe bytes.Buffer
	pipe.Write(encodeFrame(t, 16, 8, color.White))

	s := NewPipeStream(&MockCloser{Reader: &pipe}, nil)
	defer s.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("stream did not drain")
	}

	if s.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", s.Frames())
	}
	// An unplugged camera must not keep serving its last frame.
	if _, err := s.Latest(); !errors.Is(err, capture.ErrSourceEnded) {
		t.Errorf("got %v, want ErrSourceEnded", err)
	}
}

func TestPipeStreamNoFrameYet(t *testing.T) {
	r, w := io.Pipe()
	s := NewPipeStream(r, nil)

	if _, err := s.Latest(); !errors.Is(err, capture.ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}

	go w.Write(encodeFrame(t, 4, 4, color.White))
	select {
	case <-s.First():
	case <-time.After(time.Second):
		t.Fatal("first frame never signalled")
	}

	// Close must unblock the reader goroutine.
	s.Close()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Close did not stop the pump")
	}
}

func TestInputArgs(t *testing.T) {
	tests := []struct {
		name string
		cam  FFmpeg
		want string
	}{
		{
			name: "v4l2 device",
			cam:  FFmpeg{Input: "/dev/video0", Format: "v4l2", FPS: 15, Size: "640x480"},
			want: "-f v4l2 -framerate 15 -video_size 640x480 -i /dev/video0",
		},
		{
			name: "looped file",
			cam:  FFmpeg{Input: "clip.mp4", Loop: true},
			want: "-re -stream_loop -1 -i clip.mp4",
		},
		{
			name: "bare input",
			cam:  FFmpeg{Input: "rtsp://cam/stream"},
			want: "-i rtsp://cam/stream",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(tt.cam.InputArgs(), " "); got != tt.want {
				t.Errorf("InputArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.jpg")
	if err := os.WriteFile(path, encodeFrame(t, 20, 10, color.White), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Still{Path: path}.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	img, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 20 {
		t.Errorf("width = %d, want 20", img.Bounds().Dx())
	}
}

func TestStillMissingFile(t *testing.T) {
	_, err := Still{Path: filepath.Join(t.TempDir(), "nope.jpg")}.Open(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
