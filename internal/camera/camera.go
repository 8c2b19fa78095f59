// Package camera provides frame sources for the capture controller.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/andresmejia3/goober/internal/capture"
	"github.com/andresmejia3/goober/internal/logger"
	"github.com/andresmejia3/goober/internal/utils"
)

// DefaultStartTimeout is how long we wait for the first frame.
const DefaultStartTimeout = 10 * time.Second

// FFmpeg captures from a device or a video file through an ffmpeg MJPEG pipe.
type FFmpeg struct {
	Input  string // device (/dev/video0, "0" on avfoundation) or file path
	Format string // input format (v4l2, avfoundation, dshow); empty for files
	FPS    int
	Size   string // e.g. 640x480

	// Loop replays a file input forever at its native rate.
	Loop         bool
	StartTimeout time.Duration
}

// DefaultFormat is the capture backend for the running OS.
func DefaultFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "v4l2"
	}
}

// InputArgs builds the ffmpeg input side of the command line.
func (f *FFmpeg) InputArgs() []string {
	var args []string
	if f.Loop {
		args = append(args, "-re", "-stream_loop", "-1")
	}
	if f.Format != "" {
		args = append(args, "-f", f.Format)
		if f.FPS > 0 {
			args = append(args, "-framerate", strconv.Itoa(f.FPS))
		}
		if f.Size != "" {
			args = append(args, "-video_size", f.Size)
		}
	}
	return append(args, "-i", f.Input)
}

// Open starts ffmpeg and returns once the first frame is in.
func (f *FFmpeg) Open(ctx context.Context) (capture.Stream, error) {
	if err := utils.CheckFFmpeg(); err != nil {
		return nil, err
	}

	proc := utils.NewFFmpegCmd(f.InputArgs()...)
	out, err := proc.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := proc.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	logger.Debug("Camera", "ffmpeg %v", proc.Args[1:])

	stream := NewPipeStream(out, proc)

	timeout := f.StartTimeout
	if timeout <= 0 {
		timeout = DefaultStartTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-stream.First():
		logger.Info("Camera", "streaming from %s", f.Input)
		return stream, nil
	case <-stream.Done():
		stream.Close()
		return nil, classify(f.Input, proc)
	case <-timer.C:
		stream.Close()
		return nil, fmt.Errorf("no frame from %s within %v", f.Input, timeout)
	case <-ctx.Done():
		stream.Close()
		return nil, ctx.Err()
	}
}

// ProcessError carries the captured ffmpeg stderr of a failed open.
type ProcessError struct {
	Input string
	Cmd   *utils.SafeCommand
	Err   error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("ffmpeg could not read %s: %v", e.Input, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

func classify(input string, proc *utils.SafeCommand) error {
	// Process was killed by Close; its stderr is what matters.
	stderr := proc.Stderr.String()
	if utils.IsPermissionDenied(stderr) {
		return &ProcessError{Input: input, Cmd: proc, Err: capture.ErrPermissionDenied}
	}
	return &ProcessError{Input: input, Cmd: proc, Err: errors.New("stream ended before the first frame")}
}

// Still serves one image file as a never-changing stream.
type Still struct {
	Path string
}

func (s Still) Open(ctx context.Context) (capture.Stream, error) {
	img, err := LoadImage(s.Path)
	if err != nil {
		return nil, err
	}
	return &stillStream{img: img}, nil
}

// LoadImage decodes a JPEG or PNG file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", capture.ErrPermissionDenied, path)
		}
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

type stillStream struct {
	img image.Image
}

func (s *stillStream) Latest() (image.Image, error) { return s.img, nil }
func (s *stillStream) Close() error                 { return nil }
