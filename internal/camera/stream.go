package camera

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"sync"
	"sync/atomic"

	"github.com/andresmejia3/goober/internal/capture"
	"github.com/andresmejia3/goober/internal/logger"
	"github.com/andresmejia3/goober/internal/utils"
)

const megabyte = 1024 * 1024

// PipeStream keeps the most recent JPEG frame read from an MJPEG byte stream.
type PipeStream struct {
	src  io.ReadCloser
	proc *utils.SafeCommand

	mu      sync.Mutex
	latest  []byte
	seq     uint64
	decoded image.Image
	decSeq  uint64

	frames    atomic.Uint64
	first     chan struct{}
	firstOnce sync.Once
	done      chan struct{}
	err       error
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewPipeStream starts reading frames from src. proc, if set, is the process writing to src.
func NewPipeStream(src io.ReadCloser, proc *utils.SafeCommand) *PipeStream {
	s := &PipeStream{
		src:   src,
		proc:  proc,
		first: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *PipeStream) pump() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.src)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	for scanner.Scan() {
		frame := append([]byte(nil), scanner.Bytes()...)
		s.mu.Lock()
		s.latest = frame
		s.seq++
		s.mu.Unlock()
		s.frames.Add(1)
		s.firstOnce.Do(func() { close(s.first) })
	}
	s.mu.Lock()
	s.err = scanner.Err()
	s.mu.Unlock()
}

// First is closed once the first frame has arrived.
func (s *PipeStream) First() <-chan struct{} { return s.first }

// Done is closed when the source stops producing frames.
func (s *PipeStream) Done() <-chan struct{} { return s.done }

// Frames is the number of frames read so far.
func (s *PipeStream) Frames() uint64 { return s.frames.Load() }

// Latest decodes the newest frame. Repeated calls between frames reuse the decoded image.
// Once the source has ended the last frame is stale and an error is returned instead.
func (s *PipeStream) Latest() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		if s.closed.Load() {
			return nil, capture.ErrStreamStopped
		}
		if s.err != nil {
			return nil, fmt.Errorf("%w: %w", capture.ErrSourceEnded, s.err)
		}
		return nil, capture.ErrSourceEnded
	default:
	}
	if s.latest == nil {
		return nil, capture.ErrNoFrame
	}
	if s.decoded != nil && s.decSeq == s.seq {
		return s.decoded, nil
	}
	img, err := jpeg.Decode(bytes.NewReader(s.latest))
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", s.seq, err)
	}
	s.decoded, s.decSeq = img, s.seq
	return img, nil
}

// Close stops the producing process and releases the pipe.
func (s *PipeStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.proc != nil && s.proc.Process != nil {
			s.proc.Process.Kill()
		}
		err = s.src.Close()
		<-s.done
		logger.Debug("Camera", "stream closed after %d frames", s.Frames())
		if s.proc != nil {
			// Killed on purpose, the exit status carries no news.
			s.proc.Wait()
		}
	})
	return err
}
