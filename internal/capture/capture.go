// Package capture drives a camera stream: periodic face detection, overlay updates and photo saves.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andresmejia3/goober/internal/api"
	"github.com/andresmejia3/goober/internal/logger"
	"github.com/andresmejia3/goober/internal/metrics"
	"github.com/andresmejia3/goober/internal/types"
	"golang.org/x/time/rate"
)

const (
	DefaultInterval = time.Second
	DefaultTimeout  = 10 * time.Second
)

// User-facing messages.
const (
	MsgNoStream      = "Please allow camera access first."
	MsgCameraDenied  = "Unable to access camera. Please allow camera access and try again."
	MsgCameraFailed  = "Error accessing camera"
	MsgDetectFailed  = "Error detecting faces"
	MsgSaveFailed    = "Error saving photo"
	serverErrorLabel = "Error: "
)

var (
	ErrPermissionDenied  = errors.New("camera permission denied")
	ErrNoStream          = errors.New("no active camera stream")
	ErrNoFrame           = errors.New("no frame available yet")
	ErrStreamActive      = errors.New("camera stream already acquired")
	ErrStreamStopped     = errors.New("camera stream stopped")
	ErrSourceEnded       = errors.New("camera stopped producing frames")
	ErrDetectionInFlight = errors.New("face detection already in flight")
	ErrSaveInProgress    = errors.New("photo save already in progress")
)

// State is the controller lifecycle state.
type State int

const (
	Idle State = iota
	StreamAcquiring
	StreamActive
	Detecting
	StreamStopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case StreamAcquiring:
		return "acquiring"
	case StreamActive:
		return "active"
	case Detecting:
		return "detecting"
	case StreamStopped:
		return "stopped"
	}
	return "unknown"
}

// Stream is a live source of frames.
type Stream interface {
	// Latest returns the most recent frame, or ErrNoFrame before the first one arrives.
	// A source that died mid-session reports ErrSourceEnded.
	Latest() (image.Image, error)
	Close() error
}

// Camera opens streams. Open reports ErrPermissionDenied when access is refused.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Service is the subset of the photo service the capture flow needs.
type Service interface {
	DetectFaces(ctx context.Context, image string) (*types.DetectResult, error)
	SavePhoto(ctx context.Context, image string) (*types.SaveResult, error)
}

// Notifier shows the single user-facing message.
type Notifier interface {
	Show(text string, isError bool)
}

// Overlay receives the face boxes of each successful detection, replacing the previous ones.
type Overlay interface {
	DrawFaces(boxes []types.FaceBox)
}

// StatusLine receives the human readable detection status.
type StatusLine interface {
	SetStatus(text string)
}

// Recorder journals detections and saves. Errors are logged and otherwise ignored.
type Recorder interface {
	RecordDetection(ctx context.Context, faceCount int, boxes []types.FaceBox) error
	RecordSave(ctx context.Context, res *types.SaveResult) error
}

// Option configures a Controller.
type Option func(*Controller)

func WithOverlay(o Overlay) Option       { return func(c *Controller) { c.overlay = o } }
func WithStatusLine(s StatusLine) Option { return func(c *Controller) { c.status = s } }
func WithRecorder(r Recorder) Option     { return func(c *Controller) { c.recorder = r } }
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithInterval sets the pause between detection ticks.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTimeout bounds each service request.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	State     State
	Status    string
	FaceCount int
	Boxes     []types.FaceBox
	Saving    bool
}

// Controller owns one camera stream for its whole life.
type Controller struct {
	camera   Camera
	service  Service
	notify   Notifier
	overlay  Overlay
	status   StatusLine
	recorder Recorder
	metrics  *metrics.Metrics
	interval time.Duration
	timeout  time.Duration

	mu         sync.Mutex
	state      State
	stream     Stream
	boxes      []types.FaceBox
	faceCount  int
	statusText string

	detecting atomic.Bool
	saving    atomic.Bool
}

// New creates an idle controller.
func New(camera Camera, service Service, notify Notifier, opts ...Option) *Controller {
	c := &Controller{
		camera:   camera,
		service:  service,
		notify:   notify,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AcquireStream opens the camera. It may only be called once, from Idle
// (or again after a failed attempt).
func (c *Controller) AcquireStream(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Idle:
	case StreamStopped:
		c.mu.Unlock()
		return ErrStreamStopped
	default:
		c.mu.Unlock()
		return ErrStreamActive
	}
	c.state = StreamAcquiring
	c.mu.Unlock()

	s, err := c.camera.Open(ctx)

	c.mu.Lock()
	if c.state == StreamStopped {
		// Stop won the race while the camera was opening.
		c.mu.Unlock()
		if s != nil {
			s.Close()
		}
		return ErrStreamStopped
	}
	if err != nil {
		c.state = Idle
		c.mu.Unlock()
		logger.Warn("Capture", "camera open failed: %v", err)
		if errors.Is(err, ErrPermissionDenied) {
			c.notify.Show(MsgCameraDenied, true)
		} else {
			c.notify.Show(MsgCameraFailed+": "+err.Error(), true)
		}
		return fmt.Errorf("acquire stream: %w", err)
	}
	c.stream = s
	c.state = StreamActive
	c.mu.Unlock()

	c.metrics.SetStreamActive(true)
	c.setStatus(0)
	logger.Info("Capture", "camera stream acquired")
	return nil
}

// activeStream returns the stream when one is usable.
func (c *Controller) activeStream() (Stream, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StreamActive || c.stream == nil {
		return nil, false
	}
	return c.stream, true
}

// Frame returns the current frame without encoding it.
func (c *Controller) Frame() (image.Image, error) {
	s, ok := c.activeStream()
	if !ok {
		return nil, ErrNoStream
	}
	return s.Latest()
}

// CaptureFrame grabs the current frame as a JPEG data URL at native resolution.
func (c *Controller) CaptureFrame() (string, error) {
	img, err := c.Frame()
	if err != nil {
		return "", err
	}
	return EncodeDataURL(img)
}

// DetectFaces runs one detection unless another is still in flight.
func (c *Controller) DetectFaces(ctx context.Context) (*types.DetectResult, error) {
	if !c.detecting.CompareAndSwap(false, true) {
		return nil, ErrDetectionInFlight
	}
	defer c.detecting.Store(false)
	return c.detect(ctx)
}

func (c *Controller) detect(ctx context.Context) (*types.DetectResult, error) {
	frame, err := c.CaptureFrame()
	if err != nil {
		if errors.Is(err, ErrSourceEnded) {
			c.metrics.ObserveDetection(metrics.OutcomeTransport, 0, 0)
			logger.Warn("Capture", "camera source ended: %v", err)
			c.notify.Show(MsgCameraFailed, true)
		}
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := c.service.DetectFaces(rctx, frame)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			c.metrics.ObserveDetection(metrics.OutcomeCancelled, 0, elapsed)
			return nil, err
		}
		c.metrics.ObserveDetection(metrics.OutcomeTransport, 0, elapsed)
		logger.Warn("Capture", "detect_faces failed: %v", err)
		c.notify.Show(MsgDetectFailed, true)
		return nil, err
	}
	if res.Error != "" {
		c.metrics.ObserveDetection(metrics.OutcomeServerError, 0, elapsed)
		c.notify.Show(serverErrorLabel+res.Error, true)
		return res, &api.ServiceError{Op: "detect_faces", Message: res.Error}
	}

	count := res.FaceCount
	if count == 0 {
		count = len(res.Faces)
	}
	boxes := append([]types.FaceBox(nil), res.Faces...)

	c.mu.Lock()
	c.boxes = boxes
	c.faceCount = count
	c.mu.Unlock()

	c.metrics.ObserveDetection(metrics.OutcomeOK, count, elapsed)
	if c.overlay != nil {
		c.overlay.DrawFaces(boxes)
	}
	c.setStatus(count)

	if c.recorder != nil {
		if err := c.recorder.RecordDetection(ctx, count, boxes); err != nil {
			logger.Warn("Capture", "journal detection: %v", err)
		}
	}
	return res, nil
}

// Run detects faces every interval until ctx is done or the stream stops.
// A tick that finds the previous detection still running is skipped.
// If the camera stops producing frames Run returns ErrSourceEnded.
func (c *Controller) Run(parent context.Context) error {
	if _, ok := c.activeStream(); !ok {
		return ErrNoStream
	}

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	lim := rate.NewLimiter(rate.Every(c.interval), 1)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		// Reserve rather than Wait: Wait gives up early when the next tick
		// lies past the context deadline.
		r := lim.Reserve()
		tick := time.NewTimer(r.Delay())
		select {
		case <-ctx.Done():
			tick.Stop()
			r.Cancel()
			if cause := context.Cause(ctx); errors.Is(cause, ErrSourceEnded) {
				return cause
			}
			return nil
		case <-tick.C:
		}
		if c.State() == StreamStopped {
			return nil
		}
		if !c.detecting.CompareAndSwap(false, true) {
			c.metrics.SkipTick()
			logger.Debug("Capture", "detection still in flight, skipping tick")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer c.detecting.Store(false)
			_, err := c.detect(ctx)
			switch {
			case err == nil, errors.Is(err, ErrNoFrame):
			case errors.Is(err, ErrSourceEnded):
				cancel(err)
			default:
				logger.Debug("Capture", "detection tick: %v", err)
			}
		}()
	}
}

// SavePhoto captures the current frame and stores it with the service.
// The trigger stays disabled until the request settles.
func (c *Controller) SavePhoto(ctx context.Context) (*types.SaveResult, error) {
	if _, ok := c.activeStream(); !ok {
		c.notify.Show(MsgNoStream, true)
		return nil, ErrNoStream
	}
	if !c.saving.CompareAndSwap(false, true) {
		return nil, ErrSaveInProgress
	}
	defer c.saving.Store(false)

	frame, err := c.CaptureFrame()
	if err != nil {
		c.notify.Show(MsgSaveFailed, true)
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := c.service.SavePhoto(rctx, frame)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveSave(metrics.OutcomeTransport, elapsed)
		logger.Warn("Capture", "save_photo failed: %v", err)
		c.notify.Show(MsgSaveFailed, true)
		return nil, err
	}
	if res.Error != "" {
		c.metrics.ObserveSave(metrics.OutcomeServerError, elapsed)
		c.notify.Show(serverErrorLabel+res.Error, true)
		return res, &api.ServiceError{Op: "save_photo", Message: res.Error}
	}

	c.metrics.ObserveSave(metrics.OutcomeOK, elapsed)
	c.notify.Show(SavedText(res.FaceCount), false)
	logger.Info("Capture", "saved photo %d (%s)", res.PhotoID, res.Filename)

	if c.recorder != nil {
		if err := c.recorder.RecordSave(ctx, res); err != nil {
			logger.Warn("Capture", "journal save: %v", err)
		}
	}
	return res, nil
}

// Saving reports whether the save trigger is currently disabled.
func (c *Controller) Saving() bool { return c.saving.Load() }

// Stop releases the stream. Further calls are no-ops.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state == StreamStopped {
		c.mu.Unlock()
		return nil
	}
	s := c.stream
	c.stream = nil
	c.state = StreamStopped
	c.mu.Unlock()

	c.metrics.SetStreamActive(false)
	if s == nil {
		return nil
	}
	logger.Info("Capture", "camera stream released")
	return s.Close()
}

// State reports Detecting while a detection request is in flight on an active stream.
func (c *Controller) State() State {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	if st == StreamActive && c.detecting.Load() {
		return Detecting
	}
	return st
}

func (c *Controller) Snapshot() Snapshot {
	st := c.State()
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:     st,
		Status:    c.statusText,
		FaceCount: c.faceCount,
		Boxes:     append([]types.FaceBox(nil), c.boxes...),
		Saving:    c.saving.Load(),
	}
}

func (c *Controller) setStatus(count int) {
	text := StatusText(count)
	c.mu.Lock()
	c.statusText = text
	c.mu.Unlock()
	if c.status != nil {
		c.status.SetStatus(text)
	}
}

// StatusText is the status line for a detection result.
func StatusText(count int) string {
	switch count {
	case 0:
		return "Face detection active - Look at the camera!"
	case 1:
		return "Face detection active - 1 face detected!"
	default:
		return fmt.Sprintf("Face detection active - %d faces detected!", count)
	}
}

// SavedText is the confirmation shown after a successful save.
func SavedText(count int) string {
	noun := "faces"
	if count == 1 {
		noun = "face"
	}
	return fmt.Sprintf("Photo saved! Detected %d %s.", count, noun)
}
