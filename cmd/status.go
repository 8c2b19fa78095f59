package cmd

import (
	"bytes"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// spinnerStatus shows the detection status line as a progressbar spinner.
type spinnerStatus struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newSpinner(w io.Writer) *spinnerStatus {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("📷 Starting camera..."),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &spinnerStatus{bar: bar}
}

func (s *spinnerStatus) SetStatus(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bar.Describe("👁️  " + text)
}

// Tick advances the spinner animation.
func (s *spinnerStatus) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bar.Add(1)
}

// Finish removes the spinner line.
func (s *spinnerStatus) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bar.Finish()
}

// Above returns a writer whose output lands above the spinner instead of through it.
func (s *spinnerStatus) Above(w io.Writer) io.Writer {
	return &aboveSpinner{s: s, w: w}
}

type aboveSpinner struct {
	s *spinnerStatus
	w io.Writer
}

func (a *aboveSpinner) Write(p []byte) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.bar.Clear()
	n, err := a.w.Write(p)
	a.s.bar.RenderBlank()
	return n, err
}

// crlfWriter turns \n into \r\n; a raw-mode terminal does not return the carriage itself.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
