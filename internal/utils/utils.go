package utils

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr (ffmpeg logs)
// so a dying capture process still tells us why.
type SafeCommand struct {
	*exec.Cmd
	Stderr *SyncBuffer
}

// SyncBuffer is a bytes.Buffer that tolerates the process writing while we read.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *SyncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// NewSafeCommand initializes a command and attaches a buffer to its Stderr pipe
// It prepares the command for execution but does not start it.
func NewSafeCommand(name string, args ...string) *SafeCommand {
	cmd := exec.Command(name, args...)
	stderr := &SyncBuffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// ShowError prints the formatted error box, plus captured process logs when s is given.
func ShowError(w io.Writer, context string, err error, s *SafeCommand) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🚨 GOOBER ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(w, "DETAILS: %v\n", err)
	}

	if s != nil && s.Stderr.Len() > 0 {
		fmt.Fprintf(w, "\nFFMPEG LOGS:\n%s\n", strings.TrimSpace(s.Stderr.String()))
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// --- 2. Frame Engine ---

var (
	JpegSOI = []byte{0xFF, 0xD8} // Start of Image
	JpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// SplitJpeg is the custom splitter for bufio.Scanner
// It locates the Start Of Image (FFD8) and End Of Image (FFD9) markers to extract full JPEG frames.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, JpegSOI)
	if start == -1 {
		if atEOF {
			// Nothing but garbage left.
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], JpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// CheckFFmpeg reports whether ffmpeg is on PATH.
func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return nil
}

// NewFFmpegCmd creates a capture pipe for the given input arguments.
// FFmpeg emits raw MJPEG frames on Stdout so SplitJpeg can cut them apart.
func NewFFmpegCmd(inputArgs ...string) *SafeCommand {
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, inputArgs...)
	// -q:v 2 keeps frames close to the source before we re-encode at 0.9
	args = append(args, "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "2", "-")
	return NewSafeCommand("ffmpeg", args...)
}

// IsPermissionDenied recognises the device errors ffmpeg prints when the camera is not ours to open.
func IsPermissionDenied(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "permission denied") || strings.Contains(s, "operation not permitted") ||
		strings.Contains(s, "not authorized")
}
