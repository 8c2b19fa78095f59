package utils

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestSplitJpeg(t *testing.T) {
	// Construct a stream containing: [Garbage] [JPEG] [Garbage]
	// SOI (Start of Image): FF D8
	// EOI (End of Image):   FF D9

	jpegData := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}

	streamData := []byte{0x00, 0x00} // Garbage at start
	streamData = append(streamData, jpegData...)
	streamData = append(streamData, []byte{0x00, 0x00}...) // Garbage at end

	scanner := bufio.NewScanner(bytes.NewReader(streamData))
	scanner.Split(SplitJpeg)

	if !scanner.Scan() {
		t.Fatal("Expected to find a token, got EOF")
	}
	if !bytes.Equal(scanner.Bytes(), jpegData) {
		t.Errorf("Expected %X, got %X", jpegData, scanner.Bytes())
	}

	// The trailing garbage is not a JPEG
	if scanner.Scan() {
		t.Error("Expected only one token, found more")
	}
	if err := scanner.Err(); err != nil {
		t.Errorf("unexpected scanner error: %v", err)
	}
}

func TestSplitJpeg_BackToBackFrames(t *testing.T) {
	a := []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9}
	b := []byte{0xFF, 0xD8, 0xBB, 0xBB, 0xFF, 0xD9}

	scanner := bufio.NewScanner(bytes.NewReader(append(append([]byte{}, a...), b...)))
	scanner.Split(SplitJpeg)

	var got [][]byte
	for scanner.Scan() {
		got = append(got, append([]byte(nil), scanner.Bytes()...))
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	if !bytes.Equal(got[0], a) || !bytes.Equal(got[1], b) {
		t.Errorf("frames mismatch: %X", got)
	}
}

func TestSplitJpeg_TruncatedFrame(t *testing.T) {
	scanner := bufio.NewScanner(bytes.NewReader([]byte{0xFF, 0xD8, 0x01, 0x02}))
	scanner.Split(SplitJpeg)
	if scanner.Scan() {
		t.Errorf("truncated frame should not produce a token, got %X", scanner.Bytes())
	}
}

func TestIsPermissionDenied(t *testing.T) {
	tests := []struct {
		stderr string
		want   bool
	}{
		{"[video4linux2,v4l2 @ 0x55] Cannot open video device /dev/video0: Permission denied", true},
		{"Operation not permitted", true},
		{"/dev/video9: No such file or directory", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsPermissionDenied(tt.stderr); got != tt.want {
			t.Errorf("IsPermissionDenied(%q) = %v, want %v", tt.stderr, got, tt.want)
		}
	}
}

func TestShowError(t *testing.T) {
	s := NewSafeCommand("ffmpeg", "-version")
	s.Stderr.Write([]byte("device busy\n"))

	var buf bytes.Buffer
	ShowError(&buf, "Camera failed", errors.New("exit status 1"), s)

	out := buf.String()
	for _, want := range []string{"GOOBER ERROR: Camera failed", "DETAILS: exit status 1", "FFMPEG LOGS:\ndevice busy"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestNewFFmpegCmdArgs(t *testing.T) {
	s := NewFFmpegCmd("-f", "v4l2", "-i", "/dev/video0")
	got := strings.Join(s.Args, " ")
	want := "ffmpeg -hide_banner -loglevel error -f v4l2 -i /dev/video0 -f image2pipe -vcodec mjpeg -q:v 2 -"
	if got != want {
		t.Errorf("args = %q\nwant   %q", got, want)
	}
}
