package message

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestShowReplacesPreviousMessage(t *testing.T) {
	b := NewBoard(nil, false)

	b.Show("first", false)
	b.Show("second", true)

	m, ok := b.Current()
	if !ok {
		t.Fatal("expected a current message")
	}
	if m.Text != "second" {
		t.Errorf("Text = %q, want %q", m.Text, "second")
	}
	if m.Class() != "message error" {
		t.Errorf("Class = %q, want %q", m.Class(), "message error")
	}
}

func TestSuccessClass(t *testing.T) {
	b := NewBoard(nil, false)
	b.Show("Photo deleted successfully", false)
	m, _ := b.Current()
	if m.Class() != "message success" {
		t.Errorf("Class = %q", m.Class())
	}
}

func TestTextIsVerbatim(t *testing.T) {
	var buf bytes.Buffer
	b := NewBoard(&buf, true)

	b.Show("Error: [red] is not a color here", true)

	m, _ := b.Current()
	if m.Text != "Error: [red] is not a color here" {
		t.Errorf("Text mangled: %q", m.Text)
	}
	if !strings.Contains(buf.String(), "Error: [red] is not a color here") {
		t.Errorf("printed text mangled: %q", buf.String())
	}
}

func TestNoColorOutput(t *testing.T) {
	var buf bytes.Buffer
	b := NewBoard(&buf, false)
	b.Show("Photo saved! Detected 1 face.", false)

	if got, want := buf.String(), "✔ Photo saved! Detected 1 face.\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("closed") }

func TestShowIgnoresWriteErrors(t *testing.T) {
	b := NewBoard(failingWriter{}, false)
	b.Show("still recorded", false)
	if m, ok := b.Current(); !ok || m.Text != "still recorded" {
		t.Errorf("Current() = %+v, %v", m, ok)
	}
}

func TestClear(t *testing.T) {
	b := NewBoard(nil, false)
	b.Show("x", false)
	b.Clear()
	if _, ok := b.Current(); ok {
		t.Error("expected no message after Clear")
	}
}

func TestConcurrentShowKeepsOneMessage(t *testing.T) {
	b := NewBoard(nil, false)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Show("msg", i%2 == 0)
		}(i)
	}
	wg.Wait()
	if m, ok := b.Current(); !ok || m.Text != "msg" {
		t.Errorf("Current() = %+v, %v", m, ok)
	}
}
