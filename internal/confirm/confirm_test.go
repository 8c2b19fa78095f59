package confirm

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func TestPrompter(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yep\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := New(strings.NewReader(tt.input), &out)
		if got := p.Confirm(context.Background(), "Delete?"); got != tt.want {
			t.Errorf("input %q: got %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Delete? [y/N]: " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestPrompterCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	if New(r, &out).Confirm(ctx, "Delete?") {
		t.Error("cancelled prompt must count as declined")
	}
}

func TestAlways(t *testing.T) {
	if !Always(true).Confirm(context.Background(), "x") {
		t.Error("Always(true) declined")
	}
	if Always(false).Confirm(context.Background(), "x") {
		t.Error("Always(false) accepted")
	}
}

func TestPrompterAfterCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	var out bytes.Buffer
	p := New(r, &out)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if p.Confirm(ctx, "First?") {
		t.Fatal("cancelled prompt must count as declined")
	}

	go w.Write([]byte("y\n"))
	if !p.Confirm(context.Background(), "Second?") {
		t.Error("answer after a cancelled prompt was lost")
	}
}

func TestPrompterEOFDeclinesEveryPrompt(t *testing.T) {
	p := New(strings.NewReader(""), io.Discard)
	for i := 0; i < 2; i++ {
		if p.Confirm(context.Background(), "Delete?") {
			t.Errorf("prompt %d accepted on closed input", i)
		}
	}
}

func TestIsInteractive(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsInteractive(f) {
		t.Error("a regular file is not a terminal")
	}
}
