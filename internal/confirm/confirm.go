// Package confirm provides yes/no confirmation providers.
package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Prompter asks on out and reads the answer from in. Anything but y/yes is a no.
// A single goroutine owns in; answers reach Confirm over a channel.
type Prompter struct {
	mu    sync.Mutex
	in    io.Reader
	out   io.Writer
	once  sync.Once
	lines chan string
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, lines: make(chan string)}
}

func (p *Prompter) readLines() {
	defer close(p.lines)
	r := bufio.NewReader(p.in)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			p.lines <- line
		}
		if err != nil {
			return
		}
	}
}

// Confirm returns false if ctx ends before an answer arrives.
func (p *Prompter) Confirm(ctx context.Context, prompt string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.once.Do(func() { go p.readLines() })

	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)

	select {
	case res, ok := <-p.lines:
		if !ok {
			return false
		}
		res = strings.TrimSpace(strings.ToLower(res))
		return res == "y" || res == "yes"
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false
	}
}

// Always answers every question the same way (--yes, or scripted runs).
type Always bool

func (a Always) Confirm(ctx context.Context, prompt string) bool { return bool(a) }

// IsInteractive reports whether f is a terminal a human can answer from.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
