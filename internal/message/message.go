// Package message holds the single transient notification shown to the user.
package message

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mitchellh/colorstring"
)

// Message is the currently displayed notification.
type Message struct {
	Text    string
	IsError bool
	ShownAt time.Time
}

// Class is the presentation class of the message.
func (m Message) Class() string {
	if m.IsError {
		return "message error"
	}
	return "message success"
}

// Board displays at most one message. Showing a new one replaces the old.
type Board struct {
	mu      sync.Mutex
	out     io.Writer
	color   colorstring.Colorize
	current *Message
	now     func() time.Time
}

// NewBoard returns a board that also prints each message to w. w may be nil.
func NewBoard(w io.Writer, useColor bool) *Board {
	return &Board{
		out: w,
		color: colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: !useColor,
			Reset:   true,
		},
		now: time.Now,
	}
}

// Show replaces any current message. It never fails.
func (b *Board) Show(text string, isError bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = &Message{Text: text, IsError: isError, ShownAt: b.now()}
	if b.out == nil {
		return
	}

	prefix := "[green]✔ "
	if isError {
		prefix = "[red]✖ "
	}
	// text is printed verbatim: colorstring would eat anything in brackets.
	fmt.Fprintf(b.out, "%s%s\n", b.color.Color(prefix), text)
}

// Current returns the visible message, if any.
func (b *Board) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Message{}, false
	}
	return *b.current, true
}

// Clear removes the visible message.
func (b *Board) Clear() {
	b.mu.Lock()
	b.current = nil
	b.mu.Unlock()
}
