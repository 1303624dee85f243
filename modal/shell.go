// Package modal implements a modal shell for line oriented terminal views.
//
// A Shell shows a titled content on top of a backdrop the user cannot
// interact with. It is dismissed with Escape, and dismissing it always runs
// its close callback, so the owner can discard whatever state the content
// was holding.
package modal

import (
	"fmt"
	"io"
	"strings"
)

// Key is a key, or a command typed in place of one.
type Key string

// Keys the shell knows about.
const (
	KeyEscape Key = "esc"
	KeyEnter  Key = "enter"
	KeyRetry  Key = "retry"
)

// ParseKey maps a typed line to a key. Anything that is not a known key is
// returned trimmed, with its case kept.
func ParseKey(line string) Key {
	s := strings.TrimSpace(line)
	switch strings.ToLower(s) {
	case "esc", "escape", "\x1b":
		return KeyEscape
	case "retry":
		return KeyRetry
	case "":
		return KeyEnter
	default:
		return Key(s)
	}
}

// Content is what a Shell displays.
type Content interface {
	Render(w io.Writer) error
}

// ContentFunc adapts a function to Content.
type ContentFunc func(w io.Writer) error

func (f ContentFunc) Render(w io.Writer) error { return f(w) }

// KeyHandler is implemented by a content that reacts to keys. HandleKey
// reports whether the key was consumed.
type KeyHandler interface {
	HandleKey(k Key) bool
}

// Backdrop is printed under an open shell.
const Backdrop = "(the rest of the application is unavailable until this window is closed)"

// Shell is a modal window.
type Shell struct {
	Title   string
	content Content
	onClose func()

	open     bool
	boundary Boundary
}

// New returns a closed shell showing content. onClose may be nil.
func New(title string, content Content, onClose func()) *Shell {
	return &Shell{Title: title, content: content, onClose: onClose}
}

// Open shows the shell.
func (s *Shell) Open() {
	s.open = true
	s.boundary.Retry()
}

// IsOpen reports whether the shell is shown.
func (s *Shell) IsOpen() bool { return s.open }

// Close hides the shell and runs the close callback. Closing a closed shell
// does nothing.
func (s *Shell) Close() {
	if !s.open {
		return
	}
	s.open = false
	if s.onClose != nil {
		s.onClose()
	}
}

// HandleKey closes the shell on Escape, retries a failed render on Retry and
// passes any other key to the content. It reports whether the key was used.
func (s *Shell) HandleKey(k Key) bool {
	if !s.open {
		return false
	}
	switch {
	case k == KeyEscape:
		s.Close()
		return true
	case k == KeyRetry && s.boundary.Failed():
		s.boundary.Retry()
		return true
	}
	if h, ok := s.content.(KeyHandler); ok {
		return h.HandleKey(k)
	}
	return false
}

// Failed reports whether the content failed to render.
func (s *Shell) Failed() bool { return s.boundary.Failed() }

// Render writes the shell to w. A closed shell writes nothing. A failing
// content is replaced by a recovery view, title and backdrop still render.
func (s *Shell) Render(w io.Writer) {
	if !s.open {
		return
	}
	fmt.Fprintf(w, "== %s ==  [esc to close]\n\n", s.Title)
	s.boundary.Render(w, s.content.Render)
	fmt.Fprintf(w, "\n%s\n", Backdrop)
}
