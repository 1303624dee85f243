package modal

import (
	"errors"
	"io"
	"log"
	"strings"
	"testing"
)

type keys struct {
	got []Key
}

func (k *keys) Render(w io.Writer) error {
	_, err := io.WriteString(w, "content\n")
	return err
}

func (k *keys) HandleKey(key Key) bool {
	k.got = append(k.got, key)
	return true
}

func TestShellEscapeCloses(t *testing.T) {
	closed := 0
	s := New("Import", &keys{}, func() { closed++ })
	s.Open()

	if !s.HandleKey(KeyEscape) {
		t.Error("HandleKey(esc) = false, want true")
	}
	if s.IsOpen() {
		t.Error("shell still open after esc")
	}
	if closed != 1 {
		t.Errorf("close callback ran %d times, want 1", closed)
	}

	// a second close is a no-op.
	s.Close()
	if closed != 1 {
		t.Errorf("close callback ran %d times after a second close, want 1", closed)
	}
}

func TestShellForwardsKeys(t *testing.T) {
	c := &keys{}
	s := New("Import", c, nil)
	if s.HandleKey("a") {
		t.Error("closed shell consumed a key")
	}
	s.Open()
	s.HandleKey("a")
	s.HandleKey(KeyEnter)
	if len(c.got) != 2 || c.got[0] != "a" || c.got[1] != KeyEnter {
		t.Errorf("content received %v", c.got)
	}
}

func TestShellRender(t *testing.T) {
	s := New("Import statements", &keys{}, nil)

	var b strings.Builder
	s.Render(&b)
	if b.Len() != 0 {
		t.Errorf("closed shell rendered %q", b.String())
	}

	s.Open()
	s.Render(&b)
	out := b.String()
	for _, want := range []string{"Import statements", "content", Backdrop} {
		if !strings.Contains(out, want) {
			t.Errorf("render %q does not contain %q", out, want)
		}
	}
}

func TestBoundaryRecovers(t *testing.T) {
	calls := 0
	content := ContentFunc(func(w io.Writer) error {
		calls++
		if calls == 1 {
			io.WriteString(w, "half written")
			panic("nil map")
		}
		_, err := io.WriteString(w, "fine")
		return err
	})
	s := New("Import", content, nil)
	s.boundary.Logger = log.New(io.Discard, "", 0)
	s.Open()

	var b strings.Builder
	s.Render(&b)
	out := b.String()
	if !s.Failed() {
		t.Fatal("Failed() = false after a panic")
	}
	if strings.Contains(out, "half written") {
		t.Error("partial output of a failed render leaked")
	}
	if !strings.Contains(out, "Import") || !strings.Contains(out, Backdrop) {
		t.Error("title and backdrop must still render")
	}

	// stays failed until retried.
	b.Reset()
	s.Render(&b)
	if calls != 1 {
		t.Errorf("content rendered %d times while failed, want 1", calls)
	}

	if !s.HandleKey(KeyRetry) {
		t.Error("HandleKey(retry) = false on a failed shell")
	}
	b.Reset()
	s.Render(&b)
	if s.Failed() || !strings.Contains(b.String(), "fine") {
		t.Errorf("retry did not recover: %q", b.String())
	}
}

func TestBoundaryError(t *testing.T) {
	b := Boundary{Logger: log.New(io.Discard, "", 0)}
	var out strings.Builder
	b.Render(&out, func(io.Writer) error { return errors.New("template missing") })
	if !b.Failed() || !strings.Contains(out.String(), "template missing") {
		t.Errorf("Render() = %q, failed=%v", out.String(), b.Failed())
	}
}

func TestParseKey(t *testing.T) {
	tests := map[string]Key{
		"esc":        KeyEscape,
		" ESCAPE":    KeyEscape,
		"":           KeyEnter,
		"Retry":      KeyRetry,
		"type 3":     "type 3",
		"add A.pdf ": "add A.pdf",
	}
	for in, want := range tests {
		if got := ParseKey(in); got != want {
			t.Errorf("ParseKey(%q) = %q, want %q", in, got, want)
		}
	}
}
