package modal

import (
	"bytes"
	"fmt"
	"io"
	"log"
)

// Boundary isolates a rendering function: an error or a panic while rendering
// replaces its output by a short recovery view instead of taking down the
// caller. Once failed, the boundary keeps showing the recovery view until
// Retry is called.
type Boundary struct {
	Logger *log.Logger

	err error
}

// Render runs render into a buffer and copies it to w on success.
func (b *Boundary) Render(w io.Writer, render func(io.Writer) error) {
	if b.err == nil {
		var buf bytes.Buffer
		b.err = b.run(&buf, render)
		if b.err == nil {
			io.Copy(w, &buf)
			return
		}
		b.logf("render failed: %v", b.err)
	}
	fmt.Fprintf(w, "Something went wrong while displaying this view: %v\n", b.err)
	fmt.Fprintln(w, "Type 'retry' to try again, or 'esc' to close.")
}

func (b *Boundary) run(w io.Writer, render func(io.Writer) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return render(w)
}

// Failed reports whether the last render failed.
func (b *Boundary) Failed() bool { return b.err != nil }

// Err returns the error of the last failed render.
func (b *Boundary) Err() error { return b.err }

// Retry clears the failure so that the next Render runs the content again.
func (b *Boundary) Retry() { b.err = nil }

func (b *Boundary) logf(format string, args ...any) {
	if b.Logger != nil {
		b.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
