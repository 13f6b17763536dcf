// Package notify delivers transient user-facing messages, the CLI
// counterpart of a toast.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Level is the severity of a notification.
type Level int

const (
	Info Level = iota
	Success
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notification is one message. Detail is optional.
type Notification struct {
	Level  Level
	Title  string
	Detail string
}

func (n Notification) String() string {
	if n.Detail == "" {
		return n.Title
	}
	return n.Title + ": " + n.Detail
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// Writer prints notifications as single lines. Errors go to errOut, others
// to out unless quiet.
type Writer struct {
	out    io.Writer
	errOut io.Writer
	quiet  bool
}

// NewWriter returns a Writer.
func NewWriter(out, errOut io.Writer, quiet bool) *Writer {
	return &Writer{out: out, errOut: errOut, quiet: quiet}
}

// Notify implements Notifier.
func (w *Writer) Notify(n Notification) {
	if n.Level == Error {
		fmt.Fprintf(w.errOut, "error: %s\n", n)
		return
	}
	if w.quiet {
		return
	}
	fmt.Fprintln(w.out, n)
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	seen []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

// All returns the recorded notifications in order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.seen))
	copy(out, r.seen)
	return out
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notification) {}
