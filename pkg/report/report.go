// Package report collects front-end diagnostics and tallies them by severity.
package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

// Level is the severity of a diagnostic.
type Level int

const (
	Verbose Level = iota
	Info
	Warning
	Error
	levelCount
)

func (l Level) String() string {
	names := []string{"verbose", "info", "warning", "error"}
	if int(l) < len(names) {
		return names[l]
	}
	return "?"
}

var levelColors = []string{"\x1b[90m", "\x1b[36m", "\x1b[35m", "\x1b[31m"}

// Status is the error aggregate: a count per severity. It is safe for use
// from several parser goroutines at once.
type Status struct {
	tally [levelCount]atomic.Int64
}

// Add bumps the tally for a level.
func (s *Status) Add(l Level) {
	s.tally[l].Add(1)
}

// Count returns the tally for a level.
func (s *Status) Count(l Level) int {
	return int(s.tally[l].Load())
}

// HasErrors reports whether any error was recorded.
func (s *Status) HasErrors() bool {
	return s.Count(Error) > 0
}

// Reset zeroes every tally.
func (s *Status) Reset() {
	for i := range s.tally {
		s.tally[i].Store(0)
	}
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Level   Level
	Pos     string // resolved "file:line:col"
	Message string
	Notes   []Note
}

// Note points at a secondary location, e.g. a previous definition.
type Note struct {
	Pos     string
	Message string
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s: %s", d.Pos, d.Level, d.Message)
	for _, n := range d.Notes {
		s += fmt.Sprintf("\n%s: note: %s", n.Pos, n.Message)
	}
	return s
}

// Reporter records diagnostics into a Status and writes them out.
type Reporter struct {
	Status   *Status
	MinLevel Level

	mu     sync.Mutex
	w      io.Writer
	color  bool
	record []Diagnostic
}

// NewReporter creates a Reporter writing to w. Colors are enabled when w
// is a terminal.
func NewReporter(w io.Writer, status *Status) *Reporter {
	if status == nil {
		status = &Status{}
	}
	r := &Reporter{Status: status, MinLevel: Warning, w: w}
	if f, ok := w.(*os.File); ok {
		r.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return r
}

// Report records d. It is counted even when its level is below MinLevel.
func (r *Reporter) Report(d Diagnostic) {
	r.Status.Add(d.Level)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.record = append(r.record, d)
	if r.w == nil || d.Level < r.MinLevel {
		return
	}
	if r.color {
		fmt.Fprintf(r.w, "%s: %s%s:\x1b[0m %s\n", d.Pos, levelColors[d.Level], d.Level, d.Message)
		for _, n := range d.Notes {
			fmt.Fprintf(r.w, "%s: \x1b[36mnote:\x1b[0m %s\n", n.Pos, n.Message)
		}
		return
	}
	fmt.Fprintln(r.w, d.String())
}

// Diagnostics returns a copy of everything reported so far.
func (r *Reporter) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic(nil), r.record...)
}
