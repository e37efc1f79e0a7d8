// Package profile records named timing regions. The parser brackets each
// phase with a region; the driver decides where the samples go.
package profile

import (
	"io"
	"slices"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Profiler receives one sample per finished region.
type Profiler interface {
	Plot(label string, start, end time.Time)
}

// Region starts timing label and returns the func that stops it. A nil
// profiler costs nothing.
func Region(p Profiler, label string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.Plot(label, start, time.Now())
	}
}

// Multi fans samples out to several profilers.
type Multi []Profiler

// Plot implements Profiler.
func (m Multi) Plot(label string, start, end time.Time) {
	for _, p := range m {
		p.Plot(label, start, end)
	}
}

type traceEvent struct {
	Name  string `json:"name"`
	Phase string `json:"ph"`
	TS    int64  `json:"ts"`
	Dur   int64  `json:"dur"`
	PID   int    `json:"pid"`
	TID   int    `json:"tid"`
}

type traceFile struct {
	TraceEvents     []traceEvent `json:"traceEvents"`
	DisplayTimeUnit string       `json:"displayTimeUnit"`
}

// Trace collects samples as Chrome trace "complete" events, loadable in
// chrome://tracing or Perfetto.
type Trace struct {
	mu     sync.Mutex
	epoch  time.Time
	events []traceEvent
}

// NewTrace starts a trace whose timestamps are relative to now.
func NewTrace() *Trace {
	return &Trace{epoch: time.Now()}
}

// Plot implements Profiler.
func (t *Trace) Plot(label string, start, end time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, traceEvent{
		Name:  label,
		Phase: "X",
		TS:    start.Sub(t.epoch).Microseconds(),
		Dur:   end.Sub(start).Microseconds(),
		PID:   1,
		TID:   1,
	})
}

// Len returns the number of recorded events.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// WriteTo writes the trace as JSON.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	t.mu.Lock()
	events := slices.Clone(t.events)
	t.mu.Unlock()

	slices.SortStableFunc(events, func(a, b traceEvent) int {
		switch {
		case a.TS < b.TS:
			return -1
		case a.TS > b.TS:
			return 1
		}
		return 0
	})
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(traceFile{
		TraceEvents:     events,
		DisplayTimeUnit: "ms",
	})
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Entry is the accumulated time of one label.
type Entry struct {
	Label string
	Total time.Duration
	Count int
}

// Summary accumulates total time per label in first-seen order.
type Summary struct {
	mu      sync.Mutex
	entries []Entry
	index   map[string]int
}

// Plot implements Profiler.
func (s *Summary) Plot(label string, start, end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		s.index = make(map[string]int)
	}
	i, ok := s.index[label]
	if !ok {
		i = len(s.entries)
		s.index[label] = i
		s.entries = append(s.entries, Entry{Label: label})
	}
	s.entries[i].Total += end.Sub(start)
	s.entries[i].Count++
}

// Entries returns a snapshot of the accumulated totals.
func (s *Summary) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}
