package profile

import (
	"bytes"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionNilProfiler(t *testing.T) {
	stop := Region(nil, "nothing")
	assert.NotPanics(t, stop)
}

func TestSummaryAccumulates(t *testing.T) {
	var s Summary
	base := time.Unix(100, 0)
	s.Plot("phase 1", base, base.Add(2*time.Millisecond))
	s.Plot("phase 2", base, base.Add(time.Millisecond))
	s.Plot("phase 1", base, base.Add(3*time.Millisecond))

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Label: "phase 1", Total: 5 * time.Millisecond, Count: 2}, entries[0])
	assert.Equal(t, Entry{Label: "phase 2", Total: time.Millisecond, Count: 1}, entries[1])
}

func TestTraceJSON(t *testing.T) {
	tr := NewTrace()
	start := tr.epoch.Add(10 * time.Millisecond)
	tr.Plot("late", start.Add(time.Millisecond), start.Add(2*time.Millisecond))
	tr.Plot("early", start, start.Add(5*time.Millisecond))

	var buf bytes.Buffer
	_, err := tr.WriteTo(&buf)
	require.NoError(t, err)

	var decoded traceFile
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.TraceEvents, 2)
	assert.Equal(t, "early", decoded.TraceEvents[0].Name)
	assert.Equal(t, int64(10000), decoded.TraceEvents[0].TS)
	assert.Equal(t, int64(5000), decoded.TraceEvents[0].Dur)
	assert.Equal(t, "X", decoded.TraceEvents[1].Phase)
}

func TestMultiAndRegion(t *testing.T) {
	var a, b Summary
	stop := Region(Multi{&a, &b}, "parse: x.c")
	stop()
	assert.Len(t, a.Entries(), 1)
	assert.Len(t, b.Entries(), 1)
	assert.Equal(t, "parse: x.c", b.Entries()[0].Label)
}
