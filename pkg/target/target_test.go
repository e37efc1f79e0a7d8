package target

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name     string
		longSize int
		windows  bool
	}{
		{"x86_64-linux", 8, false},
		{"x86_64-windows", 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tgt, err := Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.longSize, tgt.LongSize)
			assert.Equal(t, tt.windows, tgt.IsWindows())
			assert.Equal(t, tt.name, tgt.String())
		})
	}

	_, err := Lookup("pdp11")
	assert.ErrorContains(t, err, "unknown target")
	assert.Equal(t, []string{"x86_64-linux", "x86_64-windows"}, Names())
	assert.Equal(t, "x86_64-linux", Default().Name)
}

func TestLookupReturnsCopy(t *testing.T) {
	a, _ := Lookup("x86_64-linux")
	a.LongSize = 4
	b, _ := Lookup("x86_64-linux")
	assert.Equal(t, 8, b.LongSize)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    Target
		wantErr string
	}{
		{
			name: "defaults",
			yaml: "name: toy\narch: x86_64\nsystem: linux\n",
			want: Target{Name: "toy", Arch: "x86_64", System: "linux", PointerSize: 8, LongSize: 8},
		},
		{
			name: "llp64 with typedefs",
			yaml: "name: win\nsystem: windows\nlong_size: 4\ntypedefs:\n  va_list: char *\n",
			want: Target{Name: "win", System: "windows", PointerSize: 8, LongSize: 4, Typedefs: map[string]string{"va_list": "char *"}},
		},
		{name: "no name", yaml: "arch: x86_64\n", wantErr: "no name"},
		{name: "bad long", yaml: "name: odd\nlong_size: 2\n", wantErr: "long must be 4 or 8"},
		{name: "bad pointer", yaml: "name: odd\npointer_size: 4\n", wantErr: "pointer size"},
		{name: "bad yaml", yaml: "name: [\n", wantErr: "decoding target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.yaml))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: toy\nlong_size: 4\n"), 0o644))

	tgt, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, tgt.LongSize)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "reading target")
}
