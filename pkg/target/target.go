// Package target describes the machine a translation unit is parsed for.
package target

import (
	"os"
	"slices"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Target is a target descriptor. Only the properties that change how C
// source is typed are described.
type Target struct {
	Name        string `yaml:"name"`
	Arch        string `yaml:"arch"`
	System      string `yaml:"system"`
	PointerSize int    `yaml:"pointer_size"`
	LongSize    int    `yaml:"long_size"`
	// Typedefs are predefined type names, e.g. __builtin_va_list, mapped
	// to a C type name the parser understands.
	Typedefs map[string]string `yaml:"typedefs,omitempty"`
}

var builtins = map[string]Target{
	"x86_64-linux": {
		Name: "x86_64-linux", Arch: "x86_64", System: "linux",
		PointerSize: 8, LongSize: 8,
		Typedefs: map[string]string{"__builtin_va_list": "char *"},
	},
	"x86_64-windows": {
		Name: "x86_64-windows", Arch: "x86_64", System: "windows",
		PointerSize: 8, LongSize: 4,
		Typedefs: map[string]string{"__builtin_va_list": "char *"},
	},
}

// Default is the target used when none is given.
func Default() *Target {
	t, _ := Lookup("x86_64-linux")
	return t
}

// Names lists the built-in targets.
func Names() []string {
	var names []string
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns a copy of a built-in target.
func Lookup(name string) (*Target, error) {
	t, ok := builtins[name]
	if !ok {
		return nil, errors.Errorf("unknown target %q (known: %v)", name, Names())
	}
	return &t, nil
}

// Load reads a target descriptor from a YAML file.
func Load(path string) (*Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading target %s", path)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading target %s", path)
	}
	return t, nil
}

// Parse decodes a YAML target descriptor. Missing sizes default to the
// x86_64 System V values.
func Parse(data []byte) (*Target, error) {
	var t Target
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "decoding target")
	}
	if t.Name == "" {
		return nil, errors.New("target has no name")
	}
	if t.PointerSize == 0 {
		t.PointerSize = 8
	}
	if t.LongSize == 0 {
		t.LongSize = 8
	}
	if t.PointerSize != 8 {
		return nil, errors.Errorf("target %s: unsupported pointer size %d", t.Name, t.PointerSize)
	}
	if t.LongSize != 4 && t.LongSize != 8 {
		return nil, errors.Errorf("target %s: long must be 4 or 8 bytes, got %d", t.Name, t.LongSize)
	}
	return &t, nil
}

// IsWindows reports whether the target follows the Windows ABI.
func (t *Target) IsWindows() bool {
	return t.System == "windows"
}

func (t *Target) String() string {
	return t.Name
}
