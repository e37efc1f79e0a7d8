package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
	"github.com/raymyers/cfront/pkg/parser"
	"github.com/raymyers/cfront/pkg/pool"
	"github.com/raymyers/cfront/pkg/profile"
	"github.com/raymyers/cfront/pkg/report"
	"github.com/raymyers/cfront/pkg/target"
	"github.com/raymyers/cfront/pkg/unit"
)

var version = "0.1.0"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Dump flags
var (
	dParse   bool
	dTypes   bool
	dExports bool
	jsonOut  bool
)

// Parser options
var (
	threads    int
	batchSize  int
	targetName string
	targetFile string
	entryName  string
	traceFile  string
	showTime   bool
)

// dumpFlagNames lists the flags that also accept the single-dash style.
var dumpFlagNames = []string{"dparse", "dtypes", "dexports"}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// normalizeFlags converts single-dash dump flags like -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = arg
		for _, name := range dumpFlagNames {
			if arg == "-"+name {
				result[i] = "--" + name
				break
			}
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cfront [files...]",
		Short: "cfront parses preprocessed C into typed ASTs",
		Long: `cfront is a C front-end. It parses preprocessed C files into a
compilation unit, lays out every type, checks static assertions and
links the units' exported symbols. Function bodies can be parsed on
several threads.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return compile(args, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	addDumpFlags(rootCmd.Flags())
	addParseFlags(rootCmd.Flags())

	return rootCmd
}

func addDumpFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&dParse, "dparse", false, "Dump the parsed declarations")
	flags.BoolVar(&dTypes, "dtypes", false, "Dump struct, union and enum layouts")
	flags.BoolVar(&dExports, "dexports", false, "Dump the linked export table")
	flags.BoolVar(&jsonOut, "json", false, "Write dumps as JSON")
}

func addParseFlags(flags *pflag.FlagSet) {
	flags.IntVarP(&threads, "threads", "j", 0, "Parse function bodies on N worker threads")
	flags.IntVar(&batchSize, "batch-size", parser.DefaultBatchSize, "Top-level declarations per body-parsing batch")
	flags.StringVar(&targetName, "target", "x86_64-linux", fmt.Sprintf("Built-in target %v", target.Names()))
	flags.StringVar(&targetFile, "target-file", "", "Load the target descriptor from a YAML file")
	flags.StringVar(&entryName, "entry", "", "Name of a custom entry point function")
	flags.StringVar(&traceFile, "trace", "", "Write a Chrome trace of the parse phases to FILE")
	flags.BoolVar(&showTime, "time", false, "Print a summary of time spent per phase")
}

// compileOptions is everything compile needs besides the file list.
type compileOptions struct {
	target   *target.Target
	pool     pool.Pool
	profiler profile.Profiler
}

func loadTarget() (*target.Target, error) {
	if targetFile != "" {
		return target.Load(targetFile)
	}
	return target.Lookup(targetName)
}

func compile(files []string, out, errOut io.Writer) error {
	tgt, err := loadTarget()
	if err != nil {
		fmt.Fprintf(errOut, "cfront: %v\n", err)
		return err
	}
	opts := compileOptions{target: tgt}

	if threads > 0 {
		workers := pool.New(threads)
		defer workers.Close()
		opts.pool = workers
	}

	var summary *profile.Summary
	var trace *profile.Trace
	var profilers profile.Multi
	if showTime {
		summary = &profile.Summary{}
		profilers = append(profilers, summary)
	}
	if traceFile != "" {
		trace = profile.NewTrace()
		profilers = append(profilers, trace)
	}
	if len(profilers) > 0 {
		opts.profiler = profilers
	}

	start := time.Now()
	cu := unit.NewCompilationUnit()
	defer cu.Destroy()
	for _, filename := range files {
		tu, err := parseFile(filename, opts, errOut)
		if err != nil {
			return err
		}
		if err := cu.Add(tu); err != nil {
			return err
		}
	}
	cu.InternalLink()

	if err := dump(cu, out); err != nil {
		fmt.Fprintf(errOut, "cfront: %v\n", err)
		return err
	}
	if trace != nil {
		if err := writeTrace(trace, traceFile); err != nil {
			fmt.Fprintf(errOut, "cfront: %v\n", err)
			return err
		}
	}
	if summary != nil {
		printSummary(errOut, summary, cu, time.Since(start))
	}
	return nil
}

// parseFile reads, tokenizes and parses one preprocessed C file.
func parseFile(filename string, opts compileOptions, errOut io.Writer) (*unit.TranslationUnit, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(errOut, "cfront: error reading %s: %v\n", filename, err)
		return nil, errors.Wrapf(err, "reading %s", filename)
	}
	tokens, err := lexer.Tokenize(filename, string(content))
	if err != nil {
		fmt.Fprintf(errOut, "cfront: %v\n", err)
		return nil, errors.Wrapf(err, "tokenizing %s", filename)
	}

	tu, err := parser.ParseTranslationUnit(parser.Desc{
		Tokens:    tokens,
		Reporter:  report.NewReporter(errOut, &report.Status{}),
		Target:    opts.target,
		Pool:      opts.pool,
		Profiler:  opts.profiler,
		BatchSize: batchSize,
		EntryName: entryName,
	})
	if err != nil {
		fmt.Fprintf(errOut, "cfront: %s: %v\n", filename, err)
		return nil, err
	}
	return tu, nil
}

func dump(cu *unit.CompilationUnit, out io.Writer) error {
	if dParse {
		if err := dumpParse(cu, out); err != nil {
			return err
		}
	}
	if dTypes {
		if err := dumpTypes(cu, out); err != nil {
			return err
		}
	}
	if dExports {
		if err := dumpExports(cu, out); err != nil {
			return err
		}
	}
	return nil
}

// declJSON is the JSON form of one top-level declaration.
type declJSON struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
	File string `json:"file"`
	Line int    `json:"line"`
}

func describeDecl(tu *unit.TranslationUnit, s cabs.Stmt) declJSON {
	d := declJSON{File: tu.File(s.Pos()), Line: tu.Line(s.Pos())}
	switch s := s.(type) {
	case *cabs.FuncDecl:
		d.Kind, d.Name, d.Type = "function", s.Name, s.Type.String()
	case *cabs.GlobalDecl:
		d.Name, d.Type = s.Name, s.Type.String()
		switch {
		case s.Name == "":
			d.Kind = "tag"
		case s.Attrs.IsTypedef:
			d.Kind = "typedef"
		case s.Type.Unqualified().Kind == ctypes.KindFunc:
			d.Kind = "prototype"
		default:
			d.Kind = "variable"
		}
	}
	return d
}

func dumpParse(cu *unit.CompilationUnit, out io.Writer) error {
	if jsonOut {
		var decls []declJSON
		for _, tu := range cu.Units() {
			for _, s := range tu.TopLevel {
				decls = append(decls, describeDecl(tu, s))
			}
		}
		return writeJSON(out, decls)
	}
	p := cabs.NewPrinter(out)
	for _, tu := range cu.Units() {
		fmt.Fprintf(out, "// %s\n", tu.Filename)
		p.PrintTopLevel(tu.TopLevel)
	}
	return nil
}

type memberJSON struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Offset    int    `json:"offset"`
	BitOffset int    `json:"bit_offset,omitempty"`
	BitWidth  int    `json:"bit_width,omitempty"`
}

type typeJSON struct {
	Name    string       `json:"name"`
	Size    int          `json:"size"`
	Align   int          `json:"align"`
	Members []memberJSON `json:"members,omitempty"`
	Values  []int64      `json:"values,omitempty"`
}

// namedTypes lists the unit's records and enums in declaration order.
// Qualified and typedef'd copies share their Record or Enum and are listed
// once.
func namedTypes(tu *unit.TranslationUnit) []typeJSON {
	var out []typeJSON
	seen := map[any]bool{}
	for _, t := range tu.Types.Types() {
		switch {
		case t.Record != nil && seen[t.Record], t.Enum != nil && seen[t.Enum]:
			continue
		case t.Kind.IsRecord() && !t.IsIncomplete:
			seen[t.Record] = true
			tj := typeJSON{Name: t.String(), Size: t.Size, Align: t.Align}
			for _, m := range t.Record.Members {
				mj := memberJSON{Name: m.Name, Type: m.Type.String(), Offset: m.Offset}
				if m.IsBitfield {
					mj.BitOffset, mj.BitWidth = m.BitOffset, m.BitWidth
				}
				tj.Members = append(tj.Members, mj)
			}
			out = append(out, tj)
		case t.Kind == ctypes.KindEnum && t.Enum != nil:
			seen[t.Enum] = true
			tj := typeJSON{Name: t.String(), Size: t.Size, Align: t.Align}
			for _, e := range t.Enum.Entries {
				tj.Values = append(tj.Values, e.Value)
			}
			out = append(out, tj)
		}
	}
	return out
}

func dumpTypes(cu *unit.CompilationUnit, out io.Writer) error {
	if jsonOut {
		all := map[string][]typeJSON{}
		for _, tu := range cu.Units() {
			all[tu.Filename] = namedTypes(tu)
		}
		return writeJSON(out, all)
	}
	for _, tu := range cu.Units() {
		fmt.Fprintf(out, "// %s\n", tu.Filename)
		for _, t := range namedTypes(tu) {
			fmt.Fprintf(out, "%s: size %d, align %d\n", t.Name, t.Size, t.Align)
			for _, m := range t.Members {
				if m.BitWidth > 0 {
					fmt.Fprintf(out, "  %s %s: offset %d, bits %d:%d\n", m.Type, m.Name, m.Offset, m.BitOffset, m.BitWidth)
				} else {
					fmt.Fprintf(out, "  %s %s: offset %d\n", m.Type, m.Name, m.Offset)
				}
			}
		}
	}
	return nil
}

type exportJSON struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// exportsOf resolves every exported name back to its unit for its location.
func exportsOf(cu *unit.CompilationUnit) []exportJSON {
	owner := map[cabs.Stmt]*unit.TranslationUnit{}
	for _, tu := range cu.Units() {
		for _, s := range tu.TopLevel {
			owner[s] = tu
		}
	}
	var out []exportJSON
	for _, name := range cu.Exports() {
		s, _ := cu.Export(name)
		d := describeDecl(owner[s], s)
		out = append(out, exportJSON{Name: name, Kind: d.Kind, File: d.File, Line: d.Line})
	}
	return out
}

func dumpExports(cu *unit.CompilationUnit, out io.Writer) error {
	exports := exportsOf(cu)
	if jsonOut {
		return writeJSON(out, exports)
	}
	for _, e := range exports {
		fmt.Fprintf(out, "%s %s (%s:%d)\n", e.Kind, e.Name, e.File, e.Line)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTrace(trace *profile.Trace, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "creating %s", filename)
	}
	defer f.Close()
	if _, err := trace.WriteTo(f); err != nil {
		return errors.Wrapf(err, "writing %s", filename)
	}
	return nil
}

func printSummary(w io.Writer, summary *profile.Summary, cu *unit.CompilationUnit, total time.Duration) {
	var tokens, nodes int
	for _, tu := range cu.Units() {
		tokens += tu.Tokens.Len()
		nodes += tu.NodeCount()
	}
	fmt.Fprintf(w, "cfront: %s files, %s tokens, %s AST nodes in %s\n",
		humanize.Comma(int64(cu.Count())), humanize.Comma(int64(tokens)), humanize.Comma(int64(nodes)), total.Round(time.Microsecond))
	for _, e := range summary.Entries() {
		fmt.Fprintf(w, "  %-32s %12s  x%s\n", e.Label, e.Total.Round(time.Microsecond), humanize.Comma(int64(e.Count)))
	}
}
