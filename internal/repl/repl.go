// Package repl implements the type-at-prompt loop: paste a surface
// expression tree (JSON), get back the elaborated core term and its
// type against the loaded program.
package repl

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
	"github.com/kirraObj-s-archives/rowscript/internal/pipeline"
)

// Color functions for pretty output
var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// itModule is the synthetic module the prompt's expressions live in.
const itModule = "repl"

// REPL holds the loaded program, the output writer and the prompt
// counter; the line editor is created inside Run.
type REPL struct {
	files   []*ast.File
	out     io.Writer
	version string
	counter int
}

// New creates a REPL over already-decoded program files.
func New(files []*ast.File, out io.Writer, version string) *REPL {
	return &REPL{files: files, out: out, version: version}
}

// Run starts the loop. It returns when the user quits or input ends.
func (r *REPL) Run() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Fprintf(r.out, "%s %s — type :help for commands\n", bold("rowscript"), dim(r.version))

	for {
		// liner does not support ANSI colors in the prompt.
		input, err := line.Prompt("rs> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(r.out, dim("bye"))
				return
			}
			fmt.Fprintln(r.out, red(err.Error()))
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			if r.command(input) {
				return
			}
			continue
		}
		r.eval(input)
	}
}

// command handles a colon command; it returns true on quit.
func (r *REPL) command(input string) bool {
	switch strings.Fields(input)[0] {
	case ":quit", ":q":
		fmt.Fprintln(r.out, dim("bye"))
		return true
	case ":help", ":h":
		fmt.Fprintln(r.out, "  <expr-json>   elaborate an expression and print its core form and type")
		fmt.Fprintln(r.out, "  :defs         list elaborated definitions")
		fmt.Fprintln(r.out, "  :instances    list registered implementations")
		fmt.Fprintln(r.out, "  :quit         leave")
	case ":defs":
		result := pipeline.Compile(r.files)
		var names []string
		for _, d := range result.Module.Defs {
			names = append(names, fmt.Sprintf("%s %s : %s", dim(d.Cat), bold(d.Name), typeOf(d.Type)))
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintln(r.out, "  "+n)
		}
	case ":instances":
		result := pipeline.Compile(r.files)
		for _, im := range result.Module.Impls {
			fmt.Fprintf(r.out, "  %s for %s  %s\n", cyan(im.Interface), bold(im.CarrierHead), dim(im.Name))
		}
	default:
		fmt.Fprintln(r.out, red("unknown command; :help lists them"))
	}
	return false
}

// eval wraps the expression in a synthetic const definition, recompiles
// the program, and prints the elaborated result.
func (r *REPL) eval(input string) {
	expr, err := ast.DecodeExpr([]byte(input))
	if err != nil {
		fmt.Fprintf(r.out, "%s %s\n", red("parse:"), err)
		return
	}

	r.counter++
	name := fmt.Sprintf("it%d", r.counter)
	probe := &ast.File{
		Path: itModule,
		Defs: []ast.Def{&ast.ConstDef{Name: name, Value: expr}},
	}
	// The prompt sees every loaded definition unqualified.
	for _, f := range r.files {
		var names []string
		for _, d := range f.Defs {
			if n := d.DefName(); n != "" {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			probe.Imports = append(probe.Imports, &ast.ImportDecl{
				Kind:  ast.ImportNames,
				Path:  []string{f.Path},
				Names: names,
			})
		}
	}

	files := append(append([]*ast.File(nil), r.files...), probe)
	result := pipeline.Compile(files)

	if !result.OK() {
		for _, rep := range result.Reports.Reports() {
			fmt.Fprintf(r.out, "%s %s\n", red(rep.Code+":"), rep.Message)
		}
		return
	}
	def := result.Module.Def(name)
	if def == nil {
		fmt.Fprintln(r.out, red("internal: probe definition vanished"))
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", green("="), def.Body)
	fmt.Fprintf(r.out, "%s %s\n", dim(":"), cyan(typeOf(def.Type)))
	if len(def.Preds) > 0 {
		fmt.Fprintf(r.out, "%s %s\n", dim("where"), yellow(strings.Join(def.Preds, ", ")))
	}
}

func typeOf(t fmt.Stringer) string {
	if t == nil {
		return "?"
	}
	return t.String()
}
