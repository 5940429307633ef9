package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/kirraObj-s-archives/rowscript/internal/manifest"
	"github.com/kirraObj-s-archives/rowscript/internal/pipeline"
	"github.com/kirraObj-s-archives/rowscript/internal/repl"
)

var (
	// Version info - set by ldflags during build
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"

	// Color output
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	dim   = color.New(color.Faint).SprintFunc()
)

func main() {
	var (
		versionFlag  = flag.Bool("version", false, "Print version information")
		jsonFlag     = flag.Bool("json", false, "Print reports as JSON")
		emitFlag     = flag.Bool("emit", false, "Print the elaborated module")
		noColorFlag  = flag.Bool("no-color", false, "Disable colored output")
		manifestFlag = flag.String("manifest", "", "Project manifest (rowscript.yaml)")
	)
	flag.Usage = printHelp
	flag.Parse()

	if *noColorFlag || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	if *versionFlag {
		printVersion()
		return
	}
	if flag.NArg() == 0 {
		printHelp()
		os.Exit(2)
	}

	switch flag.Arg(0) {
	case "check":
		os.Exit(runCheck(flag.Args()[1:], *manifestFlag, *jsonFlag, *emitFlag))
	case "repl":
		runRepl(flag.Args()[1:])
	default:
		// Bare file arguments behave like check.
		os.Exit(runCheck(flag.Args(), *manifestFlag, *jsonFlag, *emitFlag))
	}
}

func runCheck(paths []string, manifestPath string, asJSON, emit bool) int {
	result, err := compile(paths, manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
		return 1
	}

	if !result.OK() {
		if asJSON {
			out, err := result.Reports.ToJSON(false)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
				return 1
			}
			fmt.Println(out)
		} else {
			for _, rep := range result.Reports.Reports() {
				loc := ""
				if rep.Span != nil {
					loc = rep.Span.String() + ": "
				}
				fmt.Fprintf(os.Stderr, "%s%s %s\n", dim(loc), red(rep.Code+":"), rep.Message)
			}
			fmt.Fprintf(os.Stderr, "%s %d report(s)\n", red("failed:"), result.Reports.Len())
		}
		return 1
	}

	if emit {
		out, err := result.Module.ToJSON(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Printf("%s %d definition(s), %d implementation(s)\n",
			green("ok:"), len(result.Module.Defs), len(result.Module.Impls))
	}
	return 0
}

func compile(paths []string, manifestPath string) (*pipeline.Result, error) {
	if len(paths) > 0 {
		return pipeline.CompileFiles(paths)
	}
	if manifestPath == "" {
		manifestPath = "rowscript.yaml"
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	return pipeline.CompileProject(m)
}

func runRepl(paths []string) {
	result, err := compileOrEmpty(paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
		os.Exit(1)
	}
	repl.New(result.Files, os.Stdout, Version).Run()
}

func compileOrEmpty(paths []string) (*pipeline.Result, error) {
	if len(paths) == 0 {
		return pipeline.Compile(nil), nil
	}
	result, err := pipeline.CompileFiles(paths)
	if err != nil {
		return nil, err
	}
	if !result.OK() {
		for _, rep := range result.Reports.Reports() {
			fmt.Fprintf(os.Stderr, "%s %s\n", red(rep.Code+":"), rep.Message)
		}
	}
	return result, nil
}

func printVersion() {
	fmt.Printf("%s %s\n", bold("rowscript"), Version)
	fmt.Printf("  commit: %s\n", Commit)
	fmt.Printf("  built:  %s\n", BuildTime)
}

func printHelp() {
	fmt.Println(bold("rowscript") + " — elaborator front-end")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rowscript check <file.json>...   elaborate parser-emitted surface files")
	fmt.Println("  rowscript repl [file.json...]    interactive type-at-prompt loop")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
