// Command scriptgraph compiles a visual-novel script and writes its
// control-flow graph as Graphviz DOT or SVG, for offline review of branch
// structure without running the interpreter.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/PolishRoute/ideal-guacamole/internal/diagnostics"
	"github.com/PolishRoute/ideal-guacamole/internal/engine/compiler"
)

func main() {
	var (
		scriptPath = flag.String("script", "", "path to the .scr file to analyze")
		outputPath = flag.String("output", "", "output file path (writes to stdout if not specified)")
		format     = flag.String("format", "dot", "output format: dot or svg")
	)
	flag.Parse()

	if *scriptPath == "" {
		fmt.Fprintln(os.Stderr, "scriptgraph: -script is required")
		os.Exit(1)
	}

	if err := run(*scriptPath, *outputPath, *format); err != nil {
		fmt.Fprintf(os.Stderr, "scriptgraph: %v\n", err)
		os.Exit(1)
	}
}

func run(scriptPath, outputPath, format string) error {
	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("opening script: %w", err)
	}
	defer f.Close()

	script, err := compiler.Compile(scriptPath, f)
	if err != nil {
		return fmt.Errorf("compiling script: %w", err)
	}

	cfg, err := diagnostics.Build(script)
	if err != nil {
		return fmt.Errorf("building control-flow graph: %w", err)
	}

	unreachable, err := cfg.UnreachableOffsets()
	if err != nil {
		return fmt.Errorf("checking reachability: %w", err)
	}
	for _, pc := range unreachable {
		fmt.Fprintf(os.Stderr, "scriptgraph: warning: instruction %d is unreachable\n", pc)
	}

	var data []byte
	switch format {
	case "dot":
		var buf bytes.Buffer
		if err := cfg.RenderDOT(&buf); err != nil {
			return err
		}
		data = buf.Bytes()
	case "svg":
		data, err = cfg.RenderSVG(context.Background())
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want dot or svg)", format)
	}

	if outputPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}
