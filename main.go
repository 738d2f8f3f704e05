package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/vm"
	"github.com/PolishRoute/ideal-guacamole/internal/host"
	"github.com/PolishRoute/ideal-guacamole/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("GLOBAL PANIC recovered", "error", r, "stack", string(debug.Stack()))
			fmt.Fprintln(os.Stderr, "Application crashed. See engine_debug.log for details.")
			os.Exit(1)
		}
	}()

	if err := log.SetFileOutput("engine_debug.log"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not configure debug logging to file: %v\n", err)
	}
	log.Info("starting", "version", version, "commit", commit, "date", date)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGABRT, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-signalChan
		log.Error("SIGNAL RECEIVED", "signal", sig.String(), "stack", string(debug.Stack()))
		fmt.Fprintf(os.Stderr, "received signal %s, exiting\n", sig.String())
		os.Exit(1)
	}()

	directory := "."
	if len(os.Args) > 1 {
		directory = os.Args[1]
	}

	engine, err := vm.New(directory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing engine: %v\n", err)
		os.Exit(1)
	}

	var runErr error
	if isatty.IsTerminal(os.Stdout.Fd()) {
		runErr = host.NewTUIHost(engine).Run()
	} else {
		log.Info("stdout is not a terminal, falling back to line-mode host")
		runErr = host.NewLineHost(engine, os.Stdin, os.Stdout).Run()
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error running engine: %v\n", runErr)
		os.Exit(1)
	}
}
