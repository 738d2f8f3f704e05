// Package host implements reference front ends for the engine: a
// non-interactive line-mode reader for piped/non-TTY use, and an
// interactive tview/tcell reader with Sixel image preview.
package host

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/types"
	"github.com/PolishRoute/ideal-guacamole/internal/engine/vm"
	"github.com/PolishRoute/ideal-guacamole/internal/log"
)

// LineHost drives the engine over a plain reader/writer pair: every Text
// event is printed and every Choice is read back as a 1-based number.
// This is the host used when stdout is not a terminal.
type LineHost struct {
	Engine *vm.EngineState
	In     io.Reader
	Out    io.Writer
}

// NewLineHost constructs a LineHost bound to the given engine and streams.
func NewLineHost(engine *vm.EngineState, in io.Reader, out io.Writer) *LineHost {
	return &LineHost{Engine: engine, In: in, Out: out}
}

// Run drives the engine to completion, printing text and resolving
// choices/jumps from stdin, returning when the script reaches Exit.
func (h *LineHost) Run() error {
	scanner := bufio.NewScanner(h.In)
	for {
		res, err := h.Engine.Step()
		if err != nil {
			return fmt.Errorf("stepping engine: %w", err)
		}

		switch v := res.(type) {
		case types.ExitResult:
			fmt.Fprintln(h.Out, "// Exitted!")
			return nil
		case types.ContinueResult, types.ClearResult:
			// no host-visible effect
		case types.TextResult:
			if v.Speaker != nil {
				fmt.Fprintf(h.Out, "%s: %s\n", *v.Speaker, v.Body)
			} else {
				fmt.Fprintln(h.Out, v.Body)
			}
		case types.BackgroundResult:
			fmt.Fprintf(h.Out, "// background: %s\n", v.Path)
		case types.ImageResult:
			fmt.Fprintf(h.Out, "// image[%s]: %s\n", v.Slot, v.Path)
		case types.SoundResult:
			fmt.Fprintf(h.Out, "// sound: %s\n", v.Name)
		case types.MusicResult:
			fmt.Fprintf(h.Out, "// music: %s\n", v.Name)
		case types.ChoiceResult:
			choice := h.readChoice(scanner, v.Options)
			h.Engine.SetChoice(choice)
		case types.JumpResult:
			log.Debug("line host loading script", "name", v.ScriptName)
			if err := h.Engine.LoadScript(v.ScriptName); err != nil {
				return fmt.Errorf("loading script %s: %w", v.ScriptName, err)
			}
		default:
			return fmt.Errorf("line host: unhandled step result %T", res)
		}
	}
}

func (h *LineHost) readChoice(scanner *bufio.Scanner, options []string) int {
	for i, opt := range options {
		fmt.Fprintf(h.Out, " %d. %s\n", i+1, opt)
	}
	for {
		fmt.Fprint(h.Out, ">> ")
		if !scanner.Scan() {
			return 0
		}
		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1
		}
	}
}
