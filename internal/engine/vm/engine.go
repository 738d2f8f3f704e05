// Package vm implements the stack-less, step-driven bytecode interpreter:
// EngineState owns compiled scripts, variable memory, and the media mirrors
// a host needs to restore a scene after reload. Step executes exactly one
// instruction per call and suspends at the next host-visible event.
package vm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/compiler"
	"github.com/PolishRoute/ideal-guacamole/internal/engine/types"
	"github.com/PolishRoute/ideal-guacamole/internal/log"
)

const mainScript = "main.scr"

const selectedVar = "selected"

// EngineState is the interpreter's full runtime state: compiled scripts,
// variable memory, program counter, and the last-seen media mirrors that
// Load replays after a restore.
type EngineState struct {
	directory string

	scripts map[string]*types.Script
	memory  map[string]map[int]string

	currentScript string
	pc            int
	pcToSave      int

	lastMusic      *string
	lastBackground *string
	lastMainImage  *string
	lastDateImage  *string

	driverState DriverState
}

// New compiles main.scr eagerly and returns a ready-to-step EngineState
// rooted at directory (which must contain a Scripts/ subdirectory).
func New(directory string) (*EngineState, error) {
	e := &EngineState{
		directory: directory,
		scripts:   make(map[string]*types.Script),
		memory:    make(map[string]map[int]string),
	}
	if err := e.LoadScript(mainScript); err != nil {
		return nil, err
	}
	return e, nil
}

// Directory returns the game root this engine was constructed with.
func (e *EngineState) Directory() string {
	return e.directory
}

// DriverState returns the current introspection-only state label.
func (e *EngineState) DriverState() DriverState {
	return e.driverState
}

// CurrentScript returns the name of the script currently executing.
func (e *EngineState) CurrentScript() string {
	return e.currentScript
}

// LoadScript compiles Scripts/<name> (caching the result) and resets pc to
// the start of that script. Call this after a Step returns JumpResult.
func (e *EngineState) LoadScript(name string) error {
	script, err := e.compileScript(name)
	if err != nil {
		return err
	}
	e.scripts[name] = script
	e.currentScript = name
	e.pc = 0
	e.pcToSave = 0
	e.driverState = RunningSilent
	log.Debug("loaded script", "name", name, "instructions", script.Len())
	return nil
}

func (e *EngineState) compileScript(name string) (*types.Script, error) {
	path := filepath.Join(e.directory, "Scripts", name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening script %s: %w", name, err)
	}
	defer f.Close()

	script, err := compiler.Compile(name, f)
	if err != nil {
		return nil, fmt.Errorf("compiling script %s: %w", name, err)
	}
	return script, nil
}

// SetChoice writes the 1-based selected index into memory["selected"][0].
// i is 0-based. Meaningful only while the driver is AwaitingChoice; it does
// not advance pc.
func (e *EngineState) SetChoice(i int) {
	e.insertLiteral(selectedVar, strconv.Itoa(i+1))
	e.driverState = RunningSilent
}

func (e *EngineState) insertLiteral(name, val string) {
	e.memory[name] = map[int]string{0: val}
}

// insert writes val into the memory cell addressed by target, which must
// be a literal (is_ref=false) binding — writing through a reference is
// reserved and not yet supported, matching the original interpreter's
// unimplemented() branch.
func (e *EngineState) insert(target types.VarOrConst, val string) error {
	if target.IsRef {
		return types.NewRuntimeError("cannot write through a reference: %s", target)
	}
	index := target.IndexOrZero()
	cell, ok := e.memory[target.Name]
	if !ok {
		cell = make(map[int]string)
		e.memory[target.Name] = cell
	}
	cell[index] = val
	return nil
}

// getVar resolves a VarOrConst: a non-reference value is itself the
// literal; a reference is looked up by name and index in memory.
func (e *EngineState) getVar(v types.VarOrConst) (string, bool) {
	if !v.IsRef {
		return v.Name, true
	}
	index := v.IndexOrZero()
	cell, ok := e.memory[v.Name]
	if !ok {
		return "", false
	}
	val, ok := cell[index]
	return val, ok
}

// Step executes the instruction at pc and returns exactly one host-visible
// result. An out-of-bounds pc returns ExitResult. Step never loops
// internally; collapsing contiguous Continue results, if desired, is the
// host's job.
func (e *EngineState) Step() (types.StepResult, error) {
	script := e.scripts[e.currentScript]
	instr := script.At(e.pc)
	if instr == nil {
		e.driverState = Terminal
		return types.ExitResult{}, nil
	}

	log.Debug("step", "script", e.currentScript, "pc", e.pc)

	switch v := instr.(type) {
	case types.ClearTextInstr:
		e.pc++
		e.driverState = RunningSilent
		return types.ClearResult{}, nil

	case types.SetVarInstr:
		if err := e.insert(v.Target, v.Value); err != nil {
			log.Error("setvar failed", "error", err)
			return nil, err
		}
		e.pc++
		e.driverState = RunningSilent
		return types.ContinueResult{}, nil

	case types.GSetVarInstr:
		if err := e.insert(v.Target, v.Value); err != nil {
			log.Error("gsetvar failed", "error", err)
			return nil, err
		}
		e.pc++
		e.driverState = RunningSilent
		return types.ContinueResult{}, nil

	case types.BgLoadInstr:
		name, ok := e.getVar(v.Ref)
		if !ok {
			err := types.NewRuntimeError("bgload: undefined variable %s", v.Ref)
			log.Error("bgload failed", "error", err)
			return nil, err
		}
		path := filepath.Join(e.directory, "CG", name)
		e.lastBackground = &path
		e.pc++
		e.driverState = RunningSilent
		return types.BackgroundResult{Path: path}, nil

	case types.SetImgInstr:
		name, ok := e.getVar(v.Ref)
		if !ok {
			err := types.NewRuntimeError("setimg: undefined variable %s", v.Ref)
			log.Error("setimg failed", "error", err)
			return nil, err
		}
		path := filepath.Join(e.directory, "CGAlt", name)
		slot := types.SlotMain
		if v.Ref.Name == "DATEIMAGE" {
			slot = types.SlotDate
			e.lastDateImage = &path
		} else {
			e.lastMainImage = &path
		}
		e.pc++
		e.driverState = RunningSilent
		return types.ImageResult{Path: path, Slot: slot, X: v.X, Y: v.Y}, nil

	case types.DelayInstr:
		e.pc++
		e.driverState = RunningSilent
		return types.ContinueResult{}, nil

	case types.BranchInstr:
		lhs, ok := e.getVar(v.Ref)
		if !ok {
			err := types.NewRuntimeError("if: undefined variable %s", v.Ref)
			log.Error("branch failed", "error", err)
			return nil, err
		}
		if v.Op.Compare(lhs, v.Lit) {
			e.pc++
		} else {
			e.pc = v.ElsePC
		}
		e.driverState = RunningSilent
		return types.ContinueResult{}, nil

	case types.TextInstr:
		e.pcToSave = e.pc
		e.pc++
		e.driverState = AwaitingAdvance
		return types.TextResult{Speaker: v.Speaker, Body: v.Body}, nil

	case types.GotoInstr:
		if !v.Target.IsOffset() {
			err := types.NewRuntimeError("goto: unresolved label reached dispatch: %s", v.Target)
			log.Error("goto failed", "error", err)
			return nil, err
		}
		e.pc = v.Target.Value
		e.driverState = RunningSilent
		return types.ContinueResult{}, nil

	case types.SoundInstr:
		e.pc++
		e.driverState = RunningSilent
		return types.SoundResult{Name: v.Name}, nil

	case types.MusicInstr:
		name := v.Name
		e.lastMusic = &name
		e.pc++
		e.driverState = RunningSilent
		return types.MusicResult{Name: v.Name}, nil

	case types.ChoiceInstr:
		e.pcToSave = e.pc
		e.pc++
		e.SetChoice(0)
		opts := make([]string, len(v.Refs))
		for i, ref := range v.Refs {
			val, ok := e.getVar(ref)
			if !ok {
				err := types.NewRuntimeError("choice: undefined variable %s", ref)
				log.Error("choice failed", "error", err)
				return nil, err
			}
			opts[i] = val
		}
		e.driverState = AwaitingChoice
		return types.ChoiceResult{Options: opts}, nil

	case types.JumpInstr:
		e.driverState = AwaitingScriptLoad
		return types.JumpResult{ScriptName: v.ScriptName}, nil

	default:
		err := types.NewRuntimeError("unhandled instruction type %T at pc %d", instr, e.pc)
		log.Error("step failed", "error", err)
		return nil, err
	}
}
