// Package compiler implements the two-pass script compiler: tokenize each
// line, dispatch on the first token into an Instruction, then resolve
// forward label references and patch conditional branch else-targets.
package compiler

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/types"
	"github.com/PolishRoute/ideal-guacamole/internal/log"
)

// emitter accumulates instructions for a single script and tracks the
// compile-time label table used to resolve Goto targets.
type emitter struct {
	file       string
	code       []types.Instruction
	labels     map[types.Label]int
	lastBranch *int // code offset of the most recently opened, unclosed if
}

func newEmitter(file string) *emitter {
	return &emitter{
		file:   file,
		labels: make(map[types.Label]int),
	}
}

func (e *emitter) emit(instr types.Instruction) int {
	e.code = append(e.code, instr)
	return len(e.code) - 1
}

func (e *emitter) beginBranch(offset int) {
	if e.lastBranch != nil {
		log.Warn("nested if before matching fi; single-slot branch stack overwrites the earlier branch target",
			"file", e.file, "previous_branch_offset", *e.lastBranch, "new_branch_offset", offset)
	}
	o := offset
	e.lastBranch = &o
}

func (e *emitter) endBranch(lineno int) error {
	if e.lastBranch == nil {
		return &types.CompileError{File: e.file, Line: lineno, Message: "fi without a matching if"}
	}
	branchPC := *e.lastBranch
	e.lastBranch = nil
	branch, ok := e.code[branchPC].(types.BranchInstr)
	if !ok {
		return &types.CompileError{File: e.file, Line: lineno, Message: "internal error: last_branch did not point at a Branch instruction"}
	}
	branch.ElsePC = len(e.code)
	e.code[branchPC] = branch
	return nil
}

func (e *emitter) makeLabel(label types.Label) {
	e.labels[label] = len(e.code)
}

// resolve rewrites every Goto's Named/Indexed target to a resolved Offset,
// per the label table built during the line pass. Unresolved labels are
// fatal.
func (e *emitter) resolve() (*types.Script, error) {
	for i, instr := range e.code {
		g, ok := instr.(types.GotoInstr)
		if !ok {
			continue
		}
		offset, ok := e.labels[g.Target]
		if !ok {
			return nil, &types.CompileError{
				File:    e.file,
				Message: fmt.Sprintf("unresolved label %s", g.Target),
			}
		}
		g.Target = types.OffsetLabel(offset)
		e.code[i] = g
	}
	return &types.Script{Name: e.file, Code: e.code}, nil
}

// Compile reads one script's worth of text (one directive per line) and
// produces a compiled Script. name is used purely for error context and as
// the resulting Script's Name.
func Compile(name string, r io.Reader) (*types.Script, error) {
	e := newEmitter(name)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := e.compileLine(line, lineno); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading script %s: %w", name, err)
	}

	return e.resolve()
}

func (e *emitter) compileError(lineno int, format string, args ...any) error {
	return &types.CompileError{File: e.file, Line: lineno, Message: fmt.Sprintf(format, args...)}
}

// compileLine dispatches on the first whitespace-delimited token of the
// line. The keyword itself is pulled with a 2-way split (one token plus a
// raw remainder); each directive then re-splits that remainder with its own
// limit, sized to the number of fields it needs. A single shared 3-way split
// of the whole line can't serve every directive — "if" and "setimg" need
// three fields after the keyword, one more than a 3-way split of the full
// line leaves room for — so the split is per-directive instead, the same
// way "text" and "choice" already re-slice the raw line for their payloads.
func (e *emitter) compileLine(line string, lineno int) error {
	head := splitArgs(line, 2)
	if len(head) == 0 {
		return nil
	}
	keyword := head[0]
	rest := ""
	if len(head) == 2 {
		rest = head[1]
	}

	switch keyword {
	case "cleartext":
		if rest != "" {
			return e.compileError(lineno, "cleartext takes no arguments, got %q", rest)
		}
		e.emit(types.ClearTextInstr{})

	case "setvar", "gsetvar":
		return e.compileSetVar(keyword, rest, lineno)

	case "bgload":
		return e.compileBgLoad(rest, lineno)

	case "setimg":
		return e.compileSetImg(rest, lineno)

	case "delay":
		return e.compileDelay(rest, lineno)

	case "if":
		return e.compileIf(rest, lineno)

	case "fi":
		if rest != "" {
			return e.compileError(lineno, "fi takes no arguments, got %q", rest)
		}
		return e.endBranch(lineno)

	case "text":
		return e.compileText(line, lineno)

	case "goto":
		return e.compileGoto(rest, lineno)

	case "label":
		return e.compileLabel(rest, lineno)

	case "sound":
		return e.compileSound(rest, lineno)

	case "music":
		if rest == "" {
			return e.compileError(lineno, "music requires a file name")
		}
		e.emit(types.MusicInstr{Name: rest})

	case "choice":
		return e.compileChoice(line, lineno)

	case "jump":
		if rest == "" {
			return e.compileError(lineno, "jump requires a target script name")
		}
		e.emit(types.JumpInstr{ScriptName: rest})

	default:
		return e.compileError(lineno, "unknown directive %q", keyword)
	}
	return nil
}

// compileSetVar handles both dispatch-table shapes for setvar/gsetvar:
// "name value" and "name (= | - | +) value". Splitting the remainder with
// limit=3 gives at most two bare tokens (name, and either value or the
// operator) plus one raw merged tail, so the two shapes land as 2 or 3
// parts respectively.
func (e *emitter) compileSetVar(keyword, rest string, lineno int) error {
	parts := splitArgs(rest, 3)
	var rawValue string
	switch len(parts) {
	case 2:
		rawValue = parts[1]
	case 3:
		switch parts[1] {
		case "=", "-", "+":
		default:
			return e.compileError(lineno, "%s: unknown operator %q", keyword, parts[1])
		}
		rawValue = parts[2]
	default:
		return e.compileError(lineno, "%s requires 'name value', got %q", keyword, rest)
	}

	target, err := parseVarRef(parts[0])
	if err != nil {
		return e.compileError(lineno, "%v", err)
	}
	value := unescape(rawValue)
	if keyword == "gsetvar" {
		e.emit(types.GSetVarInstr{Target: target, Value: value})
	} else {
		e.emit(types.SetVarInstr{Target: target, Value: value})
	}
	return nil
}

// compileBgLoad splits the remainder with limit=2: one bare token (ref)
// plus an optional raw tail (fade time).
func (e *emitter) compileBgLoad(rest string, lineno int) error {
	parts := splitArgs(rest, 2)
	if len(parts) == 0 {
		return e.compileError(lineno, "bgload requires 'ref [time]'")
	}
	ref, err := parseVarRef(parts[0])
	if err != nil {
		return e.compileError(lineno, "%v", err)
	}
	if len(parts) == 1 {
		e.emit(types.BgLoadInstr{Ref: ref})
		return nil
	}
	t, err := strconv.Atoi(parts[1])
	if err != nil {
		return e.compileError(lineno, "bgload: bad fade time %q: %v", parts[1], err)
	}
	e.emit(types.BgLoadInstr{Ref: ref, FadeTime: &t})
	return nil
}

// compileSetImg splits the remainder with limit=4: three bare tokens
// (ref, x, y), with no trailing content expected.
func (e *emitter) compileSetImg(rest string, lineno int) error {
	parts := splitArgs(rest, 4)
	if len(parts) != 3 {
		return e.compileError(lineno, "setimg requires 'ref x y', got %q", rest)
	}
	ref, err := parseVarRef(parts[0])
	if err != nil {
		return e.compileError(lineno, "%v", err)
	}
	x, err := strconv.Atoi(parts[1])
	if err != nil {
		return e.compileError(lineno, "setimg: bad x %q: %v", parts[1], err)
	}
	y, err := strconv.Atoi(parts[2])
	if err != nil {
		return e.compileError(lineno, "setimg: bad y %q: %v", parts[2], err)
	}
	e.emit(types.SetImgInstr{Ref: ref, X: x, Y: y})
	return nil
}

func (e *emitter) compileDelay(rest string, lineno int) error {
	if rest == "" {
		return e.compileError(lineno, "delay requires a single integer argument")
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return e.compileError(lineno, "delay: bad duration %q: %v", rest, err)
	}
	e.emit(types.DelayInstr{Units: n})
	return nil
}

// compileIf splits the remainder with limit=3: two bare tokens (ref, op)
// plus the raw tail as the comparison literal, which may itself contain
// embedded spaces.
func (e *emitter) compileIf(rest string, lineno int) error {
	parts := splitArgs(rest, 3)
	if len(parts) != 3 {
		return e.compileError(lineno, "if requires 'ref op literal', got %q", rest)
	}
	ref, err := parseVarRef(parts[0])
	if err != nil {
		return e.compileError(lineno, "%v", err)
	}
	// The if form unconditionally forces IsRef=true on its left operand,
	// regardless of syntactic '$', matching observed behavior.
	ref.IsRef = true

	op, ok := types.ParseOperator(parts[1])
	if !ok {
		return e.compileError(lineno, "if: unknown comparison operator %q", parts[1])
	}

	// The placeholder else-target is "the next instruction" — a no-op
	// fallthrough — so that an if left unclosed by a matching fi behaves
	// as a skip rather than looping back on itself. fi overwrites this
	// with the real join point; scripts that do close their branch never
	// observe the placeholder.
	branchPC := len(e.code)
	e.beginBranch(branchPC)
	e.emit(types.BranchInstr{Ref: ref, Op: op, Lit: parts[2], ElsePC: branchPC + 1})
	return nil
}

func (e *emitter) compileText(line string, lineno int) error {
	if len(line) < 4 || line[:4] != "text" {
		return e.compileError(lineno, "internal error: compileText called on non-text line")
	}
	payload := strings.TrimSpace(line[4:])
	speaker, body := parseText(payload)
	e.emit(types.TextInstr{Speaker: speaker, Body: body})
	return nil
}

func (e *emitter) compileGoto(rest string, lineno int) error {
	if rest == "" {
		return e.compileError(lineno, "goto requires a single label argument")
	}
	label, err := parseLabelRef(rest)
	if err != nil {
		return e.compileError(lineno, "%v", err)
	}
	e.emit(types.GotoInstr{Target: label})
	return nil
}

func (e *emitter) compileLabel(rest string, lineno int) error {
	if rest == "" {
		return e.compileError(lineno, "label requires a single identifier argument")
	}
	label, err := parseLabelRef(rest)
	if err != nil {
		return e.compileError(lineno, "%v", err)
	}
	e.makeLabel(label)
	return nil
}

// compileSound splits the remainder with limit=2: one bare token (file)
// plus an optional raw tail (numeric parameter).
func (e *emitter) compileSound(rest string, lineno int) error {
	parts := splitArgs(rest, 2)
	if len(parts) == 0 {
		return e.compileError(lineno, "sound requires 'file [param]'")
	}
	if len(parts) == 1 {
		e.emit(types.SoundInstr{Name: parts[0]})
		return nil
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return e.compileError(lineno, "sound: bad parameter %q: %v", parts[1], err)
	}
	e.emit(types.SoundInstr{Name: parts[0], Arg: &n})
	return nil
}

func (e *emitter) compileChoice(line string, lineno int) error {
	if len(line) < 6 || line[:6] != "choice" {
		return e.compileError(lineno, "internal error: compileChoice called on non-choice line")
	}
	payload := strings.TrimLeft(line[6:], " \t")
	rawRefs := strings.Split(payload, "|")
	refs := make([]types.VarOrConst, 0, len(rawRefs))
	for _, raw := range rawRefs {
		// Each "|"-separated option is trimmed before parsing: authors
		// routinely space choice options out for readability
		// ("choice $a | $b | $c"), and an untrimmed split would silently
		// fold that whitespace into the reference name or constant.
		ref, err := parseVarRef(strings.TrimSpace(raw))
		if err != nil {
			return e.compileError(lineno, "%v", err)
		}
		refs = append(refs, ref)
	}
	e.emit(types.ChoiceInstr{Refs: refs})
	return nil
}

// parseLabelRef parses a goto/label target: '@'-prefixed is Indexed, all
// others are Named.
func parseLabelRef(s string) (types.Label, error) {
	if idx, ok := strings.CutPrefix(s, "@"); ok {
		n, err := strconv.Atoi(idx)
		if err != nil {
			return types.Label{}, errMalformed("bad indexed label %q: %v", s, err)
		}
		return types.IndexedLabel(n), nil
	}
	return types.NamedLabel(s), nil
}

func errMalformed(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
