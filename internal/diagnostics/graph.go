// Package diagnostics builds a control-flow graph of a compiled script and
// renders it to Graphviz DOT or SVG, for spotting structural problems
// (an if with no matching fi, an unreachable label) without stepping the
// interpreter.
package diagnostics

import (
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/types"
)

// EdgeKind classifies why one instruction offset leads to another.
type EdgeKind int

const (
	EdgeFallthrough EdgeKind = iota
	EdgeBranchTaken
	EdgeBranchNotTaken
	EdgeGoto
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeBranchTaken:
		return "taken"
	case EdgeBranchNotTaken:
		return "not-taken"
	case EdgeGoto:
		return "goto"
	default:
		return "fallthrough"
	}
}

// CFG is the control-flow graph of one compiled Script: one vertex per
// instruction offset, edges labeled with why control moves between them.
type CFG struct {
	Script *types.Script
	Graph  graph.Graph[int, int]
}

// Build walks script once and returns its control-flow graph. Every
// instruction offset becomes a vertex. Most instructions get a fallthrough
// edge to the next offset; Goto instead gets a single edge to its target,
// Branch gets a taken edge to the next offset and a not-taken edge to its
// else target, and Jump gets no outgoing edge.
func Build(script *types.Script) (*CFG, error) {
	g := graph.New(func(pc int) int { return pc }, graph.Directed())

	for pc := 0; pc < script.Len(); pc++ {
		label := fmt.Sprintf("%d: %s", pc, opcodeName(script.At(pc)))
		if err := g.AddVertex(pc, graph.VertexAttribute("label", label)); err != nil {
			return nil, fmt.Errorf("adding vertex %d: %w", pc, err)
		}
	}

	for pc := 0; pc < script.Len(); pc++ {
		instr := script.At(pc)
		switch v := instr.(type) {
		case types.GotoInstr:
			if v.Target.IsOffset() {
				if err := addEdge(g, pc, v.Target.Value, EdgeGoto); err != nil {
					return nil, err
				}
			}
		case types.BranchInstr:
			if pc+1 < script.Len() {
				if err := addEdge(g, pc, pc+1, EdgeBranchTaken); err != nil {
					return nil, err
				}
			}
			if v.ElsePC < script.Len() {
				if err := addEdge(g, pc, v.ElsePC, EdgeBranchNotTaken); err != nil {
					return nil, err
				}
			}
		case types.JumpInstr:
			// Jump leaves this script entirely; no intra-script edge.
		default:
			if pc+1 < script.Len() {
				if err := addEdge(g, pc, pc+1, EdgeFallthrough); err != nil {
					return nil, err
				}
			}
		}
	}

	return &CFG{Script: script, Graph: g}, nil
}

func addEdge(g graph.Graph[int, int], from, to int, kind EdgeKind) error {
	err := g.AddEdge(from, to,
		graph.EdgeAttribute("label", kind.String()),
		graph.EdgeAttribute("color", edgeColor(kind)),
	)
	if err != nil && err != graph.ErrEdgeAlreadyExists {
		return fmt.Errorf("adding edge %d->%d: %w", from, to, err)
	}
	return nil
}

func opcodeName(instr types.Instruction) string {
	switch instr.(type) {
	case types.ClearTextInstr:
		return "cleartext"
	case types.SetVarInstr:
		return "setvar"
	case types.GSetVarInstr:
		return "gsetvar"
	case types.BgLoadInstr:
		return "bgload"
	case types.SetImgInstr:
		return "setimg"
	case types.DelayInstr:
		return "delay"
	case types.BranchInstr:
		return "if"
	case types.TextInstr:
		return "text"
	case types.GotoInstr:
		return "goto"
	case types.SoundInstr:
		return "sound"
	case types.MusicInstr:
		return "music"
	case types.ChoiceInstr:
		return "choice"
	case types.JumpInstr:
		return "jump"
	default:
		return "?"
	}
}

func edgeColor(kind EdgeKind) string {
	switch kind {
	case EdgeBranchTaken:
		return "forestgreen"
	case EdgeBranchNotTaken:
		return "crimson"
	case EdgeGoto:
		return "steelblue"
	default:
		return "black"
	}
}

// UnreachableOffsets returns every instruction offset with no incoming
// edge and no other reason to be reachable (offset 0, the script's own
// entry point, is never reported).
func (c *CFG) UnreachableOffsets() ([]int, error) {
	preds, err := c.Graph.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("computing predecessor map: %w", err)
	}

	var unreachable []int
	for pc := 1; pc < c.Script.Len(); pc++ {
		if len(preds[pc]) == 0 {
			unreachable = append(unreachable, pc)
		}
	}
	return unreachable, nil
}
