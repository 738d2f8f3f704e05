package diagnostics

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dominikbraun/graph/draw"
	"github.com/goccy/go-graphviz"
)

// RenderDOT writes the graph's Graphviz DOT representation to w.
func (c *CFG) RenderDOT(w *bytes.Buffer) error {
	if err := draw.DOT(c.Graph, w); err != nil {
		return fmt.Errorf("rendering DOT: %w", err)
	}
	return nil
}

// RenderSVG rasterizes the graph to SVG bytes via go-graphviz's WASM-compiled
// layout engine.
func (c *CFG) RenderSVG(ctx context.Context) ([]byte, error) {
	var dot bytes.Buffer
	if err := c.RenderDOT(&dot); err != nil {
		return nil, err
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting graphviz: %w", err)
	}
	defer gv.Close()

	graphAST, err := graphviz.ParseBytes(dot.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parsing generated DOT: %w", err)
	}
	defer graphAST.Close()

	var svg bytes.Buffer
	if err := gv.Render(ctx, graphAST, graphviz.SVG, &svg); err != nil {
		return nil, fmt.Errorf("rendering SVG: %w", err)
	}
	return svg.Bytes(), nil
}
