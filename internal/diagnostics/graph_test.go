package diagnostics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/compiler"
	"github.com/PolishRoute/ideal-guacamole/internal/engine/types"
)

func mustCompile(t *testing.T, script string) *types.Script {
	t.Helper()
	s, err := compiler.Compile("test", strings.NewReader(script))
	require.NoError(t, err)
	return s
}

func TestBuildLinearScript(t *testing.T) {
	s := mustCompile(t, `
text "a"
text "b"
`)
	cfg, err := Build(s)
	require.NoError(t, err)

	unreachable, err := cfg.UnreachableOffsets()
	require.NoError(t, err)
	require.Empty(t, unreachable)
}

func TestBuildBranchingScript(t *testing.T) {
	s := mustCompile(t, `
setvar x 5
if $x == 5
text "taken"
fi
text "after"
`)
	cfg, err := Build(s)
	require.NoError(t, err)

	size, err := cfg.Graph.Size()
	require.NoError(t, err)
	require.Greater(t, size, 0)
}

func TestUnreachableOffsetAfterUnconditionalGoto(t *testing.T) {
	s := mustCompile(t, `
goto skip
text "dead code"
label skip
text "reached"
`)
	cfg, err := Build(s)
	require.NoError(t, err)

	unreachable, err := cfg.UnreachableOffsets()
	require.NoError(t, err)
	require.Contains(t, unreachable, 1)
}

func TestRenderDOTContainsVertexLabels(t *testing.T) {
	s := mustCompile(t, `text "hello"`)
	cfg, err := Build(s)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.RenderDOT(&buf))
	require.Contains(t, buf.String(), "text")
}
