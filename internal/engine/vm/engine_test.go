package vm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/types"
)

// newTestEngine lays out a minimal game directory (Scripts/, CG/, CGAlt/)
// and writes the given named scripts under Scripts/, then constructs an
// EngineState rooted there.
func newTestEngine(t *testing.T, scripts map[string]string) *EngineState {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Scripts"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "CG"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "CGAlt"), 0o755))
	for name, body := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "Scripts", name), []byte(body), 0o644))
	}
	e, err := New(dir)
	require.NoError(t, err)
	return e
}

func TestSeedScenario1_ParseAndStepOneText(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `text "Yuichi" "Hello, world."`,
	})

	res, err := e.Step()
	require.NoError(t, err)
	text, ok := res.(types.TextResult)
	require.True(t, ok)
	require.NotNil(t, text.Speaker)
	require.Equal(t, "Yuichi", *text.Speaker)
	require.Equal(t, "Hello, world.", text.Body)

	res, err = e.Step()
	require.NoError(t, err)
	require.IsType(t, types.ExitResult{}, res)
}

func TestSeedScenario2_BranchTaken(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `
setvar x 5
if $x == 5
text "Taken."
fi
text "After."
`,
	})

	res, err := e.Step() // setvar
	require.NoError(t, err)
	require.IsType(t, types.ContinueResult{}, res)

	res, err = e.Step() // branch, taken
	require.NoError(t, err)
	require.IsType(t, types.ContinueResult{}, res)

	res, err = e.Step()
	require.NoError(t, err)
	require.Equal(t, "Taken.", res.(types.TextResult).Body)

	res, err = e.Step()
	require.NoError(t, err)
	require.Equal(t, "After.", res.(types.TextResult).Body)

	res, err = e.Step()
	require.NoError(t, err)
	require.IsType(t, types.ExitResult{}, res)
}

func TestSeedScenario3_BranchNotTaken(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `
setvar x 5
if $x == 6
text "Taken."
fi
text "After."
`,
	})

	_, err := e.Step() // setvar
	require.NoError(t, err)

	res, err := e.Step() // branch, not taken, jumps past "Taken."
	require.NoError(t, err)
	require.IsType(t, types.ContinueResult{}, res)

	res, err = e.Step()
	require.NoError(t, err)
	require.Equal(t, "After.", res.(types.TextResult).Body)

	res, err = e.Step()
	require.NoError(t, err)
	require.IsType(t, types.ExitResult{}, res)
}

func TestSeedScenario4_ChoiceThenDefault(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `
choice A|B|C
if $selected == 1
text "Default held."
fi
`,
	})

	res, err := e.Step()
	require.NoError(t, err)
	choice, ok := res.(types.ChoiceResult)
	require.True(t, ok)
	require.Equal(t, []string{"A", "B", "C"}, choice.Options)
	require.Equal(t, AwaitingChoice, e.DriverState())

	// Without calling SetChoice, the default "1" should already be in place.
	res, err = e.Step()
	require.NoError(t, err)
	require.IsType(t, types.ContinueResult{}, res)

	res, err = e.Step()
	require.NoError(t, err)
	require.Equal(t, "Default held.", res.(types.TextResult).Body)
}

func TestSetChoiceOverridesDefault(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `
choice A|B|C
if $selected == 2
text "Picked B."
fi
`,
	})

	_, err := e.Step()
	require.NoError(t, err)
	e.SetChoice(1) // 0-based index 1 -> "2"

	res, err := e.Step()
	require.NoError(t, err)
	require.IsType(t, types.ContinueResult{}, res)

	res, err = e.Step()
	require.NoError(t, err)
	require.Equal(t, "Picked B.", res.(types.TextResult).Body)
}

func TestSeedScenario5_Jump(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `jump B.scr`,
		"B.scr":    `text "in B"`,
	})

	res, err := e.Step()
	require.NoError(t, err)
	jump, ok := res.(types.JumpResult)
	require.True(t, ok)
	require.Equal(t, "B.scr", jump.ScriptName)
	require.Equal(t, AwaitingScriptLoad, e.DriverState())

	// A repeated Step before LoadScript re-emits the same Jump.
	res, err = e.Step()
	require.NoError(t, err)
	require.Equal(t, "B.scr", res.(types.JumpResult).ScriptName)

	require.NoError(t, e.LoadScript("B.scr"))
	res, err = e.Step()
	require.NoError(t, err)
	require.Equal(t, "in B", res.(types.TextResult).Body)
}

func TestSeedScenario6_SaveLoadRoundTripAcrossTextPause(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `
bgload bg1.png
music theme.ogg
text "Paused here."
text "Resumed here."
`,
	})

	_, err := e.Step() // bgload
	require.NoError(t, err)
	_, err = e.Step() // music
	require.NoError(t, err)
	res, err := e.Step() // text, suspends here
	require.NoError(t, err)
	require.Equal(t, "Paused here.", res.(types.TextResult).Body)

	savePath := filepath.Join(t.TempDir(), "save.json")
	require.NoError(t, e.Save(savePath))

	fresh, err := New(e.Directory())
	require.NoError(t, err)
	replay, err := fresh.Load(savePath)
	require.NoError(t, err)

	require.Len(t, replay, 2)
	bg, ok := replay[0].(types.BackgroundResult)
	require.True(t, ok)
	require.Contains(t, bg.Path, "bg1.png")
	music, ok := replay[1].(types.MusicResult)
	require.True(t, ok)
	require.Equal(t, "theme.ogg", music.Name)

	res, err = fresh.Step()
	require.NoError(t, err)
	require.Equal(t, "Resumed here.", res.(types.TextResult).Body)
}

func TestEmptyScriptReturnsExitImmediately(t *testing.T) {
	e := newTestEngine(t, map[string]string{mainScript: ""})
	res, err := e.Step()
	require.NoError(t, err)
	require.IsType(t, types.ExitResult{}, res)
}

func TestGotoToCodeEndReturnsExit(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `goto done
label done
`,
	})
	res, err := e.Step()
	require.NoError(t, err)
	require.IsType(t, types.ContinueResult{}, res)

	res, err = e.Step()
	require.NoError(t, err)
	require.IsType(t, types.ExitResult{}, res)
}

func TestIfWithoutFiFallsThroughRatherThanLooping(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `
setvar x 6
if $x == 5
`,
	})
	res, err := e.Step() // setvar
	require.NoError(t, err)
	require.IsType(t, types.ContinueResult{}, res)

	res, err = e.Step() // branch, false, falls through past code-end
	require.NoError(t, err)
	require.IsType(t, types.ContinueResult{}, res)

	res, err = e.Step()
	require.NoError(t, err)
	require.IsType(t, types.ExitResult{}, res)
}

func TestSetImgDateSlotDetection(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `
setvar DATEIMAGE jan1.png
setimg $DATEIMAGE 10 20
`,
	})
	_, err := e.Step()
	require.NoError(t, err)
	res, err := e.Step()
	require.NoError(t, err)
	img, ok := res.(types.ImageResult)
	require.True(t, ok)
	require.Equal(t, types.SlotDate, img.Slot)
	require.Contains(t, img.Path, "jan1.png")
}

func TestSoundStopSentinelPassesThrough(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `sound ~`,
	})
	res, err := e.Step()
	require.NoError(t, err)
	snd, ok := res.(types.SoundResult)
	require.True(t, ok)
	require.Equal(t, types.StopSentinel, snd.Name)
}

func TestBranchOnUndefinedVariableIsFatal(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		mainScript: `if $nope == 1
fi`,
	})
	_, err := e.Step()
	require.Error(t, err)
}
