package host

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/types"
	"github.com/PolishRoute/ideal-guacamole/internal/engine/vm"
	"github.com/PolishRoute/ideal-guacamole/internal/log"
)

// TUIHost is the interactive tview/tcell reader: a scene panel carrying the
// Sixel-rendered background/image preview, a dialogue box, and a choice
// list that appears only while the engine is AwaitingChoice.
type TUIHost struct {
	engine *vm.EngineState
	app    *tview.Application
	pages  *tview.Pages

	scene    *SixelView
	dialogue *tview.TextView
	choices  *tview.List

	stepErr error
}

// NewTUIHost builds the tview application around engine, wiring the
// dialogue box and choice list to the engine's step loop.
func NewTUIHost(engine *vm.EngineState) *TUIHost {
	app := tview.NewApplication()

	dialogue := tview.NewTextView()
	dialogue.SetDynamicColors(true).SetWordWrap(true)
	dialogue.SetBorder(true).SetTitle("")

	choices := tview.NewList()
	choices.SetBorder(true).SetTitle("Choose")

	scene := NewSixelView()
	scene.SetBorder(false)

	pages := tview.NewPages()

	grid := tview.NewGrid().
		SetRows(0, 8).
		SetColumns(0).
		AddItem(scene, 0, 0, 1, 1, 0, 0, false).
		AddItem(dialogue, 1, 0, 1, 1, 0, 0, true)

	pages.AddPage("main", grid, true, true)

	h := &TUIHost{
		engine:   engine,
		app:      app,
		pages:    pages,
		scene:    scene,
		dialogue: dialogue,
		choices:  choices,
	}

	dialogue.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEnter || event.Rune() == ' ' {
			h.advance()
			return nil
		}
		if event.Key() == tcell.KeyCtrlC {
			app.Stop()
			return nil
		}
		return event
	})

	app.SetRoot(pages, true).SetFocus(dialogue)
	return h
}

// Run starts the tview event loop and drives the first step. Returns any
// fatal engine error observed during the run.
func (h *TUIHost) Run() error {
	h.advance()
	if err := h.app.Run(); err != nil {
		return fmt.Errorf("running tui application: %w", err)
	}
	return h.stepErr
}

// advance steps the engine once and updates the UI for whatever event it
// returns, looping through silent events (Continue, Clear, media cues)
// without waiting on input.
func (h *TUIHost) advance() {
	for {
		res, err := h.engine.Step()
		if err != nil {
			h.stepErr = err
			h.dialogue.SetText(fmt.Sprintf("[red]fatal: %v[white]", err))
			return
		}

		switch v := res.(type) {
		case types.ExitResult:
			h.app.Stop()
			return
		case types.ContinueResult:
			continue
		case types.ClearResult:
			h.dialogue.Clear()
			continue
		case types.TextResult:
			h.showText(v)
			return
		case types.BackgroundResult:
			h.scene.SetBackground(v.Path)
			continue
		case types.ImageResult:
			h.scene.SetImage(v.Slot, v.Path)
			continue
		case types.SoundResult, types.MusicResult:
			// Audio playback is host policy beyond this reference reader's
			// scope; the event is acknowledged and stepping continues.
			continue
		case types.ChoiceResult:
			h.showChoices(v.Options)
			return
		case types.JumpResult:
			log.Debug("tui host loading script", "name", v.ScriptName)
			if err := h.engine.LoadScript(v.ScriptName); err != nil {
				h.stepErr = err
				h.dialogue.SetText(fmt.Sprintf("[red]fatal: %v[white]", err))
				return
			}
			continue
		default:
			h.stepErr = fmt.Errorf("tui host: unhandled step result %T", res)
			return
		}
	}
}

func (h *TUIHost) showText(t types.TextResult) {
	if t.Speaker != nil {
		h.dialogue.SetText(fmt.Sprintf("[yellow::b]%s[white::-]\n%s", *t.Speaker, t.Body))
	} else {
		h.dialogue.SetText(t.Body)
	}
	h.app.SetFocus(h.dialogue)
}

func (h *TUIHost) showChoices(options []string) {
	h.choices.Clear()
	for i, opt := range options {
		idx := i
		h.choices.AddItem(opt, "", rune('1'+i), func() {
			h.engine.SetChoice(idx)
			h.pages.RemovePage("choices")
			h.app.SetFocus(h.dialogue)
			h.advance()
		})
	}

	modal := tview.NewGrid().
		SetColumns(0, 50, 0).
		SetRows(0, len(options)+2, 0).
		AddItem(h.choices, 1, 1, 1, 1, 0, 0, true)

	h.pages.RemovePage("choices")
	h.pages.AddPage("choices", modal, true, true)
	h.app.SetFocus(h.choices)
}
