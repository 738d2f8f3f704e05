package vm

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/types"
	"github.com/PolishRoute/ideal-guacamole/internal/log"
)

// serializedState is the save-file layout, field names fixed: memory,
// current_script, pc, last_music, last_background, last_main_image,
// last_date_image.
type serializedState struct {
	Memory         map[string]map[int]string `json:"memory"`
	CurrentScript  string                     `json:"current_script"`
	PC             int                        `json:"pc"`
	LastMusic      *string                    `json:"last_music"`
	LastBackground *string                    `json:"last_background"`
	LastMainImage  *string                    `json:"last_main_image"`
	LastDateImage  *string                    `json:"last_date_image"`
}

// MarshalState renders the engine's save document — the exact byte format
// Save writes to disk and internal/store indexes by slot name.
func (e *EngineState) MarshalState() ([]byte, error) {
	s := serializedState{
		Memory:         e.memory,
		CurrentScript:  e.currentScript,
		PC:             e.pcToSave,
		LastMusic:      e.lastMusic,
		LastBackground: e.lastBackground,
		LastMainImage:  e.lastMainImage,
		LastDateImage:  e.lastDateImage,
	}
	return json.MarshalIndent(s, "", "  ")
}

// Save writes the engine's state to path as pretty-printed JSON.
func (e *EngineState) Save(path string) error {
	doc, err := e.MarshalState()
	if err != nil {
		return fmt.Errorf("marshaling save state: %w", err)
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("writing save file %s: %w", path, err)
	}
	log.Info("saved engine state", "path", path, "script", e.currentScript, "pc", e.pcToSave)
	return nil
}

// Load reads path and restores engine state from it, recompiling
// current_script. It returns an ordered replay list — Background, Music,
// Image(main), Image(date), whichever are present — that the host must
// consume before calling Step again.
func (e *EngineState) Load(path string) ([]types.StepResult, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading save file %s: %w", path, err)
	}
	return e.UnmarshalState(doc)
}

// UnmarshalState parses a save document produced by MarshalState and
// restores engine state from it, returning the same replay list Load does.
func (e *EngineState) UnmarshalState(doc []byte) ([]types.StepResult, error) {
	var s serializedState
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("parsing save document: %w", err)
	}

	script, err := e.compileScript(s.CurrentScript)
	if err != nil {
		return nil, err
	}
	e.scripts[s.CurrentScript] = script
	e.currentScript = s.CurrentScript
	e.pc = s.PC
	e.pcToSave = s.PC
	e.memory = s.Memory
	if e.memory == nil {
		e.memory = make(map[string]map[int]string)
	}
	e.lastMusic = s.LastMusic
	e.lastBackground = s.LastBackground
	e.lastMainImage = s.LastMainImage
	e.lastDateImage = s.LastDateImage
	e.driverState = RunningSilent

	log.Info("loaded engine state", "script", e.currentScript, "pc", e.pc)

	var replay []types.StepResult
	if e.lastBackground != nil {
		replay = append(replay, types.BackgroundResult{Path: *e.lastBackground})
	}
	if e.lastMusic != nil {
		replay = append(replay, types.MusicResult{Name: *e.lastMusic})
	}
	if e.lastMainImage != nil {
		replay = append(replay, types.ImageResult{Path: *e.lastMainImage, Slot: types.SlotMain})
	}
	if e.lastDateImage != nil {
		replay = append(replay, types.ImageResult{Path: *e.lastDateImage, Slot: types.SlotDate})
	}
	return replay, nil
}
