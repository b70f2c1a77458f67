package ui

import "home-app/internal/persistence"

// StateKey is the persistence key of UIState.
const StateKey = "app_data"

// UIState is the part of the UI that survives restarts.
type UIState struct {
	Theme    string `json:"theme"`
	ShowHelp bool   `json:"show_help"`
}

// DefaultUIState is used when nothing (or nothing readable) was saved.
func DefaultUIState() UIState {
	return UIState{Theme: ThemeBlue, ShowHelp: true}
}

// LoadUIState restores the saved UIState or returns the default.
func LoadUIState(p *persistence.Persistence) UIState {
	if st, ok := persistence.GetValue[UIState](p, StateKey); ok {
		return st
	}
	return DefaultUIState()
}
