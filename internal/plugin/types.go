// Package plugin implements plugin lifecycle management: manifest
// parsing, state machine transitions, and the persisted enabled/config
// set (spec.md §4.7's plugin half, alongside internal/hooks which owns
// the actual interceptor chain).
package plugin

import "fmt"

// State is a plugin's position in its lifecycle state machine.
type State string

const (
	StateLoaded       State = "loaded"
	StateInitialized  State = "initialized"
	StateActive       State = "active"
	StateDeactivated  State = "deactivated"
	StateError        State = "error"
)

// validTransitions enumerates the state machine edges a plugin may take.
// Any edge not listed here is rejected by Transition.
var validTransitions = map[State][]State{
	StateLoaded:      {StateInitialized, StateError},
	StateInitialized: {StateActive, StateError},
	StateActive:      {StateDeactivated, StateError},
	StateDeactivated: {StateInitialized, StateError},
	StateError:       {StateInitialized},
}

// CanTransition reports whether moving from 'from' to 'to' is a legal
// lifecycle edge.
func CanTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Manifest describes a plugin's static declaration, loaded from its
// manifest.json.
type Manifest struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Main        string   `json:"main"`
	Permissions []string `json:"permissions"`
	Hooks       []string `json:"hooks"`
}

// Validate checks the manifest carries the minimum fields a plugin
// needs to be loaded.
func (m Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("plugin: manifest missing id")
	}
	if m.Main == "" {
		return fmt.Errorf("plugin: manifest for %s missing main", m.ID)
	}
	return nil
}

// Plugin is one loaded plugin's runtime record.
type Plugin struct {
	Manifest       Manifest
	State          State
	RegisteredHooks []string
	LastError      string
}
