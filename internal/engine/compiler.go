// Package engine integrates with the workflow execution engine: compiling
// stage sequences into state-machine definitions and driving AWS Step
// Functions version publishes and execution starts.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"usecase-workflow/backend/pkg/models"
)

// state is one node of the compiled definition.
type state struct {
	Type       string                 `json:"Type"`
	Parameters map[string]interface{} `json:"Parameters,omitempty"`
	Next       string                 `json:"Next,omitempty"`
	End        bool                   `json:"End,omitempty"`
}

// definition is an Amazon States Language document.
type definition struct {
	Comment string           `json:"Comment,omitempty"`
	StartAt string           `json:"StartAt"`
	States  map[string]state `json:"States"`
}

// ASLCompiler compiles an ordered stage sequence into an Amazon States
// Language definition. Compilation is a pure function of the stage list.
type ASLCompiler struct{}

// NewASLCompiler creates a new ASLCompiler.
func NewASLCompiler() *ASLCompiler {
	return &ASLCompiler{}
}

// Compile renders the stage sequence as a chain of states, one per stage,
// in stage order. An empty sequence is rejected.
func (c *ASLCompiler) Compile(stages []models.Stage) (string, error) {
	if len(stages) == 0 {
		return "", errors.New("cannot compile a workflow with no stages")
	}

	def := definition{
		Comment: "use case stage workflow",
		States:  make(map[string]state, len(stages)),
	}
	names := make([]string, len(stages))
	for i, stg := range stages {
		name := stg.Label
		if name == "" {
			name = fmt.Sprintf("stage-%d", i+1)
		}
		// Duplicate labels would collide in the States map.
		if _, taken := def.States[name]; taken {
			name = fmt.Sprintf("%s-%d", name, i+1)
		}
		names[i] = name
		def.States[name] = state{
			Type: "Pass",
			Parameters: map[string]interface{}{
				"label":     stg.Label,
				"tasks":     stg.Tasks,
				"checklist": stg.Checklist,
			},
		}
	}

	def.StartAt = names[0]
	for i, name := range names {
		st := def.States[name]
		if i == len(names)-1 {
			st.End = true
		} else {
			st.Next = names[i+1]
		}
		def.States[name] = st
	}

	out, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("marshal definition: %w", err)
	}
	return string(out), nil
}
