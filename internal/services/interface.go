package services

import (
	"context"

	"usecase-workflow/backend/pkg/models"
)

// ExecutionEngine is the workflow engine the coordinator dispatches to.
// Both operations have durable side effects the coordinator cannot roll back.
type ExecutionEngine interface {
	// PublishVersion publishes a compiled definition as a new immutable
	// version of the state machine behind the stable handle and returns a
	// version-specific handle.
	PublishVersion(ctx context.Context, stateMachineARN, definition string) (string, error)
	// StartExecution starts a named execution under a version handle and
	// returns the execution handle.
	StartExecution(ctx context.Context, versionARN, name string, input models.ExecutionInput) (string, error)
}

// DefinitionCompiler turns an ordered stage sequence into a state-machine
// definition. Compilation is pure and side-effect free.
type DefinitionCompiler interface {
	Compile(stages []models.Stage) (string, error)
}
