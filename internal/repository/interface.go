package repository

import (
	"context"
	"errors"

	"usecase-workflow/backend/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a guarded write detects that the record
// changed since it was read.
var ErrConflict = errors.New("record version conflict")

// UseCase aggregates one use case row with its task join. Tasks preserve
// the order produced by the join; a use case with no tasks has an empty
// list. Version guards the final write.
type UseCase struct {
	ID           string
	WorkflowID   string
	ExecutionARN string
	Version      int64
	Meta         models.UseCaseMeta
	Tasks        []models.Task
}

// ExecutionUpdate is the single guarded write that records a dispatched
// execution: new metadata blob and execution handle, applied only when the
// row still carries ExpectedVersion.
type ExecutionUpdate struct {
	UseCaseID       string
	Meta            models.UseCaseMeta
	ExecutionARN    string
	ExpectedVersion int64
}

// UseCaseStore is an interface for reading and updating use cases.
type UseCaseStore interface {
	// GetUseCase loads a use case with its workflow reference, metadata
	// blob and ordered task list.
	GetUseCase(ctx context.Context, id string) (*UseCase, error)
	// GetWorkflowARN resolves the engine's stable handle for a workflow.
	GetWorkflowARN(ctx context.Context, workflowID string) (string, error)
	// UpdateExecution persists the outcome of an update as one write,
	// failing with ErrConflict if the row moved since it was read.
	UpdateExecution(ctx context.Context, upd ExecutionUpdate) error
}

// IdentityStore resolves actor ids to display identities.
type IdentityStore interface {
	// GetEmployee returns the employee for the given id, or ErrNotFound.
	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
}
