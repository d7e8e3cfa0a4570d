package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"usecase-workflow/backend/internal/engine"
	"usecase-workflow/backend/internal/logging"
	"usecase-workflow/backend/internal/repository"
	"usecase-workflow/backend/pkg/models"
)

const defaultCallTimeout = 15 * time.Second

// ReconciliationGapError reports that a version was published and an
// execution dispatched, but the final write recording them failed. The
// engine now holds artifacts the store does not know about; the carried
// handles let an operator or sweep re-point the stored execution reference.
type ReconciliationGapError struct {
	UseCaseID     string
	WorkflowID    string
	VersionARN    string
	ExecutionARN  string
	ExecutionName string
	Err           error
}

func (e *ReconciliationGapError) Error() string {
	return fmt.Sprintf("execution %s (%s) dispatched but not recorded for use case %s: %v",
		e.ExecutionName, e.ExecutionARN, e.UseCaseID, e.Err)
}

func (e *ReconciliationGapError) Unwrap() error {
	return e.Err
}

// UpdateParams are the inputs to one use case update.
type UpdateParams struct {
	UseCaseID   string
	UpdatedByID string
	Name        string
	Stages      []models.Stage
}

// UseCaseService coordinates a use case update end-to-end: recompile the
// stage list, publish it as a new workflow version, start an execution under
// that version, and record the outcome in one guarded write.
type UseCaseService struct {
	store       repository.UseCaseStore
	identity    repository.IdentityStore
	engine      ExecutionEngine
	compiler    DefinitionCompiler
	logger      *logging.Logger
	callTimeout time.Duration
}

// NewUseCaseService creates a new UseCaseService.
func NewUseCaseService(
	store repository.UseCaseStore,
	identity repository.IdentityStore,
	eng ExecutionEngine,
	compiler DefinitionCompiler,
	logger *logging.Logger,
) *UseCaseService {
	return &UseCaseService{
		store:       store,
		identity:    identity,
		engine:      eng,
		compiler:    compiler,
		logger:      logger,
		callTimeout: defaultCallTimeout,
	}
}

// Update drives the full update-and-dispatch sequence for one use case and
// returns the accepted stage list.
//
// The engine calls (publish, start) mutate an external system and cannot be
// rolled back; the final store write is the only durable record of them.
// Nothing is persisted before both engine calls have succeeded. A failure
// after dispatch is surfaced as ReconciliationGapError, never swallowed.
func (s *UseCaseService) Update(ctx context.Context, p UpdateParams) (stages []models.Stage, err error) {
	defer func() {
		updatesTotal.WithLabelValues(outcomeLabel(err)).Inc()
	}()

	var emp *models.Employee
	if err := s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		emp, err = s.identity.GetEmployee(ctx, p.UpdatedByID)
		return err
	}); err != nil {
		return nil, fmt.Errorf("resolve updated_by %s: %w", p.UpdatedByID, err)
	}

	var uc *repository.UseCase
	if err := s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		uc, err = s.store.GetUseCase(ctx, p.UseCaseID)
		return err
	}); err != nil {
		return nil, fmt.Errorf("load use case %s: %w", p.UseCaseID, err)
	}

	var stateMachineARN string
	if err := s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		stateMachineARN, err = s.store.GetWorkflowARN(ctx, uc.WorkflowID)
		return err
	}); err != nil {
		return nil, fmt.Errorf("resolve workflow %s: %w", uc.WorkflowID, err)
	}

	definition, err := s.compiler.Compile(p.Stages)
	if err != nil {
		return nil, fmt.Errorf("compile definition: %w", err)
	}

	// Durable side effect: once this returns, a new immutable version
	// exists on the engine no matter what happens below. Never retried.
	pubCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	versionARN, err := s.engine.PublishVersion(pubCtx, stateMachineARN, definition)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("publish workflow version: %w", err)
	}

	newName := NextExecutionName(uc.Meta.Name, p.Name)

	input := models.ExecutionInput{
		Flag:      "Update",
		UseCaseID: p.UseCaseID,
		ProjectID: p.UseCaseID,
		Tasks:     uc.Tasks,
	}
	startCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	executionARN, err := s.engine.StartExecution(startCtx, versionARN, newName, input)
	cancel()
	if err != nil {
		// A name collision is terminal for this invocation; renaming here
		// would break the naming scheme. The published version stays
		// orphaned until the next successful update re-points it.
		return nil, fmt.Errorf("start execution %q: %w", newName, err)
	}

	meta := uc.Meta
	meta.Name = newName
	meta.Stages = p.Stages
	meta.UpdatedBy = &models.UpdatedBy{
		ID:       emp.ID,
		Name:     emp.Name,
		ImageURL: emp.ImageURL,
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err = s.store.UpdateExecution(writeCtx, repository.ExecutionUpdate{
		UseCaseID:       p.UseCaseID,
		Meta:            meta,
		ExecutionARN:    executionARN,
		ExpectedVersion: uc.Version,
	})
	cancel()
	if err != nil {
		reconciliationGapsTotal.Inc()
		s.logger.Error("execution dispatched but not recorded",
			"usecase_id", p.UseCaseID,
			"workflow_id", uc.WorkflowID,
			"version_arn", versionARN,
			"execution_arn", executionARN,
			"execution_name", newName,
			"error", err,
		)
		return nil, &ReconciliationGapError{
			UseCaseID:     p.UseCaseID,
			WorkflowID:    uc.WorkflowID,
			VersionARN:    versionARN,
			ExecutionARN:  executionARN,
			ExecutionName: newName,
			Err:           err,
		}
	}

	s.logger.Info("use case updated",
		"usecase_id", p.UseCaseID,
		"execution_name", newName,
		"execution_arn", executionARN,
		"version_arn", versionARN,
	)
	return p.Stages, nil
}

// readRetry runs a read-only call under a bounded timeout, retrying once on
// a transient failure. Calls with durable side effects never go through here.
func (s *UseCaseService) readRetry(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err := fn(callCtx)
	cancel()
	if err == nil || !isTransient(err) || ctx.Err() != nil {
		return err
	}

	callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return fn(callCtx)
}

func isTransient(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, engine.ErrUnavailable)
}

func outcomeLabel(err error) string {
	var gap *ReconciliationGapError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &gap):
		return "reconciliation_gap"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrConflict), errors.Is(err, engine.ErrNameConflict):
		return "conflict"
	case errors.Is(err, engine.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "unavailable"
	default:
		return "error"
	}
}
