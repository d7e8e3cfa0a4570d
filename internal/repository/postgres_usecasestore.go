package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"usecase-workflow/backend/pkg/models"
)

// PostgresUseCaseStore is a PostgreSQL implementation of the UseCaseStore
// and IdentityStore interfaces.
type PostgresUseCaseStore struct {
	db *pgxpool.Pool
}

// NewPostgresUseCaseStore creates a new PostgresUseCaseStore.
func NewPostgresUseCaseStore(db *pgxpool.Pool) *PostgresUseCaseStore {
	return &PostgresUseCaseStore{db: db}
}

// GetUseCase loads a use case with its workflow reference, metadata blob and
// ordered task list. The LEFT JOIN keeps use cases with zero tasks loadable.
func (s *PostgresUseCaseStore) GetUseCase(ctx context.Context, id string) (*UseCase, error) {
	rows, err := s.db.Query(ctx, `
		SELECT
			u.workflow_id,
			u.usecase,
			u.arn,
			u.version,
			t.id,
			(t.task->>'name'),
			(t.task->>'status')
		FROM usecases AS u
		LEFT JOIN tasks AS t ON u.id = t.usecase_id
		WHERE u.id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query use case %s: %w", id, err)
	}
	defer rows.Close()

	uc := &UseCase{ID: id, Tasks: []models.Task{}}
	found := false
	for rows.Next() {
		var (
			workflowID   *string
			executionARN *string
			taskID       *string
			taskName     *string
			taskStatus   *string
		)
		if err := rows.Scan(&workflowID, &uc.Meta, &executionARN, &uc.Version, &taskID, &taskName, &taskStatus); err != nil {
			return nil, fmt.Errorf("scan use case %s: %w", id, err)
		}
		if !found {
			found = true
			if workflowID == nil {
				return nil, fmt.Errorf("use case %s has no workflow: %w", id, ErrNotFound)
			}
			uc.WorkflowID = *workflowID
			if executionARN != nil {
				uc.ExecutionARN = *executionARN
			}
		}
		if taskID != nil {
			task := models.Task{ID: *taskID}
			if taskName != nil {
				task.Name = *taskName
			}
			if taskStatus != nil {
				task.Status = *taskStatus
			}
			uc.Tasks = append(uc.Tasks, task)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read use case %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("use case %s: %w", id, ErrNotFound)
	}
	return uc, nil
}

// GetWorkflowARN resolves the engine's stable handle for a workflow.
func (s *PostgresUseCaseStore) GetWorkflowARN(ctx context.Context, workflowID string) (string, error) {
	var arn string
	err := s.db.QueryRow(ctx, "SELECT arn FROM workflows WHERE id = $1", workflowID).Scan(&arn)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("workflow %s: %w", workflowID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query workflow %s: %w", workflowID, err)
	}
	return arn, nil
}

// UpdateExecution persists the new execution handle and metadata blob as one
// write, guarded by the version read earlier. A vanished row maps to
// ErrNotFound, a moved row to ErrConflict.
func (s *PostgresUseCaseStore) UpdateExecution(ctx context.Context, upd ExecutionUpdate) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE usecases SET arn = $1, usecase = $2, version = version + 1 WHERE id = $3 AND version = $4",
		upd.ExecutionARN, upd.Meta, upd.UseCaseID, upd.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update use case %s: %w", upd.UseCaseID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM usecases WHERE id = $1)", upd.UseCaseID).Scan(&exists); err != nil {
		return fmt.Errorf("recheck use case %s: %w", upd.UseCaseID, err)
	}
	if !exists {
		return fmt.Errorf("use case %s: %w", upd.UseCaseID, ErrNotFound)
	}
	return fmt.Errorf("use case %s changed since read: %w", upd.UseCaseID, ErrConflict)
}

// GetEmployee returns the employee for the given id.
func (s *PostgresUseCaseStore) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	emp := &models.Employee{ID: id}
	err := s.db.QueryRow(ctx,
		"SELECT (r.resource->>'name'), (r.resource->>'image') FROM employees AS r WHERE id = $1",
		id,
	).Scan(&emp.Name, &emp.ImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("employee %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query employee %s: %w", id, err)
	}
	return emp, nil
}
