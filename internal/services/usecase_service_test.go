package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usecase-workflow/backend/internal/engine"
	"usecase-workflow/backend/internal/logging"
	"usecase-workflow/backend/internal/repository"
	"usecase-workflow/backend/pkg/models"
)

type fakeStore struct {
	calls *[]string

	uc     *repository.UseCase
	getErr error

	arn    string
	arnErr error

	updates   []repository.ExecutionUpdate
	updateErr error
}

func (f *fakeStore) GetUseCase(_ context.Context, id string) (*repository.UseCase, error) {
	*f.calls = append(*f.calls, "get_usecase")
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.uc, nil
}

func (f *fakeStore) GetWorkflowARN(_ context.Context, workflowID string) (string, error) {
	*f.calls = append(*f.calls, "get_workflow_arn")
	return f.arn, f.arnErr
}

func (f *fakeStore) UpdateExecution(_ context.Context, upd repository.ExecutionUpdate) error {
	*f.calls = append(*f.calls, "persist")
	f.updates = append(f.updates, upd)
	return f.updateErr
}

type fakeIdentity struct {
	calls *[]string

	emp  *models.Employee
	errs []error // consumed per call; nil entries mean success
	n    int
}

func (f *fakeIdentity) GetEmployee(_ context.Context, id string) (*models.Employee, error) {
	*f.calls = append(*f.calls, "identity")
	var err error
	if f.n < len(f.errs) {
		err = f.errs[f.n]
	}
	f.n++
	if err != nil {
		return nil, err
	}
	return f.emp, nil
}

type fakeEngine struct {
	calls *[]string

	versionARN string
	publishErr error

	executionARN string
	startErr     error

	startedName  string
	startedInput models.ExecutionInput
}

func (f *fakeEngine) PublishVersion(_ context.Context, stateMachineARN, definition string) (string, error) {
	*f.calls = append(*f.calls, "publish")
	return f.versionARN, f.publishErr
}

func (f *fakeEngine) StartExecution(_ context.Context, versionARN, name string, input models.ExecutionInput) (string, error) {
	*f.calls = append(*f.calls, "start")
	f.startedName = name
	f.startedInput = input
	return f.executionARN, f.startErr
}

type fakeCompiler struct {
	calls *[]string
	err   error
}

func (f *fakeCompiler) Compile(stages []models.Stage) (string, error) {
	*f.calls = append(*f.calls, "compile")
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf(`{"stages":%d}`, len(stages)), nil
}

type fixture struct {
	calls    []string
	store    *fakeStore
	identity *fakeIdentity
	engine   *fakeEngine
	compiler *fakeCompiler
	svc      *UseCaseService
}

func newFixture() *fixture {
	f := &fixture{}
	f.store = &fakeStore{
		calls: &f.calls,
		uc: &repository.UseCase{
			ID:         "uc-1",
			WorkflowID: "wf-1",
			Version:    3,
			Meta:       models.UseCaseMeta{Name: "checkout-3"},
			Tasks: []models.Task{
				{ID: "t1", Name: "collect docs", Status: "done"},
				{ID: "t2", Name: "review", Status: "pending"},
			},
		},
		arn: "arn:sm:checkout",
	}
	f.identity = &fakeIdentity{
		calls: &f.calls,
		emp:   &models.Employee{ID: "emp-1", Name: "Ada Lovelace", ImageURL: "https://img.example/ada.png"},
	}
	f.engine = &fakeEngine{
		calls:        &f.calls,
		versionARN:   "arn:sm:checkout:7",
		executionARN: "arn:exec:checkout-4",
	}
	f.compiler = &fakeCompiler{calls: &f.calls}
	f.svc = NewUseCaseService(f.store, f.identity, f.engine, f.compiler, logging.NewLogger())
	return f
}

func baseParams() UpdateParams {
	return UpdateParams{
		UseCaseID:   "uc-1",
		UpdatedByID: "emp-1",
		Name:        "checkout",
		Stages: []models.Stage{
			{Label: "discovery", Tasks: []string{"collect docs"}},
			{Label: "launch", Checklist: []string{"sign off"}},
		},
	}
}

func TestUpdateEndToEnd(t *testing.T) {
	f := newFixture()
	p := baseParams()

	stages, err := f.svc.Update(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, p.Stages, stages)

	assert.Equal(t,
		[]string{"identity", "get_usecase", "get_workflow_arn", "compile", "publish", "start", "persist"},
		f.calls)

	assert.Equal(t, "checkout-4", f.engine.startedName)
	assert.Equal(t, models.ExecutionInput{
		Flag:      "Update",
		UseCaseID: "uc-1",
		ProjectID: "uc-1",
		Tasks:     f.store.uc.Tasks,
	}, f.engine.startedInput)

	require.Len(t, f.store.updates, 1)
	upd := f.store.updates[0]
	assert.Equal(t, "uc-1", upd.UseCaseID)
	assert.Equal(t, "arn:exec:checkout-4", upd.ExecutionARN)
	assert.Equal(t, int64(3), upd.ExpectedVersion)
	assert.Equal(t, "checkout-4", upd.Meta.Name)
	assert.Equal(t, p.Stages, upd.Meta.Stages)
	require.NotNil(t, upd.Meta.UpdatedBy)
	assert.Equal(t, "Ada Lovelace", upd.Meta.UpdatedBy.Name)
	assert.Equal(t, "https://img.example/ada.png", upd.Meta.UpdatedBy.ImageURL)
}

func TestUpdateIdentityFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.identity.errs = []error{fmt.Errorf("employee emp-1: %w", repository.ErrNotFound)}

	_, err := f.svc.Update(context.Background(), baseParams())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, []string{"identity"}, f.calls)
}

func TestUpdateRetriesTransientIdentityFailureOnce(t *testing.T) {
	f := newFixture()
	f.identity.errs = []error{engine.ErrUnavailable, nil}

	_, err := f.svc.Update(context.Background(), baseParams())
	require.NoError(t, err)
	assert.Equal(t, "identity", f.calls[0])
	assert.Equal(t, "identity", f.calls[1])
	assert.Equal(t, "get_usecase", f.calls[2])
}

func TestUpdatePublishFailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture()
	f.engine.publishErr = engine.ErrUnavailable

	_, err := f.svc.Update(context.Background(), baseParams())
	assert.ErrorIs(t, err, engine.ErrUnavailable)
	assert.NotContains(t, f.calls, "start")
	assert.NotContains(t, f.calls, "persist")
	// Publish has durable side effects and must not be retried.
	assert.Equal(t, 1, countCalls(f.calls, "publish"))
}

func TestUpdateNameConflictSkipsPersist(t *testing.T) {
	f := newFixture()
	f.engine.startErr = engine.ErrNameConflict

	_, err := f.svc.Update(context.Background(), baseParams())
	assert.ErrorIs(t, err, engine.ErrNameConflict)
	assert.NotContains(t, f.calls, "persist")
	assert.Empty(t, f.store.updates)
	assert.Equal(t, 1, countCalls(f.calls, "start"))
}

func TestUpdatePersistFailureIsReconciliationGap(t *testing.T) {
	f := newFixture()
	f.store.updateErr = errors.New("connection reset")

	_, err := f.svc.Update(context.Background(), baseParams())

	var gap *ReconciliationGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, "uc-1", gap.UseCaseID)
	assert.Equal(t, "wf-1", gap.WorkflowID)
	assert.Equal(t, "arn:sm:checkout:7", gap.VersionARN)
	assert.Equal(t, "arn:exec:checkout-4", gap.ExecutionARN)
	assert.Equal(t, "checkout-4", gap.ExecutionName)
}

func TestUpdateStaleRecordSurfacesConflictWithHandles(t *testing.T) {
	f := newFixture()
	f.store.updateErr = repository.ErrConflict

	_, err := f.svc.Update(context.Background(), baseParams())

	// The loser of a concurrent update race still dispatched an execution;
	// the conflict must carry the orphaned handles.
	assert.ErrorIs(t, err, repository.ErrConflict)
	var gap *ReconciliationGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, "arn:exec:checkout-4", gap.ExecutionARN)
}

func TestUpdateCompileFailureAbortsBeforeEngine(t *testing.T) {
	f := newFixture()
	f.compiler.err = errors.New("no stages")

	_, err := f.svc.Update(context.Background(), baseParams())
	assert.Error(t, err)
	assert.NotContains(t, f.calls, "publish")
	assert.NotContains(t, f.calls, "start")
	assert.NotContains(t, f.calls, "persist")
}

func countCalls(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}
