package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sfn/types"
	"github.com/aws/smithy-go"

	"usecase-workflow/backend/pkg/models"
)

// ErrNameConflict is returned when the engine already has an execution with
// the requested name. The caller must not retry with a mutated name.
var ErrNameConflict = errors.New("execution name already in use")

// ErrUnavailable is returned when the engine is transiently unreachable.
var ErrUnavailable = errors.New("execution engine unavailable")

// sfnAPI is the subset of the Step Functions client the engine uses.
type sfnAPI interface {
	UpdateStateMachine(ctx context.Context, params *sfn.UpdateStateMachineInput, optFns ...func(*sfn.Options)) (*sfn.UpdateStateMachineOutput, error)
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
}

// StepFunctions drives version publishes and execution starts against AWS
// Step Functions. Both operations have durable external side effects and are
// never retried here.
type StepFunctions struct {
	client             sfnAPI
	roleARN            string
	versionDescription string
}

// NewStepFunctions creates a new StepFunctions engine client.
func NewStepFunctions(client *sfn.Client, roleARN, versionDescription string) *StepFunctions {
	return &StepFunctions{
		client:             client,
		roleARN:            roleARN,
		versionDescription: versionDescription,
	}
}

// PublishVersion updates the state machine behind the stable handle with the
// compiled definition and publishes the result as a new immutable version.
// The returned version handle starts executions under exactly that version.
func (e *StepFunctions) PublishVersion(ctx context.Context, stateMachineARN, definition string) (string, error) {
	out, err := e.client.UpdateStateMachine(ctx, &sfn.UpdateStateMachineInput{
		StateMachineArn:    aws.String(stateMachineARN),
		Definition:         aws.String(definition),
		RoleArn:            aws.String(e.roleARN),
		Publish:            true,
		VersionDescription: aws.String(e.versionDescription),
	})
	if err != nil {
		return "", fmt.Errorf("publish version of %s: %w", stateMachineARN, classify(err))
	}
	if out.StateMachineVersionArn == nil || *out.StateMachineVersionArn == "" {
		return "", fmt.Errorf("publish version of %s: engine returned no version handle", stateMachineARN)
	}
	return *out.StateMachineVersionArn, nil
}

// StartExecution starts a named execution under a version handle. A name
// collision maps to ErrNameConflict.
func (e *StepFunctions) StartExecution(ctx context.Context, versionARN, name string, input models.ExecutionInput) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal execution input: %w", err)
	}

	out, err := e.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(versionARN),
		Name:            aws.String(name),
		Input:           aws.String(string(payload)),
	})
	if err != nil {
		var exists *types.ExecutionAlreadyExists
		if errors.As(err, &exists) {
			return "", fmt.Errorf("execution %q: %w", name, ErrNameConflict)
		}
		return "", fmt.Errorf("start execution %q: %w", name, classify(err))
	}
	if out.ExecutionArn == nil || *out.ExecutionArn == "" {
		return "", fmt.Errorf("start execution %q: engine returned no execution handle", name)
	}
	return *out.ExecutionArn, nil
}

// classify folds engine-side faults into ErrUnavailable so callers can
// distinguish transient outages from terminal request errors.
func classify(err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) && ae.ErrorFault() == smithy.FaultServer {
		return fmt.Errorf("%w: %s", ErrUnavailable, ae.ErrorMessage())
	}
	return err
}
