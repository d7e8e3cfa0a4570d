package models

import (
	"time"
)

// Workflow is the long-lived state machine a use case executes under. The
// engine handle (ARN) is stable across updates; only the published version
// moves forward.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ARN       string    `json:"arn"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
