// Package models defines the domain models for the use-case workflow service.
package models

// Stage is one ordered unit of work within a use case. The workflow
// definition published to the execution engine is a pure function of the
// use case's stage sequence.
type Stage struct {
	Label     string   `json:"label"`
	Tasks     []string `json:"tasks"`
	Checklist []string `json:"checklist"`
}

// Task is a row-level projection of a use case's task join. Status is
// mutated asynchronously by the dispatched execution, never by this service.
type Task struct {
	ID     string `json:"task_id"`
	Name   string `json:"task_name"`
	Status string `json:"status"`
}

// UpdatedBy records the attribution of the most recent successful update.
type UpdatedBy struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// UseCaseMeta is the metadata blob stored on the use case row. It is read
// as a whole, mutated in memory and written back as a whole.
type UseCaseMeta struct {
	Name      string     `json:"name"`
	Stages    []Stage    `json:"stages,omitempty"`
	UpdatedBy *UpdatedBy `json:"updated_by,omitempty"`
}

// ExecutionInput is the payload handed to the execution engine when a new
// execution is started after an update.
type ExecutionInput struct {
	Flag      string `json:"flag"`
	UseCaseID string `json:"usecase_id"`
	ProjectID string `json:"project_id"`
	Tasks     []Task `json:"taskArray"`
}
