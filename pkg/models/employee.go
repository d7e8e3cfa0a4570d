package models

// Employee is the resolved identity of the actor performing an update.
type Employee struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}
