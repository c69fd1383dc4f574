package model

import "time"

// Task represents a single checklist entry.
//
// UserID is the owner and never changes after creation — it is the only
// authorization boundary in the system. Completed defaults to false at
// creation and is flipped by the toggle operation.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
