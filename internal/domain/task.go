package domain

import (
	"time"
)

// Task is a user-owned to-do item fed into the daily planner.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Description string    `json:"description"`
	IsDone      bool      `json:"isDone"`
	Time        float64   `json:"time"`
	CreatedAt   time.Time `json:"created_at"`
}

// GptResponse is a raw audit copy of a planner completion, kept so a plan can
// be traced back to the exact function-call arguments the model returned.
type GptResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
