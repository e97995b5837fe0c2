// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/avasilyev/mailsmith/internal/domain"
)

// ErrDuplicate indicates an insert collided with an existing row, such as a
// custom template reusing a name the user already registered.
var ErrDuplicate = errors.New("duplicate record")

// Repository defines the interface for persisting users, tasks, audit
// records, and custom templates.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns (nil, nil) when
	// the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record. Credits and subscription
	// status are only written on insert; updates never clobber the balance.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// SpendCredit atomically decrements the user's credit balance by one,
	// but only if the balance is positive. Returns true if a credit was
	// spent. This is a compare-and-decrement: two concurrent calls against
	// a balance of one can never both succeed.
	SpendCredit(ctx context.Context, userID string) (bool, error)

	// RefundCredit increments the user's credit balance by one.
	RefundCredit(ctx context.Context, userID string) error

	// CreateTask inserts a task owned by a user.
	CreateTask(ctx context.Context, task *domain.Task) error

	// GetTask retrieves a task by ID. Returns (nil, nil) when not found.
	GetTask(ctx context.Context, id string) (*domain.Task, error)

	// UpdateTask updates the done flag and time estimate of a task.
	UpdateTask(ctx context.Context, id string, isDone bool, taskTime float64) (*domain.Task, error)

	// DeleteTask removes a task by ID.
	DeleteTask(ctx context.Context, id string) error

	// ListTasksByUser returns a user's tasks ordered by creation time,
	// newest first.
	ListTasksByUser(ctx context.Context, userID string) ([]*domain.Task, error)

	// CreateGptResponse stores a raw audit copy of a planner completion.
	CreateGptResponse(ctx context.Context, resp *domain.GptResponse) error

	// ListGptResponses returns a user's audit records, newest first.
	ListGptResponses(ctx context.Context, userID string) ([]*domain.GptResponse, error)

	// PruneGptResponses deletes audit records older than the retention
	// window and returns the number removed.
	PruneGptResponses(ctx context.Context, olderThan time.Duration) (int64, error)

	// CreateCustomTemplate records a user-uploaded template entry.
	CreateCustomTemplate(ctx context.Context, tpl *domain.CustomTemplate) error

	// ListCustomTemplates returns a user's custom templates in upload order.
	ListCustomTemplates(ctx context.Context, userID string) ([]*domain.CustomTemplate, error)

	// GetCustomTemplate resolves a custom template by exact name for a user.
	// Returns (nil, nil) when no entry matches.
	GetCustomTemplate(ctx context.Context, userID, name string) (*domain.CustomTemplate, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
