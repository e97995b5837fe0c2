package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/avasilyev/mailsmith/internal/domain"
	"github.com/avasilyev/mailsmith/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db             *sql.DB
	initialCredits int
}

// NewSQLite creates a new SQLite-backed repository. New users inserted via
// UpsertUser start with initialCredits when the record carries no balance.
func NewSQLite(dbPath string, initialCredits int) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, initialCredits: initialCredits}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		credits INTEGER NOT NULL DEFAULT 0,
		subscription_status TEXT NOT NULL DEFAULT '',
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		description TEXT NOT NULL,
		is_done INTEGER NOT NULL DEFAULT 0,
		time REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id, created_at);

	CREATE TABLE IF NOT EXISTS gpt_responses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_gpt_responses_user ON gpt_responses(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_gpt_responses_created ON gpt_responses(created_at);

	CREATE TABLE IF NOT EXISTS custom_templates (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(user_id, name)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, credits, subscription_status,
		       last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(
		&user.UserID, &user.Username, &user.Credits, &user.SubscriptionStatus,
		&lastSeen, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record. The credits balance and
// subscription status are insert-only here: balance changes go through
// SpendCredit/RefundCredit so concurrent requests cannot clobber them.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, credits, subscription_status, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	credits := user.Credits
	if credits == 0 {
		credits = s.initialCredits
	}

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, credits, user.SubscriptionStatus,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// SpendCredit atomically decrements the credit balance if it is positive.
func (s *SQLiteStore) SpendCredit(ctx context.Context, userID string) (bool, error) {
	query := `UPDATE users SET credits = credits - 1, updated_at = ? WHERE user_id = ? AND credits > 0`
	result, err := s.db.ExecContext(ctx, query, time.Now().Unix(), userID)
	if err != nil {
		return false, fmt.Errorf("spend credit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// RefundCredit increments the credit balance by one.
func (s *SQLiteStore) RefundCredit(ctx context.Context, userID string) error {
	query := `UPDATE users SET credits = credits + 1, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("refund credit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("refund credit: user %s not found", userID)
	}
	return nil
}

// CreateTask inserts a task owned by a user.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *domain.Task) error {
	query := `INSERT INTO tasks (id, user_id, description, is_done, time, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.UserID, task.Description, task.IsDone, task.Time, task.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT id, user_id, description, is_done, time, created_at FROM tasks WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan task row: %w", err)
	}
	return task, nil
}

// UpdateTask updates the done flag and time estimate of a task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, isDone bool, taskTime float64) (*domain.Task, error) {
	query := `UPDATE tasks SET is_done = ?, time = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, isDone, taskTime, id)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}

	return s.GetTask(ctx, id)
}

// DeleteTask removes a task by ID.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListTasksByUser returns a user's tasks, newest first.
func (s *SQLiteStore) ListTasksByUser(ctx context.Context, userID string) ([]*domain.Task, error) {
	query := `SELECT id, user_id, description, is_done, time, created_at FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer closeRows(rows, "tasks")

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// CreateGptResponse stores a raw audit copy of a planner completion.
func (s *SQLiteStore) CreateGptResponse(ctx context.Context, resp *domain.GptResponse) error {
	query := `INSERT INTO gpt_responses (id, user_id, content, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, resp.ID, resp.UserID, resp.Content, resp.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert gpt response: %w", err)
	}
	return nil
}

// ListGptResponses returns a user's audit records, newest first.
func (s *SQLiteStore) ListGptResponses(ctx context.Context, userID string) ([]*domain.GptResponse, error) {
	query := `SELECT id, user_id, content, created_at FROM gpt_responses WHERE user_id = ? ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query gpt responses: %w", err)
	}
	defer closeRows(rows, "gpt_responses")

	var resps []*domain.GptResponse
	for rows.Next() {
		var r domain.GptResponse
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan gpt response row: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		resps = append(resps, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gpt responses: %w", err)
	}
	return resps, nil
}

// PruneGptResponses deletes audit records older than the retention window.
func (s *SQLiteStore) PruneGptResponses(ctx context.Context, olderThan time.Duration) (int64, error) {
	threshold := time.Now().Add(-olderThan).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM gpt_responses WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune gpt responses: %w", err)
	}
	return result.RowsAffected()
}

// CreateCustomTemplate records a user-uploaded template entry. The
// (user_id, name) unique constraint rejects duplicate names so a custom
// entry can never silently shadow another by exact-name match.
func (s *SQLiteStore) CreateCustomTemplate(ctx context.Context, tpl *domain.CustomTemplate) error {
	query := `INSERT INTO custom_templates (id, user_id, name, url, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, tpl.ID, tpl.UserID, tpl.Name, tpl.URL, tpl.CreatedAt.Unix())
	if err != nil {
		if shared.IsSQLiteConstraintError(err) {
			return fmt.Errorf("insert custom template %q: %w", tpl.Name, ErrDuplicate)
		}
		return fmt.Errorf("insert custom template: %w", err)
	}
	return nil
}

// ListCustomTemplates returns a user's custom templates in upload order.
func (s *SQLiteStore) ListCustomTemplates(ctx context.Context, userID string) ([]*domain.CustomTemplate, error) {
	query := `SELECT id, user_id, name, url, created_at FROM custom_templates WHERE user_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query custom templates: %w", err)
	}
	defer closeRows(rows, "custom_templates")

	var tpls []*domain.CustomTemplate
	for rows.Next() {
		var t domain.CustomTemplate
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.URL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan custom template row: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		tpls = append(tpls, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custom templates: %w", err)
	}
	return tpls, nil
}

// GetCustomTemplate resolves a custom template by exact name for a user.
func (s *SQLiteStore) GetCustomTemplate(ctx context.Context, userID, name string) (*domain.CustomTemplate, error) {
	query := `SELECT id, user_id, name, url, created_at FROM custom_templates WHERE user_id = ? AND name = ?`
	row := s.db.QueryRowContext(ctx, query, userID, name)

	var t domain.CustomTemplate
	var createdAt int64
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.URL, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan custom template row: %w", err)
	}
	t.CreatedAt = time.Unix(createdAt, 0)
	return &t, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var createdAt int64
	if err := row.Scan(&task.ID, &task.UserID, &task.Description, &task.IsDone, &task.Time, &createdAt); err != nil {
		return nil, err
	}
	task.CreatedAt = time.Unix(createdAt, 0)
	return &task, nil
}

func closeRows(rows *sql.Rows, table string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "table", table, "error", err)
	}
}
