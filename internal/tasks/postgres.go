package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the tasks table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'open',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the tasks
// table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("tasks: migrate: %w", err)
	}
	return nil
}

// Create implements [Store.Create].
func (s *PostgresStore) Create(ctx context.Context, task Task) (Task, error) {
	if task.ID == "" {
		id, err := generateID()
		if err != nil {
			return Task{}, fmt.Errorf("tasks: generate id: %w", err)
		}
		task.ID = id
	}
	if task.Status == "" {
		task.Status = StatusOpen
	}
	if !task.Status.IsValid() {
		return Task{}, fmt.Errorf("tasks: invalid status %q", task.Status)
	}

	const query = `
		INSERT INTO tasks (id, title, description, status)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.Exec(ctx, query, task.ID, task.Title, task.Description, string(task.Status)); err != nil {
		if isDuplicateKeyError(err) {
			return Task{}, ErrDuplicateID
		}
		return Task{}, fmt.Errorf("tasks: create: %w", err)
	}
	return task, nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (Task, error) {
	const query = `
		SELECT id, title, description, status
		FROM tasks
		WHERE id = $1`

	var t Task
	err := s.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.Title, &t.Description, &t.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("tasks: get %q: %w", id, err)
	}
	return t, nil
}

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context) ([]Task, error) {
	const query = `
		SELECT id, title, description, status
		FROM tasks
		ORDER BY created_at`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}
	defer rows.Close()

	var result []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status); err != nil {
			return nil, fmt.Errorf("tasks: list scan: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}
	return result, nil
}

// Update implements [Store.Update].
func (s *PostgresStore) Update(ctx context.Context, task Task) error {
	if !task.Status.IsValid() {
		return fmt.Errorf("tasks: invalid status %q", task.Status)
	}

	const query = `
		UPDATE tasks SET
			title = $2, description = $3, status = $4, updated_at = now()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, task.ID, task.Title, task.Description, string(task.Status))
	if err != nil {
		return fmt.Errorf("tasks: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements [Store.Delete].
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("tasks: delete %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus implements [Store.SetStatus].
func (s *PostgresStore) SetStatus(ctx context.Context, id string, status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("tasks: invalid status %q", status)
	}

	const query = `
		UPDATE tasks SET status = $2, updated_at = now()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("tasks: set status %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
