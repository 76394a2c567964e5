package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a task ID has no row.
var ErrNotFound = errors.New("task not found")

// Store persists tasks. Implementations must make Put and Update durable
// before returning.
type Store interface {
	Put(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, t *Task) error
	List(ctx context.Context, guildID int64, limit int) ([]*Task, error)
}

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Put inserts a new task row.
func (s *PGStore) Put(ctx context.Context, t *Task) error {
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal task metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO routerops.tasks
			(id, type, router_host, guild_id, channel_id, user_id, status, result, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Type, t.RouterHost, t.GuildID, t.ChannelID, t.UserID,
		string(t.Status), t.Result, meta, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", t.ID, err)
	}
	return nil
}

// Get loads a task by ID.
func (s *PGStore) Get(ctx context.Context, id string) (*Task, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, type, router_host, guild_id, channel_id, user_id, status, result, metadata, created_at, updated_at
		FROM routerops.tasks
		WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// Update rewrites the mutable columns of an existing task.
func (s *PGStore) Update(ctx context.Context, t *Task) error {
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal task metadata: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE routerops.tasks
		SET status = $2, result = $3, metadata = $4, updated_at = $5
		WHERE id = $1`,
		t.ID, string(t.Status), t.Result, meta, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the most recent tasks for one guild, newest first.
func (s *PGStore) List(ctx context.Context, guildID int64, limit int) ([]*Task, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, router_host, guild_id, channel_id, user_id, status, result, metadata, created_at, updated_at
		FROM routerops.tasks
		WHERE guild_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*Task, error) {
	var (
		t      Task
		status string
		meta   []byte
	)
	err := row.Scan(&t.ID, &t.Type, &t.RouterHost, &t.GuildID, &t.ChannelID, &t.UserID,
		&status, &t.Result, &meta, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = Status(status)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal task metadata: %w", err)
		}
	}
	return &t, nil
}
