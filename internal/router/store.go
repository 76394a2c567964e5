package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no profile matches a (guild, ip) pair.
var ErrNotFound = errors.New("router profile not found")

// Store persists router profiles.
type Store interface {
	Upsert(ctx context.Context, p *Profile) error
	Get(ctx context.Context, guildID int64, ip string) (*Profile, error)
	List(ctx context.Context, guildID int64) ([]*Profile, error)
	ListAll(ctx context.Context) ([]*Profile, error)
	SetStatus(ctx context.Context, guildID int64, ip string, status Status, lastSeen *time.Time, failureReason string) error
	Delete(ctx context.Context, guildID int64, ip string) error
}

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const profileColumns = `guild_id, ip, name, hostname, username, password, status, last_seen, failure_reason, created_at, updated_at`

// Upsert inserts or replaces a profile. Re-registering an address keeps the
// row's created_at but replaces credentials and naming, and resets the health
// verdict so the monitor re-evaluates with the new credentials.
func (s *PGStore) Upsert(ctx context.Context, p *Profile) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO routerops.router_profiles
			(guild_id, ip, name, hostname, username, password, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (guild_id, ip) DO UPDATE
		SET name = EXCLUDED.name,
		    hostname = EXCLUDED.hostname,
		    username = EXCLUDED.username,
		    password = EXCLUDED.password,
		    status = EXCLUDED.status,
		    last_seen = NULL,
		    failure_reason = '',
		    updated_at = EXCLUDED.updated_at`,
		p.GuildID, p.IP, p.Name, p.Hostname, p.Username, p.Password, string(StatusUnknown), now,
	)
	if err != nil {
		return fmt.Errorf("upsert router profile %s/%s: %w", p.IP, p.Name, err)
	}
	return nil
}

// Get loads one profile.
func (s *PGStore) Get(ctx context.Context, guildID int64, ip string) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM routerops.router_profiles
		WHERE guild_id = $1 AND ip = $2`, guildID, ip)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get router profile %s: %w", ip, err)
	}
	return p, nil
}

// List returns all profiles registered for a guild, ordered by address.
func (s *PGStore) List(ctx context.Context, guildID int64) ([]*Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM routerops.router_profiles
		WHERE guild_id = $1
		ORDER BY ip`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list router profiles for guild %d: %w", guildID, err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// ListAll returns every registered profile across all guilds. The fleet
// monitor walks this on each cycle.
func (s *PGStore) ListAll(ctx context.Context) ([]*Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM routerops.router_profiles
		ORDER BY guild_id, ip`)
	if err != nil {
		return nil, fmt.Errorf("list all router profiles: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// SetStatus writes a monitor verdict. lastSeen is only moved forward on
// success, so a nil value keeps the prior timestamp.
func (s *PGStore) SetStatus(ctx context.Context, guildID int64, ip string, status Status, lastSeen *time.Time, failureReason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE routerops.router_profiles
		SET status = $3,
		    last_seen = COALESCE($4, last_seen),
		    failure_reason = $5,
		    updated_at = now()
		WHERE guild_id = $1 AND ip = $2`,
		guildID, ip, string(status), lastSeen, failureReason,
	)
	if err != nil {
		return fmt.Errorf("set status for router %s: %w", ip, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a profile.
func (s *PGStore) Delete(ctx context.Context, guildID int64, ip string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM routerops.router_profiles
		WHERE guild_id = $1 AND ip = $2`, guildID, ip)
	if err != nil {
		return fmt.Errorf("delete router profile %s: %w", ip, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var (
		p      Profile
		status string
	)
	err := row.Scan(&p.GuildID, &p.IP, &p.Name, &p.Hostname, &p.Username, &p.Password,
		&status, &p.LastSeen, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = Status(status)
	return &p, nil
}

func collectProfiles(rows pgx.Rows) ([]*Profile, error) {
	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan router profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
