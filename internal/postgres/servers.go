package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/game-invites/internal/domain"
)

const serverColumns = `id, ip_address, port, max_players, region, is_available, current_player_count, last_heartbeat`

func scanServer(row pgx.Row) (*domain.ComputeServer, error) {
	var s domain.ComputeServer
	err := row.Scan(
		&s.ID,
		&s.Address,
		&s.Port,
		&s.MaxPlayers,
		&s.Region,
		&s.IsAvailable,
		&s.CurrentPlayerCount,
		&s.LastHeartbeat,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrServerUnavailable
		}
		return nil, fmt.Errorf("scanning compute-server: %w", err)
	}
	return &s, nil
}

// RegisterServer inserts a compute-server and returns its id
func (r *Repository) RegisterServer(ctx context.Context, address string, port, maxPlayers int, region string) (int64, error) {
	query := `
		INSERT INTO compute_servers (ip_address, port, max_players, region, is_available, current_player_count)
		VALUES ($1, $2, $3, $4, TRUE, 0)
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, address, port, maxPlayers, region).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("registering compute-server: %w", err)
	}
	return id, nil
}

// TouchServerHeartbeat stamps a server heartbeat and restores availability
func (r *Repository) TouchServerHeartbeat(ctx context.Context, serverID int64) error {
	query := `
		UPDATE compute_servers
		SET last_heartbeat = now(), is_available = TRUE
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, serverID)
	if err != nil {
		return fmt.Errorf("updating server heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrServerUnavailable
	}
	return nil
}

// FindAvailableServer prefers an empty available server and falls back to
// the least populated available one.
func (r *Repository) FindAvailableServer(ctx context.Context) (*domain.ComputeServer, error) {
	empty := fmt.Sprintf(`
		SELECT %s FROM compute_servers
		WHERE is_available = TRUE AND current_player_count = 0
		LIMIT 1
	`, serverColumns)
	srv, err := scanServer(r.pool.QueryRow(ctx, empty))
	if err == nil {
		return srv, nil
	}
	if !errors.Is(err, domain.ErrServerUnavailable) {
		return nil, err
	}

	fallback := fmt.Sprintf(`
		SELECT %s FROM compute_servers
		WHERE is_available = TRUE
		ORDER BY current_player_count ASC
		LIMIT 1
	`, serverColumns)
	return scanServer(r.pool.QueryRow(ctx, fallback))
}

// AdjustServerPlayerCount applies a delta to a server's aggregate player
// count, floored at zero.
func (r *Repository) AdjustServerPlayerCount(ctx context.Context, serverID int64, delta int) error {
	query := `
		UPDATE compute_servers
		SET current_player_count = GREATEST(0, current_player_count + $1)
		WHERE id = $2
	`
	if _, err := r.pool.Exec(ctx, query, delta, serverID); err != nil {
		return fmt.Errorf("adjusting server player count: %w", err)
	}
	return nil
}

// SetServerOccupancy overwrites a server's aggregate player count
func (r *Repository) SetServerOccupancy(ctx context.Context, serverID int64, currentPlayers int) error {
	query := `
		UPDATE compute_servers
		SET current_player_count = GREATEST(0, $1)
		WHERE id = $2
	`
	tag, err := r.pool.Exec(ctx, query, currentPlayers, serverID)
	if err != nil {
		return fmt.Errorf("setting server occupancy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrServerUnavailable
	}
	return nil
}

// RecomputeServerCount rebuilds a server's aggregate player count as the sum
// over its non-finished sessions. The backstop for counter drift.
func (r *Repository) RecomputeServerCount(ctx context.Context, serverID int64) error {
	query := `
		UPDATE compute_servers cs
		SET current_player_count = (
			SELECT COALESCE(SUM(gs.current_players), 0)
			FROM game_sessions gs
			WHERE gs.server_id = cs.id
			  AND gs.status <> 'finished'
		)
		WHERE cs.id = $1
	`
	if _, err := r.pool.Exec(ctx, query, serverID); err != nil {
		return fmt.Errorf("recomputing server count: %w", err)
	}
	return nil
}

// RecomputeAllServerCounts rebuilds aggregate counts for every server
func (r *Repository) RecomputeAllServerCounts(ctx context.Context) error {
	query := `
		UPDATE compute_servers cs
		SET current_player_count = (
			SELECT COALESCE(SUM(gs.current_players), 0)
			FROM game_sessions gs
			WHERE gs.server_id = cs.id
			  AND gs.status <> 'finished'
		)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("recomputing server counts: %w", err)
	}
	return nil
}

// SweepDeadServers marks unavailable (and zeroes the count of) every
// available server that never heartbeated or whose heartbeat is older than
// the timeout.
func (r *Repository) SweepDeadServers(ctx context.Context, timeout time.Duration) (int64, error) {
	query := `
		UPDATE compute_servers
		SET is_available = FALSE, current_player_count = 0
		WHERE is_available = TRUE
		  AND (
			(last_heartbeat IS NULL)
			OR
			(last_heartbeat < now() - $1::interval)
		  )
	`
	tag, err := r.pool.Exec(ctx, query, timeout)
	if err != nil {
		return 0, fmt.Errorf("sweeping dead servers: %w", err)
	}
	return tag.RowsAffected(), nil
}
