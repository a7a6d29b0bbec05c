package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/game-invites/internal/domain"
)

// CreateSession inserts a waiting session hosted by the given player and
// returns its id. A session-code collision maps to ErrSessionCodeTaken so
// the caller can retry with a fresh code.
func (r *Repository) CreateSession(ctx context.Context, serverID, hostPlayerID int64, sessionCode string) (int64, error) {
	query := `
		INSERT INTO game_sessions (server_id, session_code, host_player_id, current_players, status)
		VALUES ($1, $2, $3, 1, 'waiting')
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, serverID, sessionCode, hostPlayerID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, domain.ErrSessionCodeTaken
		}
		return 0, fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

// GetSessionInfo retrieves a session by code joined with its backing
// server's address and port
func (r *Repository) GetSessionInfo(ctx context.Context, sessionCode string) (*domain.SessionInfo, error) {
	query := `
		SELECT gs.id, gs.server_id, gs.session_code, gs.host_player_id,
		       gs.current_players, gs.status, gs.created_at,
		       cs.ip_address, cs.port
		FROM game_sessions gs
		JOIN compute_servers cs ON gs.server_id = cs.id
		WHERE gs.session_code = $1
	`
	var info domain.SessionInfo
	err := r.pool.QueryRow(ctx, query, sessionCode).Scan(
		&info.ID,
		&info.ServerID,
		&info.SessionCode,
		&info.HostPlayerID,
		&info.CurrentPlayers,
		&info.Status,
		&info.CreatedAt,
		&info.ServerAddress,
		&info.ServerPort,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &info, nil
}

// FindHostedSession retrieves the session the given player currently hosts
func (r *Repository) FindHostedSession(ctx context.Context, hostPlayerID int64) (*domain.Session, error) {
	query := `
		SELECT id, server_id, session_code, host_player_id, current_players, status, created_at
		FROM game_sessions
		WHERE host_player_id = $1
		LIMIT 1
	`
	var s domain.Session
	err := r.pool.QueryRow(ctx, query, hostPlayerID).Scan(
		&s.ID,
		&s.ServerID,
		&s.SessionCode,
		&s.HostPlayerID,
		&s.CurrentPlayers,
		&s.Status,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("finding hosted session: %w", err)
	}
	return &s, nil
}

// IncrementSessionPlayers adds one player to a session's count
func (r *Repository) IncrementSessionPlayers(ctx context.Context, sessionCode string) error {
	query := `UPDATE game_sessions SET current_players = current_players + 1 WHERE session_code = $1`
	tag, err := r.pool.Exec(ctx, query, sessionCode)
	if err != nil {
		return fmt.Errorf("incrementing session players: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DecrementSessionPlayers removes one player from a session's count,
// floored at zero
func (r *Repository) DecrementSessionPlayers(ctx context.Context, sessionID int64) error {
	query := `
		UPDATE game_sessions
		SET current_players = GREATEST(0, current_players - 1)
		WHERE id = $1
	`
	if _, err := r.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("decrementing session players: %w", err)
	}
	return nil
}

// ReassignHostAndDecrement hands the session to another player on record
// for it and decrements the count by one. The candidate pool is the players
// who accepted an invite into this session; when none remains on record the
// host id is left untouched and only the count drops.
func (r *Repository) ReassignHostAndDecrement(ctx context.Context, sessionID, leavingPlayerID int64) error {
	query := `
		UPDATE game_sessions gs
		SET host_player_id = COALESCE(
			(
				SELECT i.receiver_id
				FROM invites i
				WHERE i.session_code = gs.session_code
				  AND i.status = 'accepted'
				  AND i.receiver_id <> $2
				ORDER BY i.created_at DESC
				LIMIT 1
			),
			gs.host_player_id
		),
		current_players = GREATEST(0, current_players - 1)
		WHERE gs.id = $1
	`
	if _, err := r.pool.Exec(ctx, query, sessionID, leavingPlayerID); err != nil {
		return fmt.Errorf("reassigning session host: %w", err)
	}
	return nil
}

// DeleteSession removes a session outright
func (r *Repository) DeleteSession(ctx context.Context, sessionID int64) error {
	query := `DELETE FROM game_sessions WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// ReapStaleSessions deletes waiting sessions whose host is offline or has
// not heartbeated within the timeout, then recomputes each owning server's
// aggregate count from the sessions that remain. Returns the number of
// sessions removed.
func (r *Repository) ReapStaleSessions(ctx context.Context, timeout time.Duration) (int64, error) {
	findQuery := `
		SELECT gs.id, gs.server_id
		FROM game_sessions gs
		LEFT JOIN players p ON p.id = gs.host_player_id
		WHERE gs.status = 'waiting'
		  AND (
			(p.is_online = FALSE)
			OR
			(p.last_heartbeat IS NULL)
			OR
			(p.last_heartbeat < now() - $1::interval)
		  )
	`
	rows, err := r.pool.Query(ctx, findQuery, timeout)
	if err != nil {
		return 0, fmt.Errorf("finding stale sessions: %w", err)
	}
	defer rows.Close()

	type staleSession struct {
		id       int64
		serverID int64
	}
	var stale []staleSession
	for rows.Next() {
		var s staleSession
		if err := rows.Scan(&s.id, &s.serverID); err != nil {
			return 0, fmt.Errorf("scanning stale session: %w", err)
		}
		stale = append(stale, s)
	}
	rows.Close()

	var reaped int64
	touched := make(map[int64]bool)
	for _, s := range stale {
		// A session already gone between find and delete is a benign race.
		if err := r.DeleteSession(ctx, s.id); err != nil {
			r.logger.Error("failed to delete stale session", "session_id", s.id, "error", err)
			continue
		}
		reaped++
		touched[s.serverID] = true
	}

	for serverID := range touched {
		if err := r.RecomputeServerCount(ctx, serverID); err != nil {
			r.logger.Error("failed to recompute server count", "server_id", serverID, "error", err)
		}
	}

	return reaped, nil
}
