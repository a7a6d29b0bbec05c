package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/game-invites/internal/domain"
)

const playerColumns = `id, display_name, player_tag, is_online, game_open, connected_at, last_heartbeat, last_seen`

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	err := row.Scan(
		&p.ID,
		&p.DisplayName,
		&p.PlayerTag,
		&p.IsOnline,
		&p.GameOpen,
		&p.ConnectedAt,
		&p.LastHeartbeat,
		&p.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("scanning player: %w", err)
	}
	return &p, nil
}

// GetPlayer retrieves a player by id
func (r *Repository) GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error) {
	query := fmt.Sprintf(`SELECT %s FROM players WHERE id = $1`, playerColumns)
	return scanPlayer(r.pool.QueryRow(ctx, query, playerID))
}

// GetOnlinePlayer retrieves a player by id only if they are currently online
func (r *Repository) GetOnlinePlayer(ctx context.Context, playerID int64) (*domain.Player, error) {
	query := fmt.Sprintf(`SELECT %s FROM players WHERE id = $1 AND is_online = TRUE`, playerColumns)
	p, err := scanPlayer(r.pool.QueryRow(ctx, query, playerID))
	if err != nil {
		if errors.Is(err, domain.ErrPlayerNotFound) {
			return nil, domain.ErrReceiverUnavailable
		}
		return nil, err
	}
	return p, nil
}

// LookupPlayer retrieves a player by display name and disambiguation tag
func (r *Repository) LookupPlayer(ctx context.Context, displayName, playerTag string) (*domain.Player, error) {
	query := fmt.Sprintf(`SELECT %s FROM players WHERE display_name = $1 AND player_tag = $2`, playerColumns)
	return scanPlayer(r.pool.QueryRow(ctx, query, displayName, playerTag))
}

// ListOnlinePlayers retrieves all online players, optionally excluding one id
func (r *Repository) ListOnlinePlayers(ctx context.Context, excludeID int64) ([]domain.Player, error) {
	query := fmt.Sprintf(`SELECT %s FROM players WHERE is_online = TRUE AND id <> $1 ORDER BY display_name`, playerColumns)
	rows, err := r.pool.Query(ctx, query, excludeID)
	if err != nil {
		return nil, fmt.Errorf("listing online players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, nil
}

// SetPlayerOnline marks a player online and stamps connect time and heartbeat
func (r *Repository) SetPlayerOnline(ctx context.Context, playerID int64) error {
	query := `
		UPDATE players
		SET is_online = TRUE, connected_at = now(), last_heartbeat = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, playerID)
	if err != nil {
		return fmt.Errorf("marking player online: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// SetPlayerOffline marks a player offline and stamps last-seen
func (r *Repository) SetPlayerOffline(ctx context.Context, playerID int64) error {
	query := `
		UPDATE players
		SET is_online = FALSE, game_open = FALSE, last_seen = now()
		WHERE id = $1
	`
	if _, err := r.pool.Exec(ctx, query, playerID); err != nil {
		return fmt.Errorf("marking player offline: %w", err)
	}
	return nil
}

// TouchPlayerHeartbeat stamps a heartbeat, records the game-open flag, and
// restores online status for players flagged offline during a heartbeat gap
func (r *Repository) TouchPlayerHeartbeat(ctx context.Context, playerID int64, gameOpen bool) error {
	query := `
		UPDATE players
		SET last_heartbeat = now(), game_open = $1, is_online = TRUE
		WHERE id = $2
	`
	tag, err := r.pool.Exec(ctx, query, gameOpen, playerID)
	if err != nil {
		return fmt.Errorf("updating heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// SweepStalePlayers marks offline every online player whose heartbeat is
// older than the timeout, or who connected more than the timeout ago and
// never sent a first heartbeat. Returns the number of players affected.
func (r *Repository) SweepStalePlayers(ctx context.Context, timeout time.Duration) (int64, error) {
	query := `
		UPDATE players
		SET is_online = FALSE, game_open = FALSE
		WHERE is_online = TRUE
		  AND (
			(last_heartbeat IS NULL AND connected_at < now() - $1::interval)
			OR
			(last_heartbeat IS NOT NULL AND last_heartbeat < now() - $1::interval)
		  )
	`
	tag, err := r.pool.Exec(ctx, query, timeout)
	if err != nil {
		return 0, fmt.Errorf("sweeping stale players: %w", err)
	}
	return tag.RowsAffected(), nil
}
