package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/game-invites/internal/config"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id BIGSERIAL PRIMARY KEY,
			display_name VARCHAR(64) NOT NULL,
			player_tag VARCHAR(8) NOT NULL,
			is_online BOOLEAN NOT NULL DEFAULT FALSE,
			game_open BOOLEAN NOT NULL DEFAULT FALSE,
			connected_at TIMESTAMPTZ,
			last_heartbeat TIMESTAMPTZ,
			last_seen TIMESTAMPTZ,
			UNIQUE (display_name, player_tag)
		)`,
		`CREATE TABLE IF NOT EXISTS compute_servers (
			id BIGSERIAL PRIMARY KEY,
			ip_address VARCHAR(64) NOT NULL,
			port INT NOT NULL,
			max_players INT NOT NULL DEFAULT 4,
			region VARCHAR(32) NOT NULL DEFAULT 'default',
			is_available BOOLEAN NOT NULL DEFAULT TRUE,
			current_player_count INT NOT NULL DEFAULT 0 CHECK (current_player_count >= 0),
			last_heartbeat TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id BIGSERIAL PRIMARY KEY,
			server_id BIGINT NOT NULL REFERENCES compute_servers(id) ON DELETE CASCADE,
			session_code VARCHAR(12) NOT NULL UNIQUE,
			host_player_id BIGINT NOT NULL,
			current_players INT NOT NULL DEFAULT 1 CHECK (current_players >= 0),
			status VARCHAR(16) NOT NULL DEFAULT 'waiting',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS invites (
			id BIGSERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL,
			receiver_id BIGINT NOT NULL,
			session_code VARCHAR(12) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_players_online ON players(is_online)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_host ON game_sessions(host_player_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_server ON game_sessions(server_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invites_receiver ON invites(receiver_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_invites_pair ON invites(sender_id, receiver_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_invites_expiry ON invites(expires_at)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}
