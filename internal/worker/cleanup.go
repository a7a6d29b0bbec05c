package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/game-invites/internal/config"
)

// CleanupStore is the durable-store surface the worker sweeps
type CleanupStore interface {
	SweepStalePlayers(ctx context.Context, timeout time.Duration) (int64, error)
	SweepDeadServers(ctx context.Context, timeout time.Duration) (int64, error)
	ReapStaleSessions(ctx context.Context, timeout time.Duration) (int64, error)
	DeleteExpiredInvites(ctx context.Context) (int64, error)
}

// CleanupWorker runs the periodic liveness and expiry sweeps: stale
// players, dead compute servers, abandoned waiting sessions, and expired
// or settled invites. Each sweep runs on its own interval.
type CleanupWorker struct {
	store     CleanupStore
	heartbeat *config.HeartbeatConfig
	invites   *config.InviteConfig
	logger    *slog.Logger
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(
	store CleanupStore,
	heartbeat *config.HeartbeatConfig,
	invites *config.InviteConfig,
	logger *slog.Logger,
) *CleanupWorker {
	return &CleanupWorker{
		store:     store,
		heartbeat: heartbeat,
		invites:   invites,
		logger:    logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background sweep loops
func (w *CleanupWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("cleanup worker started",
		"player_sweep_interval", w.heartbeat.PlayerSweepInterval,
		"server_sweep_interval", w.heartbeat.ServerSweepInterval,
		"invite_sweep_interval", w.invites.SweepInterval,
	)

	go w.run(ctx)
	return nil
}

// Stop stops the background sweep loops
func (w *CleanupWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("cleanup worker stopped")
	return nil
}

// run is the main worker loop
func (w *CleanupWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	playerTicker := time.NewTicker(w.heartbeat.PlayerSweepInterval)
	defer playerTicker.Stop()

	serverTicker := time.NewTicker(w.heartbeat.ServerSweepInterval)
	defer serverTicker.Stop()

	sessionTicker := time.NewTicker(w.heartbeat.SessionSweepInterval)
	defer sessionTicker.Stop()

	inviteTicker := time.NewTicker(w.invites.SweepInterval)
	defer inviteTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-playerTicker.C:
			w.sweepPlayers(ctx)
		case <-serverTicker.C:
			w.sweepServers(ctx)
		case <-sessionTicker.C:
			w.sweepSessions(ctx)
		case <-inviteTicker.C:
			w.sweepInvites(ctx)
		}
	}
}

func (w *CleanupWorker) sweepPlayers(ctx context.Context) {
	marked, err := w.store.SweepStalePlayers(ctx, w.heartbeat.PlayerTimeout)
	if err != nil {
		w.logger.Error("player sweep failed", "error", err)
		return
	}
	if marked > 0 {
		w.logger.Info("marked stale players offline", "count", marked)
	}
}

func (w *CleanupWorker) sweepServers(ctx context.Context) {
	removed, err := w.store.SweepDeadServers(ctx, w.heartbeat.ServerTimeout)
	if err != nil {
		w.logger.Error("server sweep failed", "error", err)
		return
	}
	if removed > 0 {
		w.logger.Info("deactivated dead servers", "count", removed)
	}
}

func (w *CleanupWorker) sweepSessions(ctx context.Context) {
	reaped, err := w.store.ReapStaleSessions(ctx, w.heartbeat.PlayerTimeout)
	if err != nil {
		w.logger.Error("session sweep failed", "error", err)
		return
	}
	if reaped > 0 {
		w.logger.Info("reaped abandoned sessions", "count", reaped)
	}
}

func (w *CleanupWorker) sweepInvites(ctx context.Context) {
	deleted, err := w.store.DeleteExpiredInvites(ctx)
	if err != nil {
		w.logger.Error("invite sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		w.logger.Info("purged settled invites", "count", deleted)
	}
}

// IsRunning returns whether the worker is currently running
func (w *CleanupWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs every sweep a single time (useful for manual triggers)
func (w *CleanupWorker) RunOnce(ctx context.Context) {
	w.sweepPlayers(ctx)
	w.sweepServers(ctx)
	w.sweepSessions(ctx)
	w.sweepInvites(ctx)
}
