package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/game-invites/internal/domain"
)

// CreateInvite inserts a pending invite with the given validity window and
// returns the stored row
func (r *Repository) CreateInvite(ctx context.Context, senderID, receiverID int64, sessionCode string, ttl time.Duration) (*domain.Invite, error) {
	query := `
		INSERT INTO invites (sender_id, receiver_id, session_code, status, created_at, expires_at)
		VALUES ($1, $2, $3, 'pending', now(), now() + $4::interval)
		RETURNING id, sender_id, receiver_id, session_code, status, created_at, expires_at
	`
	var inv domain.Invite
	err := r.pool.QueryRow(ctx, query, senderID, receiverID, sessionCode, ttl).Scan(
		&inv.ID,
		&inv.SenderID,
		&inv.ReceiverID,
		&inv.SessionCode,
		&inv.Status,
		&inv.CreatedAt,
		&inv.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating invite: %w", err)
	}
	return &inv, nil
}

// HasPendingInvite reports whether a pending, unexpired invite already
// exists for the (sender, receiver) pair
func (r *Repository) HasPendingInvite(ctx context.Context, senderID, receiverID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM invites
			WHERE sender_id = $1 AND receiver_id = $2
			  AND status = 'pending' AND expires_at > now()
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, senderID, receiverID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking pending invite: %w", err)
	}
	return exists, nil
}

// GetInviteForReceiver retrieves an actionable invite (pending, unexpired,
// owned by the receiver) joined with its target session and backing server
func (r *Repository) GetInviteForReceiver(ctx context.Context, inviteID, receiverID int64) (*domain.InviteDetail, error) {
	query := `
		SELECT i.id, i.sender_id, i.receiver_id, i.session_code, i.status, i.created_at, i.expires_at,
		       gs.id, gs.server_id, cs.ip_address, cs.port
		FROM invites i
		JOIN game_sessions gs ON i.session_code = gs.session_code
		JOIN compute_servers cs ON gs.server_id = cs.id
		WHERE i.id = $1 AND i.receiver_id = $2
		  AND i.status = 'pending' AND i.expires_at > now()
	`
	var d domain.InviteDetail
	err := r.pool.QueryRow(ctx, query, inviteID, receiverID).Scan(
		&d.ID,
		&d.SenderID,
		&d.ReceiverID,
		&d.SessionCode,
		&d.Status,
		&d.CreatedAt,
		&d.ExpiresAt,
		&d.SessionID,
		&d.ServerID,
		&d.ServerAddress,
		&d.ServerPort,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInviteNotActionable
		}
		return nil, fmt.Errorf("getting invite: %w", err)
	}
	return &d, nil
}

// TransitionInvite performs the conditional status write: the row moves to
// the target status only if it is still pending and unexpired. Returns false
// when another response already won or the invite lapsed, so the check and
// the write act as one logical operation per invite id.
func (r *Repository) TransitionInvite(ctx context.Context, inviteID int64, target domain.InviteStatus) (bool, error) {
	if !domain.InviteStatusPending.CanTransitionTo(target) {
		return false, domain.ErrInvalidDecision
	}
	query := `
		UPDATE invites
		SET status = $1
		WHERE id = $2 AND status = 'pending' AND expires_at > now()
	`
	tag, err := r.pool.Exec(ctx, query, target, inviteID)
	if err != nil {
		return false, fmt.Errorf("transitioning invite: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListPendingInvites retrieves all pending, unexpired invites addressed to
// the given receiver, joined with sender identity
func (r *Repository) ListPendingInvites(ctx context.Context, receiverID int64) ([]domain.PendingInvite, error) {
	query := `
		SELECT i.id, i.session_code, i.created_at, i.expires_at,
		       p.id, p.display_name, p.player_tag
		FROM invites i
		JOIN players p ON i.sender_id = p.id
		WHERE i.receiver_id = $1 AND i.status = 'pending' AND i.expires_at > now()
		ORDER BY i.created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, receiverID)
	if err != nil {
		return nil, fmt.Errorf("listing pending invites: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var invites []domain.PendingInvite
	for rows.Next() {
		var (
			inv         domain.PendingInvite
			displayName string
			playerTag   string
		)
		err := rows.Scan(
			&inv.InviteID,
			&inv.SessionCode,
			&inv.CreatedAt,
			&inv.ExpiresAt,
			&inv.SenderID,
			&displayName,
			&playerTag,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning pending invite: %w", err)
		}
		inv.SenderName = displayName + playerTag
		if remaining := int(inv.ExpiresAt.Sub(now).Seconds()); remaining > 0 {
			inv.ExpiresIn = remaining
		}
		invites = append(invites, inv)
	}
	return invites, nil
}

// DeleteExpiredInvites removes every invite that is past its expiry or in a
// terminal status. Returns the number of rows removed; running it twice in a
// row deletes nothing the second time.
func (r *Repository) DeleteExpiredInvites(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM invites
		WHERE (expires_at < now())
		   OR (status IN ('accepted', 'declined'))
	`
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("deleting expired invites: %w", err)
	}
	return tag.RowsAffected(), nil
}
