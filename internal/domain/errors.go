package domain

import "errors"

// Domain errors
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidDecision     = errors.New("response must be \"accept\" or \"decline\"")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrSessionNotFound     = errors.New("session not found or access denied")
	ErrReceiverUnavailable = errors.New("receiver not found or offline")
	ErrDuplicateInvite     = errors.New("pending invite already exists for this player")
	ErrInviteNotActionable = errors.New("invite not found, expired, or already responded")
	ErrServerUnavailable   = errors.New("no available compute-servers")
	ErrSessionCodeTaken    = errors.New("session code already in use")
	ErrUnauthorized        = errors.New("invalid or missing credentials")
	ErrInternal            = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrInviteNotActionable) ||
		errors.Is(err, ErrReceiverUnavailable)
}

// IsConflictError checks if an error indicates state the caller must refresh
func IsConflictError(err error) bool {
	return errors.Is(err, ErrDuplicateInvite) || errors.Is(err, ErrSessionCodeTaken)
}
