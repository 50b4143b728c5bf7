package auth

import (
	"context"
	"fmt"

	"github.com/mauv0809/pickup-roster/internal/match"
)

type contextKey string

const playerIDKey contextKey = "playerID"

// Permissions decides who may manage a match roster.
type Permissions interface {
	CanManageRoster(ctx context.Context, matchID, playerID string) (bool, error)
}

// WithPlayerID returns a context carrying the authenticated caller.
func WithPlayerID(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, playerIDKey, playerID)
}

// PlayerIDFromContext returns the authenticated caller, if any.
func PlayerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(playerIDKey).(string)
	return id, ok && id != ""
}

// RequirePlayer returns the caller or ErrNotAuthenticated.
func RequirePlayer(ctx context.Context) (string, error) {
	id, ok := PlayerIDFromContext(ctx)
	if !ok {
		return "", match.ErrNotAuthenticated
	}
	return id, nil
}

// RequireManager fails unless the caller can manage the match roster.
func RequireManager(ctx context.Context, perms Permissions, matchID string) (string, error) {
	caller, err := RequirePlayer(ctx)
	if err != nil {
		return "", err
	}
	ok, err := perms.CanManageRoster(ctx, matchID, caller)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s cannot manage match %s: %w", caller, matchID, match.ErrNotAuthorized)
	}
	return caller, nil
}

// RequireSelfOrManager allows a caller to act on their own entry, or a manager to act on anyone's.
func RequireSelfOrManager(ctx context.Context, perms Permissions, matchID, playerID string) (string, error) {
	caller, err := RequirePlayer(ctx)
	if err != nil {
		return "", err
	}
	if caller == playerID {
		return caller, nil
	}
	return RequireManager(ctx, perms, matchID)
}
