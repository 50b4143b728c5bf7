package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirePlayer(t *testing.T) {
	_, err := RequirePlayer(context.Background())
	assert.ErrorIs(t, err, match.ErrNotAuthenticated)

	_, err = RequirePlayer(WithPlayerID(context.Background(), ""))
	assert.ErrorIs(t, err, match.ErrNotAuthenticated)

	id, err := RequirePlayer(WithPlayerID(context.Background(), "p1"))
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
}

func TestRequireSelfOrManager(t *testing.T) {
	perms := NewMockPermissions("admin")

	_, err := RequireSelfOrManager(WithPlayerID(context.Background(), "p1"), perms, "m1", "p1")
	assert.NoError(t, err)
	assert.Empty(t, perms.CanManageRosterCalls, "acting on yourself needs no permission lookup")

	_, err = RequireSelfOrManager(WithPlayerID(context.Background(), "p2"), perms, "m1", "p1")
	assert.ErrorIs(t, err, match.ErrNotAuthorized)

	_, err = RequireSelfOrManager(WithPlayerID(context.Background(), "admin"), perms, "m1", "p1")
	assert.NoError(t, err)
}

func TestRequireManager_PropagatesLookupErrors(t *testing.T) {
	perms := NewMockPermissions()
	boom := errors.New("db down")
	perms.CanManageRosterFunc = func(ctx context.Context, matchID, playerID string) (bool, error) {
		return false, boom
	}

	_, err := RequireManager(WithPlayerID(context.Background(), "p1"), perms, "m1")
	assert.ErrorIs(t, err, boom)
}
