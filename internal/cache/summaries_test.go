package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/cache"
	"github.com/mauv0809/pickup-roster/internal/database"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/mauv0809/pickup-roster/internal/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaries_ForgetOnCommit(t *testing.T) {
	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	matches := match.New(db, match.Defaults{FieldCapacity: 10, GoalkeeperCapacity: 2, AutoPromoteMinutes: 30})
	_, err = matches.Create(context.Background(), match.CreateParams{ID: "m1", OwnerID: "owner", Title: "Sunday"})
	require.NoError(t, err)

	summaries := cache.NewSummaries(cache.NewMemory(time.Hour), matches)
	store := aggregate.New(db, metrics.NewMock(), aggregate.WithCommitHook(summaries.Forget))

	s, err := summaries.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Sunday", s.Title)
	assert.Equal(t, 0, s.FieldCount)

	err = store.RunTransaction(context.Background(), "m1", func(tx *aggregate.Tx) error {
		_, _, err := roster.Admit(tx, "p1", match.PositionField, false)
		return err
	})
	require.NoError(t, err)

	s, err = summaries.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.FieldCount)
	assert.Equal(t, 10, s.FieldCapacity)
}

func TestSummaries_NotFound(t *testing.T) {
	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	summaries := cache.NewSummaries(cache.NewMemory(time.Hour), match.New(db, match.Defaults{}))
	_, err = summaries.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, match.ErrNotFound)
}
