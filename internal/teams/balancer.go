package teams

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/mauv0809/pickup-roster/internal/match"
)

// SnakeDraft deals players from strongest to weakest in the order
// 1..n, n..1, 1..n and so on.
type SnakeDraft struct{}

func (SnakeDraft) Balance(ctx context.Context, pool []RatedPlayer, n int) ([][]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d teams", match.ErrInvalidTeamCount, n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sorted := slices.Clone(pool)
	slices.SortStableFunc(sorted, func(a, b RatedPlayer) int {
		if c := cmp.Compare(b.Level, a.Level); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	teams := make([][]string, n)
	for i, p := range sorted {
		round, pos := i/n, i%n
		if round%2 == 1 {
			pos = n - 1 - pos
		}
		teams[pos] = append(teams[pos], p.ID)
	}
	return teams, nil
}
