package teams

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/auth"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/mauv0809/pickup-roster/internal/roster"
)

var errRosterChanged = errors.New("roster changed during team generation")

func New(store *aggregate.Store, ratings RatingSource, balancer Balancer, perms auth.Permissions, m metrics.Metrics) *Generator {
	if balancer == nil {
		balancer = SnakeDraft{}
	}
	return &Generator{
		store:    store,
		ratings:  ratings,
		balancer: balancer,
		perms:    perms,
		metrics:  m,
	}
}

// Generate splits the confirmed roster into n teams and replaces any teams
// the match already has. Goalkeepers are dealt first, then field players,
// either at random or through the balancer. A failing balancer never fails
// generation.
func (g *Generator) Generate(ctx context.Context, matchID string, n int, balance bool) ([]match.Team, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", match.ErrInvalidTeamCount, n)
	}
	if _, err := auth.RequireManager(ctx, g.perms, matchID); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Ratings come from another store, so the roster is read and split
		// outside the transaction and re-checked inside it.
		snapshot, err := confirmedRoster(ctx, g.store.DB(), matchID)
		if err != nil {
			return nil, err
		}
		assignment := g.assign(ctx, matchID, snapshot, n, balance)

		var teams []match.Team
		err = g.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
			current, err := roster.ConfirmedTx(tx)
			if err != nil {
				return err
			}
			if !sameMembers(snapshot, current) {
				return errRosterChanged
			}
			teams = buildTeams(matchID, assignment, nil)
			return replaceTx(tx, teams)
		})
		if errors.Is(err, errRosterChanged) {
			log.Debug("Roster changed while generating teams, retrying", "matchID", matchID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Info("Generated teams", "matchID", matchID, "teams", n, "players", len(snapshot), "balanced", balance)
		return teams, nil
	}
	g.metrics.IncContention()
	return nil, fmt.Errorf("%w: roster of %s kept changing during team generation", match.ErrContention, matchID)
}

// assign returns one list of player ids per team.
func (g *Generator) assign(ctx context.Context, matchID string, confirmed []match.RosterEntry, n int, balance bool) [][]string {
	var keepers, field []string
	for _, e := range confirmed {
		if e.Position == match.PositionGoalkeeper {
			keepers = append(keepers, e.PlayerID)
		} else {
			field = append(field, e.PlayerID)
		}
	}

	teams := make([][]string, n)
	dealRoundRobin(teams, shuffled(keepers), 0)

	if balance && len(field) > 0 {
		balanced, err := g.balance(ctx, field, n)
		if err == nil {
			for i := range teams {
				teams[i] = append(teams[i], balanced[i]...)
			}
			return teams
		}
		g.metrics.IncBalancerFallbacks()
		log.Warn("Team balancer failed, falling back to random teams", "matchID", matchID, "error", err)
	}

	// Continue the rotation after the goalkeepers so team sizes stay even.
	dealRoundRobin(teams, shuffled(field), len(keepers))
	return teams
}

func (g *Generator) balance(ctx context.Context, field []string, n int) ([][]string, error) {
	if g.ratings == nil {
		return nil, fmt.Errorf("%w: no rating source", match.ErrBalancerUnavailable)
	}
	profiles, err := g.ratings.GetPlayers(field)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load ratings: %v", match.ErrBalancerUnavailable, err)
	}
	levels := make(map[string]float64, len(profiles))
	for _, p := range profiles {
		levels[p.ID] = p.Level
	}
	pool := make([]RatedPlayer, len(field))
	for i, id := range field {
		pool[i] = RatedPlayer{ID: id, Level: levels[id]}
	}

	out, err := g.balancer.Balance(ctx, pool, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", match.ErrBalancerUnavailable, err)
	}
	if err := validPartition(out, field, n); err != nil {
		return nil, fmt.Errorf("%w: %v", match.ErrBalancerUnavailable, err)
	}
	return out, nil
}

// Update overwrites the teams of one match with manually edited ones. Every
// member must be confirmed and appear in at most one team.
func (g *Generator) Update(ctx context.Context, teams []match.Team) ([]match.Team, error) {
	if len(teams) == 0 {
		return nil, fmt.Errorf("%w: no teams given", match.ErrInvalidInput)
	}
	matchID := teams[0].MatchID
	for _, t := range teams {
		if t.MatchID != matchID {
			return nil, fmt.Errorf("%w: teams belong to more than one match", match.ErrInvalidInput)
		}
	}
	if _, err := auth.RequireManager(ctx, g.perms, matchID); err != nil {
		return nil, err
	}

	assignment := make([][]string, len(teams))
	for i, t := range teams {
		assignment[i] = t.PlayerIDs
	}

	var updated []match.Team
	err := g.store.RunTransaction(ctx, matchID, func(tx *aggregate.Tx) error {
		confirmed, err := roster.ConfirmedTx(tx)
		if err != nil {
			return err
		}
		ids := make([]string, len(confirmed))
		for i, e := range confirmed {
			ids[i] = e.PlayerID
		}
		if err := disjointSubset(assignment, ids); err != nil {
			return fmt.Errorf("%w: %v", match.ErrInvalidInput, err)
		}
		updated = buildTeams(matchID, assignment, teams)
		return replaceTx(tx, updated)
	})
	if err != nil {
		return nil, err
	}
	log.Info("Updated teams", "matchID", matchID, "teams", len(updated))
	return updated, nil
}

// Clear removes the match's teams and the mirrored names.
func (g *Generator) Clear(ctx context.Context, matchID string) error {
	if _, err := auth.RequireManager(ctx, g.perms, matchID); err != nil {
		return err
	}
	return g.store.BatchWrite(ctx, matchID,
		aggregate.Op{Query: `DELETE FROM teams WHERE match_id = ?`, Args: []any{matchID}},
		aggregate.Op{Query: `UPDATE matches SET team1_name = NULL, team2_name = NULL WHERE id = ?`, Args: []any{matchID}},
	)
}

// List returns the teams ordered by ordinal.
func (g *Generator) List(ctx context.Context, matchID string) ([]match.Team, error) {
	rows, err := g.store.DB().QueryContext(ctx, `SELECT id, match_id, ordinal, name, color, player_ids, score FROM teams WHERE match_id = ? ORDER BY ordinal`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams of %s: %w", matchID, err)
	}
	defer rows.Close()

	teams := []match.Team{}
	for rows.Next() {
		var (
			t   match.Team
			ids []byte
		)
		if err := rows.Scan(&t.ID, &t.MatchID, &t.Ordinal, &t.Name, &t.Color, &ids, &t.Score); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		if err := json.Unmarshal(ids, &t.PlayerIDs); err != nil {
			return nil, fmt.Errorf("failed to decode players of team %s: %w", t.ID, err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// buildTeams names and colors the assignment. Fields set on prev (ids,
// names, colors, scores) are kept.
func buildTeams(matchID string, assignment [][]string, prev []match.Team) []match.Team {
	teams := make([]match.Team, len(assignment))
	for i, ids := range assignment {
		t := match.Team{
			ID:        uuid.NewString(),
			MatchID:   matchID,
			Ordinal:   i + 1,
			Name:      fmt.Sprintf("Team %d", i+1),
			Color:     Palette[i%len(Palette)],
			PlayerIDs: ids,
		}
		if ids == nil {
			t.PlayerIDs = []string{}
		}
		if i < len(prev) {
			if prev[i].ID != "" {
				t.ID = prev[i].ID
			}
			if prev[i].Name != "" {
				t.Name = prev[i].Name
			}
			if prev[i].Color != "" {
				t.Color = prev[i].Color
			}
			t.Score = prev[i].Score
		}
		teams[i] = t
	}
	return teams
}

// replaceTx swaps the stored teams and mirrors the names onto the match when
// there are exactly two.
func replaceTx(tx *aggregate.Tx, teams []match.Team) error {
	if _, err := tx.Exec(`DELETE FROM teams WHERE match_id = ?`, tx.Match.ID); err != nil {
		return fmt.Errorf("failed to delete teams: %w", err)
	}
	for _, t := range teams {
		ids, err := json.Marshal(t.PlayerIDs)
		if err != nil {
			return fmt.Errorf("failed to marshal team players: %w", err)
		}
		_, err = tx.Exec(`INSERT INTO teams (id, match_id, ordinal, name, color, player_ids, score) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.MatchID, t.Ordinal, t.Name, t.Color, string(ids), t.Score)
		if err != nil {
			return fmt.Errorf("failed to insert team %s: %w", t.Name, err)
		}
	}

	var team1, team2 sql.NullString
	if len(teams) == 2 {
		team1 = sql.NullString{String: teams[0].Name, Valid: true}
		team2 = sql.NullString{String: teams[1].Name, Valid: true}
	}
	if _, err := tx.Exec(`UPDATE matches SET team1_name = ?, team2_name = ? WHERE id = ?`, team1, team2, tx.Match.ID); err != nil {
		return fmt.Errorf("failed to sync team names: %w", err)
	}
	return nil
}

func confirmedRoster(ctx context.Context, db *sql.DB, matchID string) ([]match.RosterEntry, error) {
	entries, err := roster.List(ctx, db, matchID)
	if err != nil {
		return nil, err
	}
	confirmed := entries[:0]
	for _, e := range entries {
		if e.Status == match.RosterConfirmed {
			confirmed = append(confirmed, e)
		}
	}
	return confirmed, nil
}

func sameMembers(a, b []match.RosterEntry) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]match.Position, len(a))
	for _, e := range a {
		seen[e.PlayerID] = e.Position
	}
	for _, e := range b {
		if pos, ok := seen[e.PlayerID]; !ok || pos != e.Position {
			return false
		}
	}
	return true
}

func dealRoundRobin(teams [][]string, ids []string, offset int) {
	for i, id := range ids {
		k := (offset + i) % len(teams)
		teams[k] = append(teams[k], id)
	}
}

func shuffled(ids []string) []string {
	out := append([]string(nil), ids...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// validPartition checks that teams holds exactly n lists covering pool once.
func validPartition(teams [][]string, pool []string, n int) error {
	if len(teams) != n {
		return fmt.Errorf("got %d teams, want %d", len(teams), n)
	}
	want := make(map[string]bool, len(pool))
	for _, id := range pool {
		want[id] = true
	}
	seen := make(map[string]bool, len(pool))
	for _, team := range teams {
		for _, id := range team {
			if !want[id] {
				return fmt.Errorf("unknown player %s", id)
			}
			if seen[id] {
				return fmt.Errorf("player %s assigned twice", id)
			}
			seen[id] = true
		}
	}
	if len(seen) != len(pool) {
		return fmt.Errorf("%d of %d players assigned", len(seen), len(pool))
	}
	return nil
}

func disjointSubset(teams [][]string, confirmed []string) error {
	allowed := make(map[string]bool, len(confirmed))
	for _, id := range confirmed {
		allowed[id] = true
	}
	seen := make(map[string]bool)
	for _, team := range teams {
		for _, id := range team {
			if !allowed[id] {
				return fmt.Errorf("player %s is not confirmed", id)
			}
			if seen[id] {
				return fmt.Errorf("player %s assigned twice", id)
			}
			seen[id] = true
		}
	}
	return nil
}
