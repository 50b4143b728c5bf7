package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/auth"
	"github.com/mauv0809/pickup-roster/internal/database"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/mauv0809/pickup-roster/internal/players"
	"github.com/mauv0809/pickup-roster/internal/roster"
	"github.com/mauv0809/pickup-roster/internal/waitlist"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{
		"DB_NAME":           "pickup-roster.db",
		"MIGRATIONS_DIR":    "./migrations",
		"TURSO_PRIMARY_URL": "",
		"TURSO_AUTH_TOKEN":  "",
		"SEED_PLAYERS":      "24",
	}
	for key := range config {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	numPlayers, err := strconv.Atoi(cfg["SEED_PLAYERS"])
	if err != nil || numPlayers < 1 {
		log.Fatalf("SEED_PLAYERS must be a positive integer, got %q", cfg["SEED_PLAYERS"])
	}

	db, teardown, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"], cfg["MIGRATIONS_DIR"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer teardown()
	log.Info("Successfully connected to the database.")

	ctx := context.Background()
	m := metrics.NewService()
	playerStore := players.New(db)
	matchStore := match.New(db, match.Defaults{FieldCapacity: 14, GoalkeeperCapacity: 2, AutoPromoteMinutes: 30})

	seeded := make([]players.Player, numPlayers)
	for i := range seeded {
		seeded[i] = players.Player{
			ID:    fmt.Sprintf("player-%d", i+1),
			Name:  fmt.Sprintf("Seeder Player %d", i+1),
			Level: 1 + rand.Float64()*4,
		}
	}
	if err := playerStore.UpsertPlayers(seeded); err != nil {
		log.Fatalf("Failed to insert players: %s", err)
	}
	log.Info("Ensured seeded players exist.", "count", len(seeded))

	owner := seeded[0].ID
	demo, err := matchStore.Create(ctx, match.CreateParams{
		ID:       uuid.NewString(),
		OwnerID:  owner,
		Title:    "Demo pickup game",
		StartsAt: time.Now().Add(72 * time.Hour).Truncate(time.Hour),
	})
	if err != nil {
		log.Fatalf("Failed to create demo match: %s", err)
	}

	store := aggregate.New(db, m)
	queue := waitlist.New(store, m)
	coordinator := roster.NewCoordinator(store, queue, nil, matchStore, m)

	// Everyone joins, so players past capacity land on the waitlist.
	var confirmed, waiting int
	for i, p := range seeded {
		position := match.PositionField
		if i%8 == 7 {
			position = match.PositionGoalkeeper
		}
		result, err := coordinator.Join(auth.WithPlayerID(ctx, p.ID), demo.ID, p.ID, position, false)
		if errors.Is(err, match.ErrAlreadyConfirmed) {
			continue
		}
		if err != nil {
			log.Fatalf("Failed to join %s: %s", p.ID, err)
		}
		if result.Roster != nil {
			confirmed++
		} else {
			waiting++
		}
	}
	log.Info("Seeded demo match.", "matchID", demo.ID, "confirmed", confirmed, "waitlisted", waiting)
}
