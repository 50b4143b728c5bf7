package config

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	return Config{
		DBName:        getEnv("DB_NAME"),
		MigrationsDir: getOptional("MIGRATIONS_DIR", "./migrations"),
		Port:          getEnv("PORT"),
		LogLevel:      getOptional("LOG_LEVEL", "info"),
		DryRun:        getBool("DRY_RUN", false),
		ProjectID:     getOptional("GCP_PROJECT", ""),
		Slack: SlackConfig{
			Token:         getOptional("SLACK_BOT_TOKEN", ""),
			ChannelID:     getOptional("SLACK_CHANNEL_ID", ""),
			SigningSecret: getOptional("SLACK_SIGNING_SECRET", ""),
		},
		Turso: TursoConfig{
			PrimaryURL: getOptional("TURSO_PRIMARY_URL", ""),
			AuthToken:  getOptional("TURSO_AUTH_TOKEN", ""),
		},
		Redis: RedisConfig{
			Addr:       getOptional("REDIS_ADDR", ""),
			Password:   getOptional("REDIS_PASSWORD", ""),
			SummaryTTL: time.Duration(getInt("SUMMARY_TTL_SECONDS", 60)) * time.Second,
		},
		Inngest: InngestConfig{
			AppID:      getOptional("INNGEST_APP_ID", ""),
			SigningKey: getOptional("INNGEST_SIGNING_KEY", ""),
			EventKey:   getOptional("INNGEST_EVENT_KEY", ""),
			Dev:        getBool("INNGEST_DEV", false),
		},
		Roster: RosterConfig{
			FieldCapacity:      getInt("DEFAULT_FIELD_CAPACITY", 20),
			GoalkeeperCapacity: getInt("DEFAULT_GOALKEEPER_CAPACITY", 3),
			AutoPromoteMinutes: getInt("DEFAULT_AUTO_PROMOTE_MINUTES", 30),
			TxMaxRetries:       getInt("TX_MAX_RETRIES", 5),
		},
		Sweep: SweepConfig{
			Schedule:    getOptional("SWEEP_SCHEDULE", "0 */5 * * * *"),
			Concurrency: getInt("SWEEP_CONCURRENCY", 4),
		},
	}
}

// getOptional returns fallback only when key is unset, so an explicitly empty
// SWEEP_SCHEDULE turns the in-process sweep off.
func getOptional(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		log.Fatalf("Error: environment variable %s must be a non-negative integer, got %q", key, value)
	}
	return n
}

func getBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Fatalf("Error: environment variable %s must be a boolean, got %q", key, value)
	}
	return b
}
