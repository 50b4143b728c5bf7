package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	LogLevel      string
	DryRun        bool
	ProjectID     string
	Slack         SlackConfig
	Turso         TursoConfig
	Redis         RedisConfig
	Inngest       InngestConfig
	Roster        RosterConfig
	Sweep         SweepConfig
}

type SlackConfig struct {
	Token         string
	ChannelID     string
	SigningSecret string
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// RedisConfig leaves Addr empty to fall back to the in-memory summary cache.
type RedisConfig struct {
	Addr       string
	Password   string
	SummaryTTL time.Duration
}

type InngestConfig struct {
	AppID      string
	SigningKey string
	EventKey   string
	Dev        bool
}

// Enabled reports whether an Inngest app is configured.
func (c InngestConfig) Enabled() bool {
	return c.AppID != ""
}

// RosterConfig holds the defaults applied to newly created matches.
type RosterConfig struct {
	FieldCapacity      int
	GoalkeeperCapacity int
	AutoPromoteMinutes int
	TxMaxRetries       int
}

// SweepConfig drives the in-process waitlist sweep. An empty Schedule disables it.
type SweepConfig struct {
	Schedule    string
	Concurrency int
}
