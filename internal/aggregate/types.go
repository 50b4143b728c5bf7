package aggregate

import (
	"context"
	"database/sql"
	"time"

	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
)

// Store runs read-modify-write transactions scoped to one match.
type Store struct {
	db         *sql.DB
	metrics    metrics.Metrics
	maxRetries uint64
	baseDelay  time.Duration
	hooks      []CommitHook
	now        func() time.Time
}

// CommitHook runs after a transaction that wrote to the match has committed.
type CommitHook func(ctx context.Context, matchID string)

type Option func(*Store)

// Op is one statement of a batch write.
type Op struct {
	Query string
	Args  []any
}

// Tx is the handle passed to transaction functions. Match is the snapshot
// read at the start of the attempt.
type Tx struct {
	ctx         context.Context
	tx          *sql.Tx
	now         time.Time
	wrote       bool
	afterCommit []func()

	Match *match.Match
}
