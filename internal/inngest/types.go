package inngest

import (
	"github.com/inngest/inngestgo"
)

type client struct {
	inngestClient inngestgo.Client
	sweeper       Sweeper
}

// Options configures the hosted sweep function.
type Options struct {
	AppID      string
	SigningKey string
	EventKey   string
	Dev        bool
	// Cron is a standard five-field expression.
	Cron string
}

// EventSweepRequested triggers an out-of-schedule sweep.
const EventSweepRequested = "roster/sweep.requested"
