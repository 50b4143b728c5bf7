package http

import (
	"net/http"

	"github.com/mauv0809/pickup-roster/internal/cache"
	"github.com/mauv0809/pickup-roster/internal/config"
	"github.com/mauv0809/pickup-roster/internal/inngest"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/mauv0809/pickup-roster/internal/notifier"
	"github.com/mauv0809/pickup-roster/internal/players"
	"github.com/mauv0809/pickup-roster/internal/promotion"
	"github.com/mauv0809/pickup-roster/internal/pubsub"
	"github.com/mauv0809/pickup-roster/internal/roster"
	"github.com/mauv0809/pickup-roster/internal/teams"
	"github.com/mauv0809/pickup-roster/internal/waitlist"
)

type Server struct {
	Matches        match.Store
	Coordinator    *roster.Coordinator
	Queue          *waitlist.Queue
	Engine         *promotion.Engine
	Teams          *teams.Generator
	Summaries      *cache.Summaries
	Players        players.Store
	Notifier       notifier.Notifier
	PubSub         pubsub.PubSubClient
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Inngest        inngest.InngestClient
	Router         *http.ServeMux
}

// Dependencies is everything NewServer wires into routes. PubSub and Inngest
// are optional; their routes are only registered when set.
type Dependencies struct {
	Matches        match.Store
	Coordinator    *roster.Coordinator
	Queue          *waitlist.Queue
	Engine         *promotion.Engine
	Teams          *teams.Generator
	Summaries      *cache.Summaries
	Players        players.Store
	Notifier       notifier.Notifier
	PubSub         pubsub.PubSubClient
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Inngest        inngest.InngestClient
}

type createMatchRequest struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	StartsAt           int64  `json:"starts_at"`
	FieldCapacity      int    `json:"field_capacity"`
	GoalkeeperCapacity int    `json:"goalkeeper_capacity"`
	AutoPromoteMinutes int    `json:"auto_promote_minutes"`
}

type positionRequest struct {
	Position string `json:"position"`
	Casual   bool   `json:"casual"`
}

type statusRequest struct {
	Status match.Status `json:"status"`
}

type managerRequest struct {
	PlayerID string `json:"player_id"`
}

type paymentRequest struct {
	Status match.PaymentStatus `json:"status"`
}

type summonRequest struct {
	PlayerIDs []string `json:"player_ids"`
	Position  string   `json:"position"`
}

type generateTeamsRequest struct {
	Teams    int  `json:"teams"`
	Balance  bool `json:"balance"`
	Announce bool `json:"announce"`
}

type joinResponse struct {
	Roster   *match.RosterEntry   `json:"roster,omitempty"`
	Waitlist *match.WaitlistEntry `json:"waitlist,omitempty"`
}

type errorResponse struct {
	Error    string `json:"error"`
	Waitlist bool   `json:"waitlist,omitempty"`
}
