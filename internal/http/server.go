package http

import (
	"net/http"
)

func NewServer(deps Dependencies) *Server {
	server := &Server{
		Matches:        deps.Matches,
		Coordinator:    deps.Coordinator,
		Queue:          deps.Queue,
		Engine:         deps.Engine,
		Teams:          deps.Teams,
		Summaries:      deps.Summaries,
		Players:        deps.Players,
		Notifier:       deps.Notifier,
		PubSub:         deps.PubSub,
		Metrics:        deps.Metrics,
		MetricsHandler: deps.MetricsHandler,
		Cfg:            deps.Cfg,
		Inngest:        deps.Inngest,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// Player routes additionally resolve the caller with identityMiddleware.
	api := func(h http.Handler) http.Handler {
		return Chain(h, paramsMiddleware, identityMiddleware)
	}

	s.Router.Handle("GET /metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), paramsMiddleware))

	s.Router.Handle("GET /matches", api(s.ListMatchesHandler()))
	s.Router.Handle("POST /matches", api(s.CreateMatchHandler()))
	s.Router.Handle("GET /matches/{matchID}", api(s.GetMatchHandler()))
	s.Router.Handle("GET /matches/{matchID}/summary", api(s.SummaryHandler()))
	s.Router.Handle("POST /matches/{matchID}/managers", api(s.AddManagerHandler()))
	s.Router.Handle("PUT /matches/{matchID}/status", api(s.UpdateStatusHandler()))

	s.Router.Handle("GET /matches/{matchID}/roster", api(s.ListRosterHandler()))
	s.Router.Handle("POST /matches/{matchID}/roster", api(s.JoinHandler()))
	s.Router.Handle("DELETE /matches/{matchID}/roster", api(s.CancelHandler()))
	s.Router.Handle("DELETE /matches/{matchID}/roster/{playerID}", api(s.RemovePlayerHandler()))
	s.Router.Handle("PUT /matches/{matchID}/roster/{playerID}/payment", api(s.PaymentHandler()))
	s.Router.Handle("POST /matches/{matchID}/summon", api(s.SummonHandler()))
	s.Router.Handle("POST /matches/{matchID}/invitation", api(s.AcceptInvitationHandler()))

	s.Router.Handle("GET /matches/{matchID}/waitlist", api(s.ListWaitlistHandler()))
	s.Router.Handle("POST /matches/{matchID}/waitlist", api(s.AddToWaitlistHandler()))
	s.Router.Handle("DELETE /matches/{matchID}/waitlist", api(s.LeaveWaitlistHandler()))
	s.Router.Handle("POST /matches/{matchID}/waitlist/notify", api(s.NotifyNextHandler()))
	s.Router.Handle("POST /matches/{matchID}/waitlist/accept", api(s.AcceptOfferHandler()))

	s.Router.Handle("GET /matches/{matchID}/teams", api(s.ListTeamsHandler()))
	s.Router.Handle("POST /matches/{matchID}/teams", api(s.GenerateTeamsHandler()))
	s.Router.Handle("PUT /matches/{matchID}/teams", api(s.UpdateTeamsHandler()))
	s.Router.Handle("DELETE /matches/{matchID}/teams", api(s.ClearTeamsHandler()))

	s.Router.Handle("POST /sweep", Chain(s.SweepHandler(), paramsMiddleware))
	s.Router.Handle("POST /slack/command/roster", Chain(s.RosterCommandHandler(), paramsMiddleware, s.slackVerificationMiddleware))

	if s.PubSub != nil {
		s.Router.Handle("POST /pubsub/waitlist-notice", Chain(s.WaitlistNoticeHandler(), paramsMiddleware))
	}
	if s.Inngest != nil {
		s.Router.Handle("/api/inngest", s.Inngest.Serve())
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
