package http

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/notifier"
)

func (s *Server) ListTeamsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := s.Teams.List(r.Context(), r.PathValue("matchID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

// GenerateTeamsHandler partitions the confirmed roster. With announce set the
// teams are also posted to the club channel.
func (s *Server) GenerateTeamsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		matchID := r.PathValue("matchID")
		req := generateTeamsRequest{Teams: 2}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		teams, err := s.Teams.Generate(ctx, matchID, req.Teams, req.Balance)
		if err != nil {
			writeError(w, err)
			return
		}
		if req.Announce {
			s.announceTeams(r, matchID, teams)
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

func (s *Server) announceTeams(r *http.Request, matchID string, teams []match.Team) {
	m, err := s.Matches.Get(r.Context(), matchID)
	if err != nil {
		log.Error("Failed to load match for team announcement", "matchID", matchID, "error", err)
		return
	}
	dryRun := s.Cfg.DryRun || notifier.IsDryRun(r.Context())
	if err := s.Notifier.SendTeams(m, teams, dryRun); err != nil {
		log.Error("Failed to announce teams", "matchID", matchID, "error", err)
	}
}

// UpdateTeamsHandler replaces team membership with a manual edit.
func (s *Server) UpdateTeamsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.PathValue("matchID")
		var teams []match.Team
		if err := decodeJSON(r, &teams); err != nil {
			writeError(w, err)
			return
		}
		for i := range teams {
			teams[i].MatchID = matchID
		}
		updated, err := s.Teams.Update(r.Context(), teams)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) ClearTeamsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Teams.Clear(r.Context(), r.PathValue("matchID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
