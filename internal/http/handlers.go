package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/auth"
	"github.com/mauv0809/pickup-roster/internal/inngest"
	"github.com/mauv0809/pickup-roster/internal/match"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches, err := s.Matches.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

// CreateMatchHandler creates a match owned by the caller.
func (s *Server) CreateMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := auth.RequirePlayer(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		var req createMatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		startsAt := time.Time{}
		if req.StartsAt > 0 {
			startsAt = match.FromMillis(req.StartsAt)
		}
		m, err := s.Matches.Create(r.Context(), match.CreateParams{
			ID:                 req.ID,
			OwnerID:            caller,
			Title:              req.Title,
			StartsAt:           startsAt,
			FieldCapacity:      req.FieldCapacity,
			GoalkeeperCapacity: req.GoalkeeperCapacity,
			AutoPromoteMinutes: req.AutoPromoteMinutes,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func (s *Server) GetMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.Matches.Get(r.Context(), r.PathValue("matchID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// SummaryHandler serves the cached read model. Counters may trail recent writes.
func (s *Server) SummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.Summaries.Get(r.Context(), r.PathValue("matchID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// AddManagerHandler is restricted to the match owner.
func (s *Server) AddManagerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		matchID := r.PathValue("matchID")
		caller, err := auth.RequirePlayer(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		m, err := s.Matches.Get(ctx, matchID)
		if err != nil {
			writeError(w, err)
			return
		}
		if m.OwnerID != caller {
			writeError(w, fmt.Errorf("only the owner of %s can add managers: %w", matchID, match.ErrNotAuthorized))
			return
		}
		var req managerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.PlayerID == "" {
			writeError(w, fmt.Errorf("%w: player_id is required", match.ErrInvalidInput))
			return
		}
		if err := s.Matches.AddManager(ctx, matchID, req.PlayerID); err != nil {
			writeError(w, err)
			return
		}
		s.Summaries.Forget(ctx, matchID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) UpdateStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		matchID := r.PathValue("matchID")
		if _, err := auth.RequireManager(ctx, s.Matches, matchID); err != nil {
			writeError(w, err)
			return
		}
		var req statusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !req.Status.Valid() {
			writeError(w, fmt.Errorf("%w: status %q", match.ErrInvalidInput, req.Status))
			return
		}
		if err := s.Matches.UpdateStatus(ctx, matchID, req.Status); err != nil {
			writeError(w, err)
			return
		}
		s.Summaries.Forget(ctx, matchID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// SweepHandler runs one sweep immediately, for external schedulers. With
// ?async=true and Inngest configured the sweep is queued there instead.
func (s *Server) SweepHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Inngest != nil && r.URL.Query().Get("async") == "true" {
			if err := s.Inngest.SendEvent(r.Context(), inngest.EventSweepRequested, map[string]any{"requested_at": time.Now().UnixMilli()}); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			return
		}
		promoted, err := s.Engine.Sweep(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"promoted": promoted})
	}
}
