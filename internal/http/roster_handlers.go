package http

import (
	"errors"
	"net/http"

	"github.com/mauv0809/pickup-roster/internal/auth"
	"github.com/mauv0809/pickup-roster/internal/match"
)

func (s *Server) ListRosterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.Coordinator.List(r.Context(), r.PathValue("matchID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// JoinHandler confirms the caller, falling back to the waitlist when the
// position is full. With ?waitlist=false a full match answers 409 instead.
func (s *Server) JoinHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		matchID := r.PathValue("matchID")
		caller, err := auth.RequirePlayer(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		var req positionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		position, err := match.ParsePosition(req.Position)
		if err != nil {
			writeError(w, err)
			return
		}

		if r.URL.Query().Get("waitlist") == "false" {
			entry, err := s.Coordinator.Confirm(ctx, matchID, caller, position, req.Casual)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, joinResponse{Roster: entry})
			return
		}

		result, err := s.Coordinator.Join(ctx, matchID, caller, position, req.Casual)
		if err != nil {
			writeError(w, err)
			return
		}
		status := http.StatusOK
		if result.Waitlist != nil {
			status = http.StatusAccepted
		}
		writeJSON(w, status, joinResponse{Roster: result.Roster, Waitlist: result.Waitlist})
	}
}

func (s *Server) CancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, err := auth.RequirePlayer(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		removed, err := s.Coordinator.Cancel(ctx, r.PathValue("matchID"), caller)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	}
}

func (s *Server) RemovePlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := s.Coordinator.RemovePlayer(r.Context(), r.PathValue("matchID"), r.PathValue("playerID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	}
}

func (s *Server) PaymentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req paymentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		entry, err := s.Coordinator.UpdatePaymentStatus(r.Context(), r.PathValue("matchID"), r.PathValue("playerID"), req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func (s *Server) SummonHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req summonRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		position, err := match.ParsePosition(req.Position)
		if err != nil {
			writeError(w, err)
			return
		}
		invited, err := s.Coordinator.SummonPlayers(r.Context(), r.PathValue("matchID"), req.PlayerIDs, position)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, invited)
	}
}

func (s *Server) AcceptInvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, err := auth.RequirePlayer(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		entry, err := s.Coordinator.AcceptInvitation(ctx, r.PathValue("matchID"), caller)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func (s *Server) ListWaitlistHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.Queue.List(r.Context(), r.PathValue("matchID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// AddToWaitlistHandler enqueues the caller. Adding twice returns the existing
// entry with 200 rather than an error.
func (s *Server) AddToWaitlistHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, err := auth.RequirePlayer(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		var req positionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		position, err := match.ParsePosition(req.Position)
		if err != nil {
			writeError(w, err)
			return
		}
		entry, err := s.Queue.Add(ctx, r.PathValue("matchID"), caller, position)
		switch {
		case errors.Is(err, match.ErrAlreadyWaiting):
			writeJSON(w, http.StatusOK, entry)
		case err != nil:
			writeError(w, err)
		default:
			writeJSON(w, http.StatusCreated, entry)
		}
	}
}

func (s *Server) LeaveWaitlistHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, err := auth.RequirePlayer(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		entry, err := s.Engine.Leave(ctx, r.PathValue("matchID"), caller)
		if err != nil {
			writeError(w, err)
			return
		}
		if entry == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func (s *Server) NotifyNextHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := s.Engine.NotifyNext(r.Context(), r.PathValue("matchID"))
		if err != nil {
			writeError(w, err)
			return
		}
		if entry == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// AcceptOfferHandler claims the slot offered to the caller.
func (s *Server) AcceptOfferHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, err := auth.RequirePlayer(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		entry, err := s.Engine.Accept(ctx, r.PathValue("matchID"), caller)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}
