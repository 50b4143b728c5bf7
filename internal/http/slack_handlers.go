package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/slack-go/slack"
)

// RosterCommandHandler answers the /roster slash command. The text is a match
// id; without one the next scheduled match is shown.
func (s *Server) RosterCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		matchID := strings.TrimSpace(cmd.Text)
		log.Info("Received roster command", "user", cmd.UserID, "matchID", matchID)

		if matchID == "" {
			next, err := s.nextScheduledMatch(ctx)
			if err != nil {
				http.Error(w, "Failed to list matches", http.StatusInternalServerError)
				log.Error("Failed to list matches", "error", err)
				return
			}
			if next == nil {
				respondWithSlackMsg(w, slack.Message{Msg: slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: "No upcoming matches."}})
				return
			}
			matchID = next.ID
		}

		summary, err := s.Summaries.Get(ctx, matchID)
		if err != nil {
			log.Warn("Could not load match summary", "matchID", matchID, "error", err)
			respondWithSlackMsg(w, slack.Message{Msg: slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: "Match " + matchID + " not found."}})
			return
		}
		teams, err := s.Teams.List(ctx, matchID)
		if err != nil {
			http.Error(w, "Failed to list teams", http.StatusInternalServerError)
			log.Error("Failed to list teams", "matchID", matchID, "error", err)
			return
		}

		msg, err := s.Notifier.FormatSummaryResponse(summary, teams)
		if err != nil {
			http.Error(w, "Failed to format summary", http.StatusInternalServerError)
			log.Error("Failed to format summary", "error", err)
			return
		}
		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}
		respondWithSlackMsg(w, slackMsg)
	}
}

// nextScheduledMatch returns the earliest upcoming SCHEDULED match, or nil.
func (s *Server) nextScheduledMatch(ctx context.Context) (*match.Match, error) {
	matches, err := s.Matches.List(ctx)
	if err != nil {
		return nil, err
	}
	var next *match.Match
	for _, m := range matches {
		if m.Status != match.StatusScheduled {
			continue
		}
		if next == nil || m.StartsAt.Before(next.StartsAt) {
			next = m
		}
	}
	return next, nil
}
