package http

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/notifier"
	"github.com/mauv0809/pickup-roster/internal/pubsub"
)

// WaitlistNoticeHandler receives notices published by pubsub.Dispatcher via a
// push subscription. Non-2xx answers make Pub/Sub redeliver.
func (s *Server) WaitlistNoticeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received waitlist notice message", "body", string(bodyBytes))

		var envelope pubsub.PushEnvelope
		if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		rawData, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}

		var notice notifier.Notice
		if err := s.PubSub.ProcessMessage(rawData, &notice); err != nil {
			log.Error("Failed to decode waitlist notice", "messageID", envelope.Message.ID, "error", err)
			http.Error(w, "Invalid message payload", http.StatusBadRequest)
			return
		}

		dryRun := s.Cfg.DryRun || notice.DryRun || notifier.IsDryRun(r.Context())
		if err := s.Notifier.Notify(notice, dryRun); err != nil {
			log.Error("Failed to deliver waitlist notice", "messageID", envelope.Message.ID, "matchID", notice.MatchID, "playerID", notice.PlayerID, "error", err)
			http.Error(w, "Failed to deliver notice", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}
