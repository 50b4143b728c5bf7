package http

import (
	"bytes"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/auth"
	"github.com/mauv0809/pickup-roster/internal/notifier"
	"github.com/slack-go/slack"
)

// Middleware defines the standard signature for an HTTP middleware.
type Middleware func(http.Handler) http.Handler

// Chain combines multiple middlewares into a single handler.
// The middlewares are applied in the order they are passed.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// playerIDHeader carries the caller identity set by the upstream identity provider.
const playerIDHeader = "X-Player-ID"

// paramsMiddleware handles common query parameters like 'verbose' and 'dry_run'.
func paramsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Info("incoming request", "method", r.Method, "url", r.URL.String())
		// Handle 'verbose' for request-scoped verbose logging.
		if r.URL.Query().Get("verbose") == "true" {
			originalLevel := log.GetLevel()
			log.SetLevel(log.DebugLevel)
			// Notices dispatched after the response is written are not covered.
			defer log.SetLevel(originalLevel)
		}

		// Handle 'dry_run' and add it to the request context.
		isDryRun := r.URL.Query().Get("dry_run") == "true"
		ctx := notifier.WithDryRun(r.Context(), isDryRun)

		// Call the next handler with the modified context.
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityMiddleware attaches the caller to the request context. Requests
// without the header continue anonymously and fail in operations that need a caller.
func identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		playerID := r.Header.Get(playerIDHeader)
		if playerID == "" {
			next.ServeHTTP(w, r)
			return
		}
		log.Debug("Resolved caller", "playerID", playerID)
		next.ServeHTTP(w, r.WithContext(auth.WithPlayerID(r.Context(), playerID)))
	})
}

// slackVerificationMiddleware rejects requests whose signature does not match
// the configured signing secret.
func (s *Server) slackVerificationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Cfg.Slack.SigningSecret == "" {
			log.Warn("Slack signing secret not configured, skipping verification")
			next.ServeHTTP(w, r)
			return
		}
		verifier, err := slack.NewSecretsVerifier(r.Header, s.Cfg.Slack.SigningSecret)
		if err != nil {
			log.Warn("Rejected Slack request", "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		body, err := io.ReadAll(io.TeeReader(r.Body, &verifier))
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		if err := verifier.Ensure(); err != nil {
			log.Warn("Rejected Slack request with bad signature", "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}
