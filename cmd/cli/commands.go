package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var (
	position   string
	casual     bool
	teamCount  int
	balance    bool
	announce   bool
	noWaitlist bool
)

func init() {
	joinCmd.Flags().StringVar(&position, "position", "field", "field or goalkeeper")
	joinCmd.Flags().BoolVar(&casual, "casual", false, "Join as a casual player")
	joinCmd.Flags().BoolVar(&noWaitlist, "no-waitlist", false, "Fail instead of joining the waitlist when full")
	waitCmd.Flags().StringVar(&position, "position", "field", "field or goalkeeper")
	teamsCmd.Flags().IntVar(&teamCount, "teams", 2, "Number of teams")
	teamsCmd.Flags().BoolVar(&balance, "balance", false, "Balance teams by player level")
	teamsCmd.Flags().BoolVar(&announce, "announce", false, "Post the teams to Slack")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(acceptCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(teamsCmd)
	rootCmd.AddCommand(sweepCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics", nil)
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/matches", nil)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <matchID>",
	Short: "Show the cached summary of a match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, matchPath(args[0], "summary"), nil)
	},
}

var rosterCmd = &cobra.Command{
	Use:   "roster <matchID>",
	Short: "List the roster and waitlist of a match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := performRequest(http.MethodGet, matchPath(args[0], "roster"), nil); err != nil {
			return err
		}
		return performRequest(http.MethodGet, matchPath(args[0], "waitlist"), nil)
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <matchID>",
	Short: "Confirm for a match, or join its waitlist when full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := matchPath(args[0], "roster")
		if noWaitlist {
			path += "?waitlist=false"
		}
		return performRequest(http.MethodPost, path, map[string]any{"position": position, "casual": casual})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <matchID>",
	Short: "Give up your slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodDelete, matchPath(args[0], "roster"), nil)
	},
}

var waitCmd = &cobra.Command{
	Use:   "wait <matchID>",
	Short: "Join the waitlist of a match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, matchPath(args[0], "waitlist"), map[string]any{"position": position})
	},
}

var acceptCmd = &cobra.Command{
	Use:   "accept <matchID>",
	Short: "Accept an offered slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, matchPath(args[0], "waitlist/accept"), nil)
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify <matchID>",
	Short: "Offer a slot to the next waiting player",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, matchPath(args[0], "waitlist/notify"), nil)
	},
}

var teamsCmd = &cobra.Command{
	Use:   "teams <matchID>",
	Short: "Generate teams from the confirmed roster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, matchPath(args[0], "teams"), map[string]any{
			"teams":    teamCount,
			"balance":  balance,
			"announce": announce,
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire unanswered waitlist offers now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/sweep", nil)
	},
}

func matchPath(matchID, suffix string) string {
	return "/matches/" + url.PathEscape(matchID) + "/" + suffix
}

func performRequest(method, endpoint string, payload any) error {
	target := host + endpoint
	if dryRun {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		target += sep + "dry_run=true"
	}
	fmt.Printf("Making %s request to %s\n", method, target)

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if playerID != "" {
		req.Header.Set("X-Player-ID", playerID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(respBody))

	return nil
}
