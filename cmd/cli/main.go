package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	host     string
	playerID string
	dryRun   bool
)

var rootCmd = &cobra.Command{
	Use:   "roster-cli",
	Short: "A CLI to interact with the pickup-roster server",
	Long: `A command-line interface for making requests to the various endpoints
of the pickup-roster application.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "The host address of the server")
	rootCmd.PersistentFlags().StringVar(&playerID, "as", "", "Player id to act as (sent as X-Player-ID)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Suppress outbound notifications")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
