package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	natsURL   string
)

var rootCmd = &cobra.Command{
	Use:   "parcelctl",
	Short: "Ask the solar parcel finder questions from a terminal",
	Long: `parcelctl talks to a running solar-parcel-be server.

Available subcommands:
  ask    - Run a search and stream its progress
  schema - Print the schema the SQL generator sees
  watch  - Follow finished searches on the NATS event stream`,
	SilenceUsage: true,
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("PARCEL_SERVER_URL", "http://localhost:3000"), "base URL of the API server")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats", envOr("NATS_URL", "nats://localhost:4222"), "NATS server URL")

	rootCmd.AddCommand(askCmd, schemaCmd, watchCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
