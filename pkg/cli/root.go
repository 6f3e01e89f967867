package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// jsonOutput is bound to the persistent --json flag.
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wsbridge",
	Short: "wsbridge is a tick-driven WebSocket server with a CORS-safe HTTP route table",
	Long: `wsbridge accepts WebSocket clients, tracks them by id and display name, and
exposes targeted and broadcast messaging through a small JSON HTTP API.

Configuration can be provided via flags, WSBRIDGE_* environment variables,
a .env file, or a YAML/JSON configuration file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
