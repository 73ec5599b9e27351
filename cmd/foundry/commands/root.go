package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	serverAddr string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "foundry",
	Short: "Foundry - Supervised multi-agent protocol authoring",
	Long: `Foundry drives a supervised multi-agent workflow that drafts, reviews,
and iteratively refines CBT protocol content until it clears its quality
gates, then suspends for mandatory human approval.

The CLI is a thin client of a running foundryd server. Sessions are durable:
every step is checkpointed, so a session can be inspected, watched, halted,
and approved at any time.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	defaultServer := os.Getenv("FOUNDRY_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "server", "s", defaultServer, "foundryd server address (env: FOUNDRY_SERVER)")
}
