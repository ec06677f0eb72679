// Command sprintctl talks to a sprintai server and scores analysis files
// offline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version information
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// globalOptions holds the persistent flags.
type globalOptions struct {
	serverURL string
	token     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "sprintctl",
		Short: "CLI for sprintai decision analyses",
		Long: `sprintctl is a command-line interface for the sprintai server.
It signs in, shows the stored analysis, talks to the assistant and ranks
analysis files offline.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", envOr("SPRINTAI_SERVER", "http://localhost:8080"), "sprintai server URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("SPRINTAI_TOKEN"), "session token (env SPRINTAI_TOKEN)")

	root.AddCommand(
		newHealthCmd(opts),
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newAnalysisCmd(opts),
		newChatCmd(opts),
		newScoreCmd(),
		newMCPCmd(),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (o *globalOptions) client() *apiClient {
	return newAPIClient(o.serverURL, o.token)
}
