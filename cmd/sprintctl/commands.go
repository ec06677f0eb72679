package main

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	httpapi "github.com/fyrsmithlabs/sprintai/internal/http"
	"github.com/fyrsmithlabs/sprintai/internal/identity"
)

func newHealthCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check sprintai server health",
		Long: `Check the health status of the sprintai HTTP server.

Examples:
  sprintctl health
  sprintctl health --server http://localhost:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp httpapi.HealthResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/health", nil, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server Status: %s\n", resp.Status)
			fmt.Fprintf(out, "Server URL: %s\n", opts.serverURL)
			for name, st := range resp.Services {
				fmt.Fprintf(out, "  %s: %s\n", name, st)
			}
			return nil
		},
	}
}

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and print its session token",
		Long: `Create an account. The password is read from stdin: the first line is
the password and the second its confirmation.

Examples:
  printf 'secret1\nsecret1\n' | sprintctl register --email ada@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lines := readLines(cmd, 2)
			in := identity.RegisterInput{Email: email, Password: lines[0], ConfirmPassword: lines[1]}

			var resp httpapi.AuthResponse
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/auth/register", in, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print a session token",
		Long: `Sign in with email and a password read from stdin. Export the printed
token as SPRINTAI_TOKEN for the other commands.

Examples:
  export SPRINTAI_TOKEN=$(echo secret1 | sprintctl login --email ada@example.com)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lines := readLines(cmd, 1)
			in := httpapi.LoginRequest{Email: email, Password: lines[0]}

			var resp httpapi.AuthResponse
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/auth/login", in, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newAnalysisCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Work with the stored analysis",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored analysis and its ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := opts.client()
			if err := c.requireToken(); err != nil {
				return err
			}
			var resp httpapi.AnalysisResponse
			if err := c.do(cmd.Context(), http.MethodGet, "/api/v1/analysis", nil, &resp); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRanking(resp.Analysis.Title, resp.Ranking))
			return nil
		},
	})
	cmd.AddCommand(newAnalysisWatchCmd(opts))
	return cmd
}

func newChatCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the decision assistant",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			if err := c.requireToken(); err != nil {
				return err
			}
			var resp httpapi.SendResponse
			in := httpapi.SendRequest{Content: strings.Join(args, " ")}
			if err := c.do(cmd.Context(), http.MethodPost, "/api/v1/chat/messages", in, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Assistant.Content)
			return nil
		},
	})
	return cmd
}

// readLines reads up to n lines from the command's stdin. Missing lines
// are empty.
func readLines(cmd *cobra.Command, n int) []string {
	out := make([]string, n)
	sc := bufio.NewScanner(cmd.InOrStdin())
	for i := 0; i < n && sc.Scan(); i++ {
		out[i] = strings.TrimRight(sc.Text(), "\r")
	}
	return out
}
