package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/approvals/internal/ux"
)

var rootCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Terminal client for the multi-stage approval service",
	Long: `approvals talks to the approval API on behalf of one user.

Requesters (L1) create requests and follow them, managers (L2) and
directors (L3) work their inbox, and admins reorder the global approval
workflow. The session is kept per server in ~/.approvals so commands can
be run one after another.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// SIGINT or SIGTERM.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $APPROVALS_CONFIG or ~/.approvals/config.yaml)")
	flags.String("api-url", "", "approval API base URL (overrides api.url)")
	flags.String("state-dir", "", "directory for sessions and drafts (overrides state_dir)")
	flags.StringP("format", "o", "", "output format: text, json or yaml")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.Duration("timeout", 0, "per-request timeout (overrides api.timeout)")

	noFiles := cobra.ShellCompDirectiveNoFileComp
	_ = rootCmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(ux.Formats, noFiles))
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions([]string{"debug", "info", "warn", "error"}, noFiles))
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", cobra.FixedCompletions([]string{"text", "json"}, noFiles))
}
