package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/approvals/internal/domain"
	"github.com/felixgeelhaar/approvals/internal/ux"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show request counts and recent requests",
	Long: `Show the server's aggregate counts and the most recent requests.

Available to every role except requesters (L1).`,
	Args: cobra.NoArgs,
	RunE: withContext(runDashboard),
}

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Open the view your role lands on",
	Long: `Open the view your role lands on after login:

  L1     my requests
  L2/L3  inbox
  L0     dashboard
  admin  workflow draft`,
	Args: cobra.NoArgs,
	RunE: withContext(runHome),
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(homeCmd)
}

func runDashboard(cmd *cobra.Command, cc *CommandContext, _ []string) error {
	sess, err := cc.restore()
	if err != nil {
		return err
	}
	d, err := cc.Sync.DashboardSummary(cmd.Context())
	if err != nil {
		return err
	}
	return cc.Out.Format(ux.NewDashboardView(*d, sess.Role()))
}

func runHome(cmd *cobra.Command, cc *CommandContext, args []string) error {
	if _, err := cc.restore(); err != nil {
		return err
	}
	view, err := cc.Sync.HomeView()
	if err != nil {
		return err
	}

	switch view {
	case domain.ViewMyRequests:
		return runRequestsList(cmd, cc, args)
	case domain.ViewInbox:
		return runInbox(cmd, cc, args)
	case domain.ViewWorkflow:
		return runWorkflowShow(cmd, cc, args)
	default:
		return runDashboard(cmd, cc, args)
	}
}
