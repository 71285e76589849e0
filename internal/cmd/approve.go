package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/approvals/internal/domain"
	"github.com/felixgeelhaar/approvals/internal/tui"
	"github.com/felixgeelhaar/approvals/internal/ux"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List the requests waiting for your role",
	Long: `List the requests currently waiting at your role's stage (L2 or L3).

With --tui the inbox opens as an interactive list: move with the arrow
keys, press a to approve or r to reject, and enter to send the optional
comment. A failed action keeps the request and your comment in place.

Examples:
  approvals inbox
  approvals inbox --tui
  approvals inbox -o json`,
	Args: cobra.NoArgs,
	RunE: withContext(runInbox),
}

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a request at your stage",
	Long: `Approve a request waiting at your role's stage. The request moves to
the next approver in its own workflow snapshot, or is approved when no
stage remains.

Examples:
  approvals approve 42
  approvals approve 42 --comment "Within budget"`,
	Args: cobra.ExactArgs(1),
	RunE: withContext(func(cmd *cobra.Command, cc *CommandContext, args []string) error {
		return runAct(cmd, cc, args, domain.ActionApprove)
	}),
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a request at your stage",
	Long: `Reject a request waiting at your role's stage. Rejection is final.

Examples:
  approvals reject 42 --comment "Not in this quarter" --yes`,
	Args: cobra.ExactArgs(1),
	RunE: withContext(func(cmd *cobra.Command, cc *CommandContext, args []string) error {
		return runAct(cmd, cc, args, domain.ActionReject)
	}),
}

func init() {
	inboxCmd.Flags().Bool("tui", false, "open the interactive inbox")

	for _, c := range []*cobra.Command{approveCmd, rejectCmd} {
		c.Flags().StringP("comment", "m", "", "comment recorded in the request history")
	}
	rejectCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	rootCmd.AddCommand(inboxCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
}

func runInbox(cmd *cobra.Command, cc *CommandContext, _ []string) error {
	sess, err := cc.restore()
	if err != nil {
		return err
	}

	interactive, _ := cmd.Flags().GetBool("tui")
	if interactive {
		return tui.RunInbox(cmd.Context(), cc.Sync)
	}

	reqs, err := cc.Sync.PendingFor(cmd.Context())
	if err != nil {
		return err
	}
	title := fmt.Sprintf("Inbox (%s)", sess.Role())
	return cc.Out.Format(ux.NewRequestList(title, reqs, sess.Role()))
}

func runAct(cmd *cobra.Command, cc *CommandContext, args []string, action domain.Action) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if _, err := cc.restore(); err != nil {
		return err
	}

	comment, _ := cmd.Flags().GetString("comment")
	if !cmd.Flags().Changed("comment") && tui.ShouldPrompt() {
		if comment, err = tui.PromptForComment(action, id, cc.Sync.Comment(id)); err != nil {
			return err
		}
	}

	if action == domain.ActionReject {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && tui.ShouldPrompt() {
			ok, err := tui.PromptForConfirmation(fmt.Sprintf("Reject request #%d? This cannot be undone.", id), false)
			if err != nil {
				return err
			}
			if !ok {
				return cc.Out.Format(ux.Message{Text: "Nothing changed", ID: id})
			}
		}
	}

	if err := cc.Sync.Act(cmd.Context(), id, action, comment); err != nil {
		return err
	}
	return cc.Out.Format(ux.Message{
		Text: fmt.Sprintf("Request #%d %s", id, action.PastTense()),
		ID:   id,
	})
}
