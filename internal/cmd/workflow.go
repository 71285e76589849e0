package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/approvals/internal/domain"
	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
	"github.com/felixgeelhaar/approvals/internal/tui"
	"github.com/felixgeelhaar/approvals/internal/ux"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Edit the global approval workflow (admin)",
	Long: `Edit the global approval workflow.

Edits apply to a local draft that survives between commands until it is
saved or reset. Positions are 1-based as printed by "workflow show".
Saving replaces the order used for new requests; existing requests keep
the snapshot they were created with.

Examples:
  approvals workflow show
  approvals workflow move-up 2
  approvals workflow append L4
  approvals workflow save
  approvals workflow set L3 L2`,
	RunE: withContext(runWorkflowShow),
}

var workflowShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the workflow draft",
	Args:  cobra.NoArgs,
	RunE:  withContext(runWorkflowShow),
}

var workflowPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the draft with the server's order",
	Args:  cobra.NoArgs,
	RunE: withContext(func(cmd *cobra.Command, cc *CommandContext, _ []string) error {
		if _, err := cc.restore(); err != nil {
			return err
		}
		order, err := cc.Sync.GetWorkflowOrder(cmd.Context())
		if err != nil {
			return err
		}
		return cc.Out.Format(ux.WorkflowView{Order: order, Source: "server"})
	}),
}

var workflowSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the draft as the global order",
	Args:  cobra.NoArgs,
	RunE: withContext(func(cmd *cobra.Command, cc *CommandContext, _ []string) error {
		if _, err := cc.restore(); err != nil {
			return err
		}
		cc.Sync.LoadWorkflowDraft(cmd.Context())

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && tui.ShouldPrompt() {
			ok, err := tui.PromptForConfirmation(
				fmt.Sprintf("Save workflow %s for all new requests?", cc.Sync.Draft()), true)
			if err != nil {
				return err
			}
			if !ok {
				return cc.Out.Format(ux.Message{Text: "Nothing changed"})
			}
		}

		order, err := cc.Sync.SaveWorkflowDraft(cmd.Context())
		if err != nil {
			return err
		}
		return cc.Out.Format(ux.WorkflowView{Order: order, Source: "saved"})
	}),
}

var workflowSetCmd = &cobra.Command{
	Use:   "set <stage>...",
	Short: "Save the given order directly",
	Args:  cobra.MinimumNArgs(1),
	RunE: withContext(func(cmd *cobra.Command, cc *CommandContext, args []string) error {
		if _, err := cc.restore(); err != nil {
			return err
		}
		var order domain.WorkflowOrder
		for _, stage := range args {
			order = order.Append(stage)
		}
		saved, err := cc.Sync.SetWorkflowOrder(cmd.Context(), order)
		if err != nil {
			return err
		}
		return cc.Out.Format(ux.WorkflowView{Order: saved, Source: "saved"})
	}),
}

var workflowResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard local edits",
	Args:  cobra.NoArgs,
	RunE: withContext(func(cmd *cobra.Command, cc *CommandContext, _ []string) error {
		sess, err := cc.restore()
		if err != nil {
			return err
		}
		if err := requireWorkflowEditor(sess.Role()); err != nil {
			return err
		}
		if err := cc.Sync.ResetDraft(); err != nil {
			return err
		}
		return cc.Out.Format(ux.Message{Text: "Workflow draft discarded"})
	}),
}

var workflowMoveUpCmd = &cobra.Command{
	Use:   "move-up <position>",
	Short: "Move a stage one place earlier",
	Args:  cobra.ExactArgs(1),
	RunE:  withContext(editAt(workflowMoveUp)),
}

var workflowMoveDownCmd = &cobra.Command{
	Use:   "move-down <position>",
	Short: "Move a stage one place later",
	Args:  cobra.ExactArgs(1),
	RunE:  withContext(editAt(workflowMoveDown)),
}

var workflowRemoveCmd = &cobra.Command{
	Use:     "remove <position>",
	Aliases: []string{"rm"},
	Short:   "Remove a stage",
	Args:    cobra.ExactArgs(1),
	RunE:    withContext(editAt(workflowRemove)),
}

var workflowAppendCmd = &cobra.Command{
	Use:   "append <stage>",
	Short: "Add a stage at the end",
	Args:  cobra.ExactArgs(1),
	RunE: withContext(func(cmd *cobra.Command, cc *CommandContext, args []string) error {
		if _, err := cc.restore(); err != nil {
			return err
		}
		order, err := cc.Sync.AppendStage(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return cc.Out.Format(ux.WorkflowView{Order: order, Source: "draft"})
	}),
}

func init() {
	workflowSaveCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	workflowCmd.AddCommand(workflowShowCmd)
	workflowCmd.AddCommand(workflowPullCmd)
	workflowCmd.AddCommand(workflowSaveCmd)
	workflowCmd.AddCommand(workflowSetCmd)
	workflowCmd.AddCommand(workflowResetCmd)
	workflowCmd.AddCommand(workflowMoveUpCmd)
	workflowCmd.AddCommand(workflowMoveDownCmd)
	workflowCmd.AddCommand(workflowRemoveCmd)
	workflowCmd.AddCommand(workflowAppendCmd)

	rootCmd.AddCommand(workflowCmd)
}

func runWorkflowShow(cmd *cobra.Command, cc *CommandContext, _ []string) error {
	sess, err := cc.restore()
	if err != nil {
		return err
	}
	if err := requireWorkflowEditor(sess.Role()); err != nil {
		return err
	}
	order := cc.Sync.LoadWorkflowDraft(cmd.Context())
	return cc.Out.Format(ux.WorkflowView{Order: order, Source: "draft"})
}

type workflowEdit int

const (
	workflowMoveUp workflowEdit = iota
	workflowMoveDown
	workflowRemove
)

// editAt applies a positional edit to the draft.
func editAt(edit workflowEdit) runFunc {
	return func(cmd *cobra.Command, cc *CommandContext, args []string) error {
		pos, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		if _, err := cc.restore(); err != nil {
			return err
		}

		ctx := cmd.Context()
		var order domain.WorkflowOrder
		switch edit {
		case workflowMoveUp:
			order, err = cc.Sync.MoveUp(ctx, pos-1)
		case workflowMoveDown:
			order, err = cc.Sync.MoveDown(ctx, pos-1)
		case workflowRemove:
			order, err = cc.Sync.RemoveStage(ctx, pos-1)
		}
		if err != nil {
			return err
		}
		return cc.Out.Format(ux.WorkflowView{Order: order, Source: "draft"})
	}
}

func parsePosition(arg string) (int, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil || pos < 1 {
		return 0, clierrors.NewArgumentError(fmt.Sprintf("invalid position %q", arg)).
			WithSuggestion("Positions start at 1; see 'approvals workflow show'")
	}
	return pos, nil
}

func requireWorkflowEditor(role domain.Role) error {
	if role.CanEditWorkflow() {
		return nil
	}
	return clierrors.NewForbiddenError(role.String(), "configure the workflow")
}
