package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `To load completions:

Bash:
  $ source <(approvals completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ approvals completion bash > /etc/bash_completion.d/approvals
  # macOS:
  $ approvals completion bash > $(brew --prefix)/etc/bash_completion.d/approvals

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ approvals completion zsh > "${fpath[1]}/_approvals"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ approvals completion fish | source

  # To load completions for each session, execute once:
  $ approvals completion fish > ~/.config/fish/completions/approvals.fish

PowerShell:
  PS> approvals completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> approvals completion powershell > approvals.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:                  runCompletion,
}

func init() {
	rootCmd.AddCommand(completionCmd)

	approveCmd.ValidArgsFunction = completeRequestIDs
	rejectCmd.ValidArgsFunction = completeRequestIDs
	requestsShowCmd.ValidArgsFunction = completeRequestIDs
	workflowAppendCmd.ValidArgsFunction = completeStages
}

func runCompletion(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "bash":
		return rootCmd.GenBashCompletion(cmd.OutOrStdout())
	case "zsh":
		return rootCmd.GenZshCompletion(cmd.OutOrStdout())
	case "fish":
		return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	}
	return nil
}

// completeRequestIDs offers the ids the logged-in user works with: their
// own requests for L1, the inbox for approvers. Any failure completes
// nothing.
func completeRequestIDs(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	none := cobra.ShellCompDirectiveNoFileComp
	if len(args) > 0 {
		return nil, none
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, none
	}
	sess, err := cc.restore()
	if err != nil {
		return nil, none
	}

	var reqs []domain.ApprovalRequest
	switch {
	case sess.Role() == domain.RoleRequester:
		reqs, err = cc.Sync.MyRequests(cmd.Context())
	case sess.Role().IsApprover():
		reqs, err = cc.Sync.PendingFor(cmd.Context())
	default:
		return nil, none
	}
	if err != nil {
		return nil, none
	}

	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, fmt.Sprintf("%s\t%s", strconv.FormatInt(r.ID, 10), r.Title))
	}
	return ids, none
}

// completeStages offers the approver tiers for "workflow append".
func completeStages(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var stages []string
	for _, r := range domain.AllRoles {
		if r.IsApprover() {
			stages = append(stages, string(r))
		}
	}
	return stages, cobra.ShellCompDirectiveNoFileComp
}
