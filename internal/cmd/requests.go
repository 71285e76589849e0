package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
	"github.com/felixgeelhaar/approvals/internal/tui"
	"github.com/felixgeelhaar/approvals/internal/ux"
)

var requestsCmd = &cobra.Command{
	Use:     "requests",
	Aliases: []string{"request", "req"},
	Short:   "Create and inspect approval requests",
	Long: `Create and inspect approval requests.

Subcommands:
  list    List your own requests, newest first (L1)
  create  Submit a new request (L1)
  show    Show one request with its history

Examples:
  approvals requests create --title "New laptop" --description "MacBook Pro 14"
  approvals requests list
  approvals requests show 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var requestsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your requests",
	Args:    cobra.NoArgs,
	RunE:    withContext(runRequestsList),
}

var requestsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit a new request",
	Long: `Submit a new request for approval.

The request follows the global workflow as it is when submitted; later
changes to the workflow do not affect it. Missing fields are prompted
for on an interactive terminal.`,
	Args: cobra.NoArgs,
	RunE: withContext(runRequestsCreate),
}

var requestsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a request and its history",
	Args:  cobra.ExactArgs(1),
	RunE:  withContext(runRequestsShow),
}

func init() {
	requestsCreateCmd.Flags().StringP("title", "t", "", "request title")
	requestsCreateCmd.Flags().StringP("description", "d", "", "request description")

	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsCreateCmd)
	requestsCmd.AddCommand(requestsShowCmd)

	rootCmd.AddCommand(requestsCmd)
}

func runRequestsList(cmd *cobra.Command, cc *CommandContext, _ []string) error {
	sess, err := cc.restore()
	if err != nil {
		return err
	}
	reqs, err := cc.Sync.MyRequests(cmd.Context())
	if err != nil {
		return err
	}
	return cc.Out.Format(ux.NewRequestList("My requests", reqs, sess.Role()))
}

func runRequestsCreate(cmd *cobra.Command, cc *CommandContext, _ []string) error {
	if _, err := cc.restore(); err != nil {
		return err
	}

	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	if (strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "") && tui.ShouldPrompt() {
		var err error
		if title, description, err = tui.PromptForRequest(title, description); err != nil {
			return err
		}
	}

	req, err := cc.Sync.SubmitRequest(cmd.Context(), title, description)
	if err != nil {
		return err
	}
	return cc.Out.Format(ux.Message{
		Text: fmt.Sprintf("Request #%d created (%s)", req.ID, req.StageLabel()),
		ID:   req.ID,
	})
}

func runRequestsShow(cmd *cobra.Command, cc *CommandContext, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	sess, err := cc.restore()
	if err != nil {
		return err
	}
	req, err := cc.Sync.RequestDetail(cmd.Context(), id)
	if err != nil {
		return err
	}
	return cc.Out.Format(ux.NewRequestDetail(*req, sess.Role()))
}

// parseID accepts "42" or "#42".
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, clierrors.NewArgumentError(fmt.Sprintf("invalid request id %q", arg)).
			WithSuggestion("Request ids are positive integers, e.g. 42")
	}
	return id, nil
}
