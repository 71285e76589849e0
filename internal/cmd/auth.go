package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
	"github.com/felixgeelhaar/approvals/internal/session"
	"github.com/felixgeelhaar/approvals/internal/tui"
	"github.com/felixgeelhaar/approvals/internal/ux"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the session with the approval server",
	Long: `Manage the session with the approval server.

The access token and user are stored per server origin under the state
directory, so switching --api-url switches sessions.

Subcommands:
  login   Login with email and password
  logout  Forget the session and any workflow draft
  status  Show who is logged in

Examples:
  approvals auth login --email l2@example.com
  echo "$PASSWORD" | approvals auth login --email l2@example.com --password-stdin
  approvals auth status
  approvals auth logout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the approval server",
	Long: `Login with your email and password.

Missing values are prompted for on an interactive terminal. In CI pass
--password or --password-stdin.`,
	Args: cobra.NoArgs,
	RunE: withContext(runAuthLogin),
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout and remove the stored session",
	Args:  cobra.NoArgs,
	RunE:  withContext(runAuthLogout),
}

var authStatusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"whoami"},
	Short:   "Show the current user, role and home view",
	Args:    cobra.NoArgs,
	RunE:    withContext(runAuthStatus),
}

func init() {
	authLoginCmd.Flags().String("email", "", "account email")
	authLoginCmd.Flags().String("password", "", "account password (prefer --password-stdin)")
	authLoginCmd.Flags().Bool("password-stdin", false, "read the password from stdin")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)

	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, cc *CommandContext, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	if fromStdin {
		p, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		password = p
	}

	if (strings.TrimSpace(email) == "" || password == "") && tui.ShouldPrompt() {
		creds, err := tui.PromptForCredentials(email)
		if err != nil {
			return err
		}
		email, password = creds.Email, creds.Password
	}

	sess, err := cc.Sync.Authenticate(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	cc.Logger.Debug("session stored", "state_dir", cc.StateDir)
	return cc.Out.Format(sessionView(cc, sess))
}

func runAuthLogout(cmd *cobra.Command, cc *CommandContext, _ []string) error {
	if err := cc.Sync.Logout(); err != nil {
		return err
	}
	return cc.Out.Format(ux.Message{Text: "Logged out"})
}

func runAuthStatus(cmd *cobra.Command, cc *CommandContext, _ []string) error {
	sess, err := cc.restore()
	if err != nil {
		return err
	}
	return cc.Out.Format(sessionView(cc, sess))
}

func sessionView(cc *CommandContext, sess *session.Session) ux.SessionView {
	view := ux.SessionView{
		Email:  sess.User.Email,
		Name:   sess.User.Name,
		Role:   sess.Role(),
		Server: cc.Client.Origin(),
	}
	if home, err := cc.Sync.HomeView(); err == nil {
		view.Home = home
	}
	return view
}

// readPassword reads the first line of r, as docker login does.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", clierrors.NewArgumentError(fmt.Sprintf("failed to read password from stdin: %v", err))
	}
	return strings.TrimRight(line, "\r\n"), nil
}
