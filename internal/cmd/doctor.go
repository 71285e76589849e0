package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/approvals/internal/api"
	"github.com/felixgeelhaar/approvals/internal/domain"
	"github.com/felixgeelhaar/approvals/internal/health"
	"github.com/felixgeelhaar/approvals/internal/session"
	"github.com/felixgeelhaar/approvals/internal/ux"
)

// errUnhealthy is returned when at least one check failed.
var errUnhealthy = errors.New("doctor found problems")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, state directory, server and session",
	Long: `Run environment checks and report what would make other commands fail.

  config    the merged configuration is valid
  contract  the embedded API contract loads
  state-dir sessions and drafts can be written privately
  server    the approval API answers
  session   a usable session is stored for this server

Exits non-zero when any check is unhealthy.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	settings, err := LoadSettings(cmd)
	if err != nil {
		return err
	}
	cfg := settings.Config

	manager := health.NewManager()
	manager.AddChecker(health.NewFuncChecker("config", "valid", func(context.Context) error {
		return cfg.Validate()
	}))
	manager.AddChecker(health.NewFuncChecker("contract", "loaded", func(ctx context.Context) error {
		_, err := api.Contract(ctx)
		return err
	}))

	if cfg.Validate() == nil {
		client, err := api.NewClient(cfg.API.URL, api.WithTimeout(cfg.API.Timeout))
		if err != nil {
			return err
		}
		stateDir, err := cfg.ResolveStateDir()
		if err != nil {
			return err
		}
		manager.AddChecker(health.NewStateDirChecker(stateDir))
		manager.AddChecker(health.NewServerChecker(client))
		manager.AddChecker(health.NewSessionChecker(
			session.NewStore(session.NewFileKV(stateDir, client.Origin()))))
	}

	report := manager.Run(cmd.Context())

	out, err := settings.Formatter(cmd.OutOrStdout())
	if err != nil {
		return ux.EnhanceError(err)
	}
	if err := out.Format(doctorView{report}); err != nil {
		return err
	}
	if report.Status == health.StatusUnhealthy {
		return errUnhealthy
	}
	return nil
}

type doctorView struct {
	health.Report `yaml:",inline"`
}

func (v doctorView) RenderText(w io.Writer, s ux.Styles) error {
	for _, c := range v.Checks {
		mark := s.Success.Render("✓")
		switch c.Status {
		case health.StatusDegraded:
			mark = s.Pending.Render("!")
		case health.StatusUnhealthy:
			mark = s.Error.Render("✗")
		}
		fmt.Fprintf(w, "%s %-10s %s\n", mark, c.Name, c.Message)

		keys := make([]string, 0, len(c.Details))
		for k := range c.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s %v\n", s.Muted.Render(k+":"), c.Details[k])
		}
	}
	_, err := fmt.Fprintf(w, "\n%s %s\n", s.Title.Render("Overall:"), s.Status(statusFor(v.Status)).Render(v.Status.String()))
	return err
}

// statusFor reuses the request status colors: green, red and amber.
func statusFor(st health.Status) domain.Status {
	switch st {
	case health.StatusHealthy:
		return domain.StatusApproved
	case health.StatusUnhealthy:
		return domain.StatusRejected
	default:
		return domain.StatusPending
	}
}
