package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/approvals/internal/api"
	"github.com/felixgeelhaar/approvals/internal/config"
	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
	"github.com/felixgeelhaar/approvals/internal/log"
	"github.com/felixgeelhaar/approvals/internal/metrics"
	"github.com/felixgeelhaar/approvals/internal/session"
	"github.com/felixgeelhaar/approvals/internal/telemetry"
	"github.com/felixgeelhaar/approvals/internal/ux"
	"github.com/felixgeelhaar/approvals/internal/version"
	"github.com/felixgeelhaar/approvals/internal/workflowsync"
)

// notificationBuffer bounds the notifications one command can queue.
const notificationBuffer = 32

// initTracing starts the tracer provider for a command run.
var initTracing = telemetry.InitProvider

// Settings is the configuration after file, environment and flags have
// been merged. Commands that never reach the server use it directly.
type Settings struct {
	ConfigPath string
	Config     *config.Config
	Format     string
	NoColor    bool
}

// CommandContext holds the merged settings and the services built from
// them. Commands get one from withContext.
type CommandContext struct {
	*Settings

	StateDir string
	Logger   *log.Logger
	Metrics  *metrics.Metrics
	Client   *api.Client
	Sync     *workflowsync.Sync
	Notes    *workflowsync.ChannelNotifier
	Out      ux.Formatter

	errOut   io.Writer
	shutdown func(context.Context) error
}

// LoadSettings reads the config file, applies APPROVALS_* variables and
// then any flag that was set explicitly.
func LoadSettings(cmd *cobra.Command) (*Settings, error) {
	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		if path, err = config.Path(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"api-url", &cfg.API.URL},
		{"state-dir", &cfg.StateDir},
		{"format", &cfg.Defaults.Format},
		{"log-level", &cfg.Logging.Level},
		{"log-format", &cfg.Logging.Format},
	}
	for _, o := range overrides {
		if !flags.Changed(o.flag) {
			continue
		}
		v, err := flags.GetString(o.flag)
		if err != nil {
			return nil, err
		}
		*o.dst = v
	}
	if flags.Changed("timeout") {
		if cfg.API.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return nil, err
	}
	if os.Getenv("NO_COLOR") != "" {
		noColor = true
	}

	return &Settings{
		ConfigPath: path,
		Config:     cfg,
		Format:     cfg.Defaults.Format,
		NoColor:    noColor,
	}, nil
}

// Formatter returns the output formatter writing to w.
func (s *Settings) Formatter(w io.Writer) (ux.Formatter, error) {
	return ux.NewFormatter(s.Format, &ux.FormatterOptions{Writer: w, NoColor: s.NoColor})
}

// Styles returns the text styles matching --no-color.
func (s *Settings) Styles() ux.Styles {
	if s.NoColor {
		return ux.PlainStyles()
	}
	return ux.DefaultStyles()
}

// NewCommandContext builds the logger, tracer, metrics, API client, session
// store and workflow client for one command run.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	settings, err := LoadSettings(cmd)
	if err != nil {
		return nil, err
	}
	cfg := settings.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out, err := settings.Formatter(cmd.OutOrStdout())
	if err != nil {
		return nil, ux.EnhanceError(err)
	}

	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, clierrors.NewConfigError(err.Error(), nil)
	}
	format, err := log.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, clierrors.NewConfigError(err.Error(), nil)
	}
	logger := log.New(log.Config{
		Level:          level,
		Format:         format,
		Output:         cmd.ErrOrStderr(),
		ServiceName:    "approvals",
		ServiceVersion: version.Version,
	})
	log.SetDefaultLogger(logger)

	shutdown, err := initTracing(cmd.Context(), telemetry.Config{
		ServiceName:    "approvals",
		ServiceVersion: version.Version,
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdown = nil
	}
	// The provider must be flushed on every return that drops it.
	abort := func(err error) (*CommandContext, error) {
		if shutdown != nil {
			if serr := shutdown(context.WithoutCancel(cmd.Context())); serr != nil {
				logger.Warn("failed to flush traces", "error", serr)
			}
		}
		return nil, err
	}

	m := metrics.InitDefault()

	client, err := api.NewClient(cfg.API.URL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithMetrics(m),
		api.WithLogger(logger),
	)
	if err != nil {
		return abort(ux.EnhanceError(err))
	}

	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		return abort(clierrors.NewConfigError("failed to resolve state directory", err))
	}
	kv := session.NewFileKV(stateDir, client.Origin())
	notes := workflowsync.NewChannelNotifier(notificationBuffer, m)
	sync := workflowsync.New(client, session.NewStore(kv),
		workflowsync.WithLogger(logger),
		workflowsync.WithMetrics(m),
		workflowsync.WithNotifier(notes),
	)

	return &CommandContext{
		Settings: settings,
		StateDir: stateDir,
		Logger:   logger,
		Metrics:  m,
		Client:   client,
		Sync:     sync,
		Notes:    notes,
		Out:      out,
		errOut:   cmd.ErrOrStderr(),
		shutdown: shutdown,
	}, nil
}

// runFunc is a command body that receives its CommandContext.
type runFunc func(cmd *cobra.Command, cc *CommandContext, args []string) error

// withContext adapts fn to cobra's RunE. It wraps the run in a command
// span, records the command metric and reports notifications the command
// did not surface itself.
func withContext(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}

		name := cmd.CommandPath()
		ctx, span := telemetry.StartCommandSpan(cmd.Context(), name)
		cmd.SetContext(ctx)

		start := time.Now()
		err = fn(cmd, cc, args)
		telemetry.End(span, err)
		cc.Metrics.RecordCommand(name, time.Since(start), err == nil)

		cc.flush(err)
		cc.close(context.WithoutCancel(ctx))
		return err
	}
}

// flush drains the notification buffer. After a failed command the error
// itself is reported by main, so only a successful command prints the
// failures it absorbed, such as a refetch that failed after an action.
func (cc *CommandContext) flush(runErr error) {
	for _, n := range cc.Notes.Drain() {
		if n.Level != workflowsync.LevelError {
			cc.Logger.Debug("notification", "kind", n.Kind, "message", n.Message)
			continue
		}
		if runErr != nil {
			continue
		}
		fmt.Fprintf(cc.errOut, "%s %s\n", cc.Styles().Error.Render("Warning:"), n.Message)
	}
}

func (cc *CommandContext) close(ctx context.Context) {
	if cc.shutdown != nil {
		if err := cc.shutdown(ctx); err != nil {
			cc.Logger.Warn("failed to flush traces", "error", err)
		}
	}
	var err error
	switch path := cc.Config.Metrics.Textfile; path {
	case "":
		return
	case "-":
		err = metrics.Dump(cc.errOut, metrics.DefaultGatherer())
	default:
		err = metrics.WriteTextfile(path, metrics.DefaultGatherer())
	}
	if err != nil {
		cc.Logger.Warn("failed to write metrics", "textfile", cc.Config.Metrics.Textfile, "error", err)
	}
}

// restore loads the saved session or fails with a not-logged-in error.
func (cc *CommandContext) restore() (*session.Session, error) {
	return cc.Sync.Restore()
}
