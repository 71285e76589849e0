package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/approvals/internal/config"
	"github.com/felixgeelhaar/approvals/internal/ux"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit approvals configuration",
	Long: `Manage the configuration stored at ~/.approvals/config.yaml
(or $APPROVALS_CONFIG).

Configuration includes:
  • The approval API URL and request timeout
  • Default output format
  • Logging, tracing and metrics settings
  • Where sessions and workflow drafts are kept

Environment variables (APPROVALS_API_URL, APPROVALS_STATE_DIR,
APPROVALS_LOG_LEVEL) override the file; flags override both.

Examples:
  # View current configuration
  approvals config view

  # Edit configuration in $EDITOR
  approvals config edit

  # Get a specific value
  approvals config get api.url

  # Set a specific value
  approvals config set api.url https://approvals.example.com

  # Show configuration file path
  approvals config path
`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display current configuration",
	Long:  `Display the effective configuration after environment variables and flags.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigView,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration in $EDITOR",
	Long:  `Open the configuration file in your default editor (from $EDITOR environment variable).`,
	Args:  cobra.NoArgs,
	RunE:  runConfigEdit,
}

var configGetCmd = &cobra.Command{
	Use:       "get <key>",
	Short:     "Get a specific configuration value",
	Long:      `Retrieve the value of a specific configuration key using dot notation (e.g., api.url).`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.Keys(),
	RunE:      runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a specific configuration value",
	Long:  `Set the value of a specific configuration key using dot notation (e.g., api.timeout 10s).`,
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigView(cmd *cobra.Command, args []string) error {
	settings, err := LoadSettings(cmd)
	if err != nil {
		return err
	}

	// Use formatter for JSON/YAML output
	if settings.Format == "json" || settings.Format == "yaml" {
		formatter, err := settings.Formatter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return formatter.Format(settings.Config)
	}

	// Text output
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file: %s\n\n", settings.ConfigPath)

	data, err := yaml.Marshal(settings.Config)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, string(data))
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	settings, err := LoadSettings(cmd)
	if err != nil {
		return err
	}
	path := settings.ConfigPath

	// Materialise the defaults so the editor has something to show
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
	}

	// Get editor from environment
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi" // Fallback to vi
	}

	editorCmd := exec.CommandContext(cmd.Context(), editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	// Validate the edited config
	cfg, err := config.Load(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Configuration may contain errors: %v\n", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "Please check and fix the configuration file.\n")
		return err
	}

	return printSuccess(cmd, settings, "Configuration updated successfully")
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	settings, err := LoadSettings(cmd)
	if err != nil {
		return err
	}

	value, err := settings.Config.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// runConfigSet edits the file itself, so environment and flag overrides
// are not written back.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	settings, err := LoadSettings(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(settings.ConfigPath)
	if err != nil {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := config.Save(cfg, settings.ConfigPath); err != nil {
		return err
	}

	return printSuccess(cmd, settings, fmt.Sprintf("Set %s = %s", key, value))
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	settings, err := LoadSettings(cmd)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), settings.ConfigPath)
	return nil
}

func printSuccess(cmd *cobra.Command, settings *Settings, text string) error {
	formatter, err := settings.Formatter(cmd.OutOrStdout())
	if err != nil {
		return ux.EnhanceError(err)
	}
	return formatter.Format(ux.Message{Text: strings.TrimSpace(text)})
}
