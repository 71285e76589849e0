// Package tui holds the interactive parts of the CLI: huh prompts and the
// Bubble Tea inbox.
package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

// Credentials are the login form values.
type Credentials struct {
	Email    string
	Password string
}

// PromptForCredentials asks for whichever of email and password is empty.
func PromptForCredentials(email string) (Credentials, error) {
	creds := Credentials{Email: email}

	var fields []huh.Field
	if strings.TrimSpace(email) == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("l1@example.com").
			Validate(required("email")).
			Value(&creds.Email))
	}
	fields = append(fields, huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Validate(required("password")).
		Value(&creds.Password))

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return Credentials{}, fmt.Errorf("prompt failed: %w", err)
	}
	creds.Email = strings.TrimSpace(creds.Email)
	return creds, nil
}

// PromptForRequest asks for the title and description of a new request,
// starting from the given values.
func PromptForRequest(title, description string) (string, string, error) {
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Title").
			Validate(required("title")).
			Value(&title),
		huh.NewText().
			Title("Description").
			Validate(required("description")).
			Value(&description),
	))
	if err := form.Run(); err != nil {
		return "", "", fmt.Errorf("prompt failed: %w", err)
	}
	return title, description, nil
}

// PromptForComment asks for an optional comment on an action.
func PromptForComment(action domain.Action, id int64, initial string) (string, error) {
	comment := initial
	input := huh.NewInput().
		Title(fmt.Sprintf("Comment for %s on request #%d (optional)", action, id)).
		Value(&comment)

	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.TrimSpace(comment), nil
}

// PromptForConfirmation displays a yes/no confirmation prompt
func PromptForConfirmation(message string, defaultValue bool) (bool, error) {
	var confirmed bool = defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Value(&confirmed)

	form := huh.NewForm(huh.NewGroup(confirm))

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}

	return confirmed, nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"TRAVIS",
	"CIRCLECI",
	"BUILDKITE",
}

// InCI reports whether a known CI environment variable is set.
func InCI(getenv func(string) string) bool {
	for _, envVar := range ciEnvVars {
		if getenv(envVar) != "" {
			return true
		}
	}
	return false
}

// ShouldPrompt returns true if prompts should be shown based on environment
// Prompts are disabled in CI environments or when stdin is not a terminal
func ShouldPrompt() bool {
	return !InCI(os.Getenv) && IsInteractive()
}
