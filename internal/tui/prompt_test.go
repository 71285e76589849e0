package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInCI(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"no CI environment", map[string]string{}, false},
		{"GitHub Actions", map[string]string{"GITHUB_ACTIONS": "true"}, true},
		{"GitLab CI", map[string]string{"GITLAB_CI": "true"}, true},
		{"Jenkins", map[string]string{"JENKINS_URL": "http://jenkins.local"}, true},
		{"Generic CI", map[string]string{"CI": "true"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			assert.Equal(t, tt.want, InCI(getenv))
		})
	}
}

func TestShouldPromptFalseInCI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.False(t, ShouldPrompt())
}

func TestRequired(t *testing.T) {
	check := required("email")
	assert.EqualError(t, check("  "), "email is required")
	assert.NoError(t, check("l1@example.com"))
}
