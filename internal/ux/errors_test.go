package ux

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
)

func TestNewErrorWithSuggestion(t *testing.T) {
	assert.Nil(t, NewErrorWithSuggestion(nil, "x"))

	err := NewErrorWithSuggestion(errors.New("something failed"), "try this fix")
	assert.Contains(t, err.Error(), "something failed")
	assert.Contains(t, err.Error(), "try this fix")

	plain := NewErrorWithSuggestion(errors.New("something failed"), "")
	assert.Equal(t, "something failed", plain.Error())
}

func TestEnhanceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		suggestion string
	}{
		{"permission", errors.New("open /x: permission denied"), "--state-dir"},
		{"refused", errors.New("dial tcp: connection refused"), "--api-url"},
		{"format", errors.New("unknown format: xml"), "--format"},
		{"url", errors.New(`invalid api url "x"`), "api.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enhanced := EnhanceError(tt.err)
			assert.ErrorIs(t, enhanced, tt.err)
			assert.Contains(t, enhanced.Error(), tt.suggestion)
		})
	}

	plain := errors.New("boom")
	assert.Same(t, plain, EnhanceError(plain))
	assert.Nil(t, EnhanceError(nil))

	coded := clierrors.NewNotLoggedInError()
	assert.Same(t, coded, EnhanceError(coded))
}

func TestRenderError(t *testing.T) {
	err := clierrors.NewNotLoggedInError()
	out := RenderError(err, PlainStyles())
	assert.True(t, strings.HasPrefix(out, "Error: not logged in"))
	assert.Contains(t, out, "[AUTH-002]")
	assert.Contains(t, out, "approvals auth login")

	assert.Contains(t, RenderError(errors.New("boom"), PlainStyles()), "boom")
	assert.Empty(t, RenderError(nil, PlainStyles()))
}
