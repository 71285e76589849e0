package ux

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

// Styles contains lipgloss styles for text output.
type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
	Muted    lipgloss.Style
	Border   lipgloss.Style
	Pending  lipgloss.Style
	Approved lipgloss.Style
	Rejected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			Padding(0, 1),
		Cell: lipgloss.NewStyle().Padding(0, 1),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Border:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("226")), // Yellow
		Approved: lipgloss.NewStyle().Foreground(lipgloss.Color("46")),  // Green
		Rejected: lipgloss.NewStyle().Foreground(lipgloss.Color("196")), // Red
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")),
	}
}

// PlainStyles renders without color or emphasis.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:    plain,
		Header:   plain.Padding(0, 1),
		Cell:     plain.Padding(0, 1),
		Muted:    plain,
		Border:   plain,
		Pending:  plain,
		Approved: plain,
		Rejected: plain,
		Error:    plain,
		Success:  plain,
	}
}

// Status picks the style for a request status.
func (s Styles) Status(status domain.Status) lipgloss.Style {
	switch status {
	case domain.StatusApproved:
		return s.Approved
	case domain.StatusRejected:
		return s.Rejected
	case domain.StatusPending:
		return s.Pending
	default:
		return s.Muted
	}
}
