package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/approvals/internal/domain"
	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
)

// InboxBackend is what the inbox needs from the workflow client.
type InboxBackend interface {
	PendingFor(ctx context.Context) ([]domain.ApprovalRequest, error)
	CachedPending() []domain.ApprovalRequest
	Select(id int64) (domain.ApprovalRequest, error)
	Act(ctx context.Context, id int64, action domain.Action, comment string) error
	Comment(id int64) string
	PermittedActions(req domain.ApprovalRequest) []domain.Action
}

type inboxMode int

const (
	modeBrowse inboxMode = iota
	modeComment
)

// keyMap defines the keyboard shortcuts
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Approve key.Binding
	Reject  key.Binding
	Refresh key.Binding
	Submit  key.Binding
	Cancel  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Approve: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "approve")),
	Reject:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reject")),
	Refresh: key.NewBinding(key.WithKeys("ctrl+r", "R"), key.WithHelp("R", "refresh")),
	Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// pendingLoadedMsg carries the result of a pending-list fetch. seq is the
// load it answers; only the latest load is applied.
type pendingLoadedMsg struct {
	seq      int
	requests []domain.ApprovalRequest
	err      error
}

// actionDoneMsg carries the result of an approve or reject.
type actionDoneMsg struct {
	id     int64
	action domain.Action
	err    error
}

// InboxModel is the Bubble Tea model of the approver inbox.
type InboxModel struct {
	ctx     context.Context
	backend InboxBackend

	requests []domain.ApprovalRequest
	cursor   int
	mode     inboxMode
	action   domain.Action
	comment  textinput.Model

	loading  bool
	loadSeq  int
	busy     bool
	status   string
	failure  string
	quitting bool

	styles inboxStyles
}

type inboxStyles struct {
	Title    lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Help     lipgloss.Style
}

func defaultInboxStyles() inboxStyles {
	return inboxStyles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color("63")).
			Foreground(lipgloss.Color("230")).
			Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
		Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
	}
}

// NewInboxModel creates the inbox. The first fetch starts in Init.
func NewInboxModel(ctx context.Context, backend InboxBackend) InboxModel {
	ti := textinput.New()
	ti.Placeholder = "optional comment"
	ti.CharLimit = 500
	ti.Width = 60

	return InboxModel{
		ctx:      ctx,
		backend:  backend,
		requests: backend.CachedPending(),
		comment:  ti,
		loading:  true,
		loadSeq:  1,
		styles:   defaultInboxStyles(),
	}
}

// Init starts the first fetch.
func (m InboxModel) Init() tea.Cmd {
	return m.fetch(m.loadSeq)
}

// reload starts a new fetch, superseding any still in flight.
func (m *InboxModel) reload() tea.Cmd {
	m.loadSeq++
	m.loading = true
	return m.fetch(m.loadSeq)
}

func (m InboxModel) fetch(seq int) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		reqs, err := backend.PendingFor(ctx)
		return pendingLoadedMsg{seq: seq, requests: reqs, err: err}
	}
}

func (m InboxModel) act(id int64, action domain.Action, comment string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return actionDoneMsg{id: id, action: action, err: backend.Act(ctx, id, action, comment)}
	}
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m InboxModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeComment {
			return m.updateComment(msg)
		}
		return m.updateBrowse(msg)

	case pendingLoadedMsg:
		if msg.seq != m.loadSeq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.failure = clierrors.UserMessage(msg.err)
			return m, nil
		}
		m.failure = ""
		m.setRequests(msg.requests)
		return m, nil

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.failure = clierrors.UserMessage(msg.err)
			m.status = ""
			return m, nil
		}
		// The backend refetched after the action; older loads are stale.
		m.loadSeq++
		m.loading = false
		m.failure = ""
		m.status = fmt.Sprintf("Request #%d %s", msg.id, msg.action.PastTense())
		m.setRequests(m.backend.CachedPending())
		return m, nil
	}
	return m, nil
}

func (m InboxModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.selectCurrent()

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.requests)-1 {
			m.cursor++
		}
		m.selectCurrent()

	case key.Matches(msg, keys.Refresh):
		if m.busy || m.loading {
			return m, nil
		}
		return m, m.reload()

	case key.Matches(msg, keys.Approve):
		return m.startAction(domain.ActionApprove)

	case key.Matches(msg, keys.Reject):
		return m.startAction(domain.ActionReject)
	}
	return m, nil
}

// startAction opens the comment line for the highlighted request. Action
// keys do nothing while an action or a fetch is in flight.
func (m InboxModel) startAction(action domain.Action) (tea.Model, tea.Cmd) {
	req, ok := m.current()
	if !ok || m.busy || m.loading || !permits(m.backend.PermittedActions(req), action) {
		return m, nil
	}
	m.mode = modeComment
	m.action = action
	m.comment.SetValue(m.backend.Comment(req.ID))
	m.comment.CursorEnd()
	return m, m.comment.Focus()
}

func (m InboxModel) updateComment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.mode = modeBrowse
		m.comment.Blur()
		return m, nil

	case key.Matches(msg, keys.Submit):
		req, ok := m.current()
		m.mode = modeBrowse
		m.comment.Blur()
		if !ok {
			return m, nil
		}
		m.busy = true
		m.status = fmt.Sprintf("Sending %s for #%d...", m.action, req.ID)
		return m, m.act(req.ID, m.action, strings.TrimSpace(m.comment.Value()))
	}

	var cmd tea.Cmd
	m.comment, cmd = m.comment.Update(msg)
	return m, cmd
}

func (m *InboxModel) setRequests(reqs []domain.ApprovalRequest) {
	m.requests = reqs
	if m.cursor >= len(reqs) {
		m.cursor = len(reqs) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.selectCurrent()
}

func (m *InboxModel) selectCurrent() {
	if req, ok := m.current(); ok {
		_, _ = m.backend.Select(req.ID)
	}
}

func (m InboxModel) current() (domain.ApprovalRequest, bool) {
	if m.cursor < 0 || m.cursor >= len(m.requests) {
		return domain.ApprovalRequest{}, false
	}
	return m.requests[m.cursor], true
}

func permits(allowed []domain.Action, action domain.Action) bool {
	for _, a := range allowed {
		if a == action {
			return true
		}
	}
	return false
}

// View renders the TUI (required by Bubble Tea)
func (m InboxModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Pending approvals"))
	b.WriteString("\n")

	switch {
	case m.loading && len(m.requests) == 0:
		b.WriteString(m.styles.Muted.Render("Loading..."))
		b.WriteString("\n")
	case len(m.requests) == 0:
		b.WriteString(m.styles.Muted.Render("Nothing is waiting for you."))
		b.WriteString("\n")
	}

	for i, req := range m.requests {
		line := fmt.Sprintf("#%-4d %-32s %-12s %s", req.ID, truncate(req.Title, 32), req.StageLabel(), req.RequesterEmail)
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if req, ok := m.current(); ok && req.Description != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render(req.Description))
		b.WriteString("\n")
	}

	if m.mode == modeComment {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s comment: %s\n", m.action, m.comment.View()))
	}

	if m.failure != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render("✗ " + m.failure))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Success.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render(m.helpLine()))
	return b.String()
}

func (m InboxModel) helpLine() string {
	bindings := []key.Binding{keys.Up, keys.Down, keys.Approve, keys.Reject, keys.Refresh, keys.Quit}
	if m.mode == modeComment {
		bindings = []key.Binding{keys.Submit, keys.Cancel}
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RunInbox runs the inbox until the user quits.
func RunInbox(ctx context.Context, backend InboxBackend) error {
	p := tea.NewProgram(NewInboxModel(ctx, backend), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
