package ux

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

// RequestRow is the display form of one request.
type RequestRow struct {
	ID           int64         `json:"id" yaml:"id"`
	Title        string        `json:"title" yaml:"title"`
	Requester    string        `json:"requester_email" yaml:"requester_email"`
	Status       domain.Status `json:"status" yaml:"status"`
	Stage        string        `json:"stage" yaml:"stage"`
	CurrentStage int           `json:"current_stage" yaml:"current_stage"`
	Workflow     []string      `json:"workflow_snapshot" yaml:"workflow_snapshot"`
	Actions      []string      `json:"actions,omitempty" yaml:"actions,omitempty"`
	CreatedAt    string        `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// NewRequestRow derives the display state of req for role.
func NewRequestRow(req domain.ApprovalRequest, role domain.Role) RequestRow {
	row := RequestRow{
		ID:           req.ID,
		Title:        req.Title,
		Requester:    req.RequesterEmail,
		Status:       req.Status,
		Stage:        req.StageLabel(),
		CurrentStage: req.CurrentStage,
		Workflow:     append([]string(nil), req.WorkflowSnapshot...),
	}
	for _, a := range req.PermittedActions(role) {
		row.Actions = append(row.Actions, a.String())
	}
	if !req.CreatedAt.IsZero() {
		row.CreatedAt = req.CreatedAt.Format("2006-01-02 15:04")
	}
	return row
}

// RequestList is a table of requests.
type RequestList struct {
	Title    string       `json:"-" yaml:"-"`
	Requests []RequestRow `json:"requests" yaml:"requests"`
}

// NewRequestList builds the list view for role.
func NewRequestList(title string, reqs []domain.ApprovalRequest, role domain.Role) RequestList {
	list := RequestList{Title: title, Requests: make([]RequestRow, 0, len(reqs))}
	for _, req := range reqs {
		list.Requests = append(list.Requests, NewRequestRow(req, role))
	}
	return list
}

func (l RequestList) RenderText(w io.Writer, s Styles) error {
	if l.Title != "" {
		fmt.Fprintln(w, s.Title.Render(l.Title))
	}
	if len(l.Requests) == 0 {
		_, err := fmt.Fprintln(w, s.Muted.Render("No requests."))
		return err
	}
	_, err := fmt.Fprintln(w, requestTable(l.Requests, s))
	return err
}

func requestTable(rows []RequestRow, s Styles) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		Headers("ID", "TITLE", "STATUS", "STAGE", "WORKFLOW", "CREATED")
	for _, r := range rows {
		t.Row(
			strconv.FormatInt(r.ID, 10),
			r.Title,
			string(r.Status),
			r.Stage,
			domain.WorkflowOrder(r.Workflow).String(),
			r.CreatedAt,
		)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return s.Header
		}
		if col == 2 && row >= 0 && row < len(rows) {
			return s.Status(rows[row].Status).Inherit(s.Cell)
		}
		return s.Cell
	})
	return t.String()
}

// RequestDetail shows one request with its history.
type RequestDetail struct {
	Request domain.ApprovalRequest `json:"request" yaml:"request"`
	Stage   string                 `json:"stage" yaml:"stage"`
	Actions []string               `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// NewRequestDetail builds the detail view for role.
func NewRequestDetail(req domain.ApprovalRequest, role domain.Role) RequestDetail {
	d := RequestDetail{Request: req, Stage: req.StageLabel()}
	for _, a := range req.PermittedActions(role) {
		d.Actions = append(d.Actions, a.String())
	}
	return d
}

func (d RequestDetail) RenderText(w io.Writer, s Styles) error {
	r := d.Request
	fmt.Fprintln(w, s.Title.Render(fmt.Sprintf("#%d %s", r.ID, r.Title)))
	fmt.Fprintf(w, "%s %s\n", s.Muted.Render("Requester:"), r.RequesterEmail)
	fmt.Fprintf(w, "%s %s\n", s.Muted.Render("Status:   "), s.Status(r.Status).Render(string(r.Status)))
	fmt.Fprintf(w, "%s %s\n", s.Muted.Render("Stage:    "), d.Stage)
	fmt.Fprintf(w, "%s %s\n", s.Muted.Render("Workflow: "), domain.WorkflowOrder(r.WorkflowSnapshot).String())
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(w, "%s %s\n", s.Muted.Render("Created:  "), r.CreatedAt.Format("2006-01-02 15:04"))
	}
	if len(d.Actions) > 0 {
		fmt.Fprintf(w, "%s %s\n", s.Muted.Render("Actions:  "), strings.Join(d.Actions, ", "))
	}
	if r.Description != "" {
		fmt.Fprintf(w, "\n%s\n", r.Description)
	}
	if len(r.History) == 0 {
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		Headers("STAGE", "ROLE", "ACTION", "BY", "COMMENT", "WHEN")
	for _, h := range r.History {
		when := ""
		if !h.Timestamp.IsZero() {
			when = h.Timestamp.Format("2006-01-02 15:04")
		}
		t.Row(strconv.Itoa(h.Stage), h.Role, h.Action, h.ActorEmail, h.Comment, when)
	}
	t.StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return s.Header
		}
		return s.Cell
	})
	_, err := fmt.Fprintf(w, "\n%s\n", t.String())
	return err
}

// DashboardView shows the aggregate counts and recent requests.
type DashboardView struct {
	Summary domain.Summary `json:"summary" yaml:"summary"`
	Recent  []RequestRow   `json:"recent" yaml:"recent"`
}

// NewDashboardView builds the dashboard for role.
func NewDashboardView(d domain.Dashboard, role domain.Role) DashboardView {
	v := DashboardView{Summary: d.Summary, Recent: make([]RequestRow, 0, len(d.Recent))}
	for _, req := range d.Recent {
		v.Recent = append(v.Recent, NewRequestRow(req, role))
	}
	return v
}

func (v DashboardView) RenderText(w io.Writer, s Styles) error {
	fmt.Fprintln(w, s.Title.Render("Dashboard"))
	fmt.Fprintf(w, "Total %d  %s  %s  %s",
		v.Summary.Total,
		s.Pending.Render(fmt.Sprintf("Pending %d", v.Summary.Pending)),
		s.Approved.Render(fmt.Sprintf("Approved %d", v.Summary.Approved)),
		s.Rejected.Render(fmt.Sprintf("Rejected %d", v.Summary.Rejected)),
	)
	if v.Summary.ChangesRequested > 0 {
		fmt.Fprintf(w, "  Changes requested %d", v.Summary.ChangesRequested)
	}
	fmt.Fprintln(w)
	if len(v.Recent) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "\n%s\n", requestTable(v.Recent, s))
	return err
}

// WorkflowView shows a workflow order.
type WorkflowView struct {
	Order  domain.WorkflowOrder `json:"workflow_order" yaml:"workflow_order"`
	Source string               `json:"source" yaml:"source"`
}

func (v WorkflowView) RenderText(w io.Writer, s Styles) error {
	fmt.Fprintf(w, "%s %s\n", s.Title.Render("Workflow"), s.Muted.Render("("+v.Source+")"))
	if len(v.Order) == 0 {
		_, err := fmt.Fprintln(w, s.Error.Render("(empty: add a stage before saving)"))
		return err
	}
	for i, stage := range v.Order {
		fmt.Fprintf(w, "  %d. %s\n", i+1, stage)
	}
	return nil
}

// SessionView describes the logged-in user.
type SessionView struct {
	Email  string      `json:"email" yaml:"email"`
	Name   string      `json:"name,omitempty" yaml:"name,omitempty"`
	Role   domain.Role `json:"role" yaml:"role"`
	Home   domain.View `json:"home" yaml:"home"`
	Server string      `json:"server" yaml:"server"`
}

func (v SessionView) RenderText(w io.Writer, s Styles) error {
	fmt.Fprintf(w, "%s %s <%s>\n", s.Muted.Render("User:  "), v.Name, v.Email)
	fmt.Fprintf(w, "%s %s\n", s.Muted.Render("Role:  "), v.Role)
	fmt.Fprintf(w, "%s %s\n", s.Muted.Render("Home:  "), v.Home)
	_, err := fmt.Fprintf(w, "%s %s\n", s.Muted.Render("Server:"), v.Server)
	return err
}

// Message is a one-line confirmation.
type Message struct {
	Text string `json:"message" yaml:"message"`
	ID   int64  `json:"id,omitempty" yaml:"id,omitempty"`
}

func (m Message) RenderText(w io.Writer, s Styles) error {
	_, err := fmt.Fprintln(w, s.Success.Render("✓")+" "+m.Text)
	return err
}
