package api

import (
	"context"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

// dashboardBody accepts both the nested {summary, recent} shape and the
// flat {total, pending, ..., requests} shape.
type dashboardBody struct {
	Summary  *domain.Summary          `json:"summary"`
	Recent   []domain.ApprovalRequest `json:"recent"`
	Requests []domain.ApprovalRequest `json:"requests"`

	Total            int `json:"total"`
	Pending          int `json:"pending"`
	Approved         int `json:"approved"`
	Rejected         int `json:"rejected"`
	ChangesRequested int `json:"changes_requested"`
}

func (b dashboardBody) dashboard() *domain.Dashboard {
	d := &domain.Dashboard{Recent: b.Recent}
	if b.Summary != nil {
		d.Summary = *b.Summary
	} else {
		d.Summary = domain.Summary{
			Total:            b.Total,
			Pending:          b.Pending,
			Approved:         b.Approved,
			Rejected:         b.Rejected,
			ChangesRequested: b.ChangesRequested,
		}
	}
	if d.Recent == nil {
		d.Recent = b.Requests
	}
	return d
}

// Dashboard returns the server-computed aggregate.
func (c *Client) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	var body dashboardBody
	if err := c.getJSON(ctx, "dashboard", "/api/dashboard", &body); err != nil {
		return nil, err
	}
	return body.dashboard(), nil
}
