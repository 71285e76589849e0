package api

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

// WorkflowConfig is the body of GET and PUT /api/workflow.
type WorkflowConfig struct {
	WorkflowOrder domain.WorkflowOrder `json:"workflow_order"`
}

// GetWorkflow returns the global workflow order.
func (c *Client) GetWorkflow(ctx context.Context) (domain.WorkflowOrder, error) {
	var out WorkflowConfig
	if err := c.getJSON(ctx, "get_workflow", "/api/workflow", &out); err != nil {
		return nil, err
	}
	return out.WorkflowOrder, nil
}

// PutWorkflow replaces the global workflow order and returns what the
// server stored.
func (c *Client) PutWorkflow(ctx context.Context, order domain.WorkflowOrder) (domain.WorkflowOrder, error) {
	var out WorkflowConfig
	if err := c.sendJSON(ctx, "put_workflow", http.MethodPut, "/api/workflow", WorkflowConfig{WorkflowOrder: order}, &out); err != nil {
		return nil, err
	}
	if len(out.WorkflowOrder) == 0 {
		return order.Clone(), nil
	}
	return out.WorkflowOrder, nil
}
