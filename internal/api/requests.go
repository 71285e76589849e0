package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

var errMissingToken = errors.New("response carried no access token")

// CreateRequest is the body of POST /api/requests.
type CreateRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	RequesterEmail string `json:"requester_email"`
}

// ActionRequest is the body of POST /api/requests/{id}/action.
type ActionRequest struct {
	Action  domain.Action `json:"action"`
	Comment *string       `json:"comment"`
}

// ActionResult is the server's answer to an action. Some servers echo the
// updated record, others only a message.
type ActionResult struct {
	Message string
	Request *domain.ApprovalRequest
}

// UnmarshalJSON accepts {"message": ...} and full request records.
func (r *ActionResult) UnmarshalJSON(data []byte) error {
	var probe struct {
		Message string `json:"message"`
		ID      *int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	r.Message = probe.Message
	r.Request = nil
	if probe.ID != nil {
		var req domain.ApprovalRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return err
		}
		r.Request = &req
	}
	return nil
}

// MyRequests lists requests created by the caller, in server order.
func (c *Client) MyRequests(ctx context.Context) ([]domain.ApprovalRequest, error) {
	var out []domain.ApprovalRequest
	if err := c.getJSON(ctx, "my_requests", "/api/requests/my-requests", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRequest submits a new request and returns the server's echo.
func (c *Client) CreateRequest(ctx context.Context, body CreateRequest) (*domain.ApprovalRequest, error) {
	var out domain.ApprovalRequest
	if err := c.sendJSON(ctx, "create_request", http.MethodPost, "/api/requests", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PendingFor lists pending requests awaiting role.
func (c *Client) PendingFor(ctx context.Context, role domain.Role) ([]domain.ApprovalRequest, error) {
	var out []domain.ApprovalRequest
	path := "/api/requests/pending/" + url.PathEscape(role.String())
	if err := c.getJSON(ctx, "pending_for", path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRequest fetches one request including its history.
func (c *Client) GetRequest(ctx context.Context, id int64) (*domain.ApprovalRequest, error) {
	var out domain.ApprovalRequest
	if err := c.getJSON(ctx, "get_request", fmt.Sprintf("/api/requests/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Act approves or rejects a request. An empty comment is sent as null.
func (c *Client) Act(ctx context.Context, id int64, action domain.Action, comment string) (*ActionResult, error) {
	body := ActionRequest{Action: action}
	if comment != "" {
		body.Comment = &comment
	}

	var out ActionResult
	path := fmt.Sprintf("/api/requests/%d/action", id)
	if err := c.sendJSON(ctx, "act", http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
