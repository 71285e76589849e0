package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	email := r.PostForm.Get("email")
	if email == "" {
		email = r.PostForm.Get("username")
	}

	user, ok := lookupUser(email)
	if !ok || r.PostForm.Get("password") != Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	token, err := s.tokens.issue(user, s.tokens.ttl)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		s.tokenField: token,
		"token_type": "bearer",
		"user":       user,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if user.Role != domain.RoleRequester {
		writeDetail(w, http.StatusForbidden, "Only L1 users can create requests")
		return
	}

	var body struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		RequesterEmail string `json:"requester_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	req := &domain.ApprovalRequest{
		ID:               s.nextID,
		Title:            body.Title,
		Description:      body.Description,
		RequesterEmail:   body.RequesterEmail,
		Status:           domain.StatusPending,
		CurrentStage:     0,
		WorkflowSnapshot: s.workflow.Clone(),
		CreatedAt:        s.timestamp(),
	}
	s.nextID++
	s.requests = append(s.requests, req)
	first := ""
	if len(req.WorkflowSnapshot) > 0 {
		first = req.WorkflowSnapshot[0]
	}
	s.history[req.ID] = append(s.history[req.ID], domain.HistoryEntry{
		RequestID:  req.ID,
		Stage:      0,
		Role:       first,
		Action:     "created",
		ActorEmail: user.Email,
		Timestamp:  s.timestamp(),
	})
	out := *req
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMyRequests(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if user.Role != domain.RoleRequester {
		writeDetail(w, http.StatusForbidden, "Only L1 users can view their requests")
		return
	}

	s.mu.Lock()
	out := []domain.ApprovalRequest{}
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].RequesterEmail == user.Email {
			out = append(out, *s.requests[i])
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	role, err := domain.ParseRole(mux.Vars(r)["role"])
	if err != nil || !user.Role.IsApprover() || user.Role != role {
		writeDetail(w, http.StatusForbidden, "Access denied")
		return
	}

	s.mu.Lock()
	out := []domain.ApprovalRequest{}
	for _, req := range s.requests {
		if req.AwaitsRole(role) {
			out = append(out, *req)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	id, _ := strconv.ParseInt(mux.Vars(r)["request_id"], 10, 64)

	s.mu.Lock()
	req := s.find(id)
	if req == nil {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Request not found")
		return
	}
	if user.Role == domain.RoleRequester && req.RequesterEmail != user.Email {
		s.mu.Unlock()
		writeDetail(w, http.StatusForbidden, "Access denied")
		return
	}
	out := s.withHistory(req)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAct(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if !user.Role.IsApprover() {
		writeDetail(w, http.StatusForbidden, "Only L2/L3 can approve/reject")
		return
	}
	id, _ := strconv.ParseInt(mux.Vars(r)["request_id"], 10, 64)

	var body struct {
		Action  string  `json:"action"`
		Comment *string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	action, err := domain.ParseAction(body.Action)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req := s.find(id)
	if req == nil {
		writeDetail(w, http.StatusNotFound, "Request not found")
		return
	}
	if !req.AwaitsRole(user.Role) {
		writeDetail(w, http.StatusForbidden, "Not your turn to approve")
		return
	}

	stage := req.ActiveStage()
	entry := domain.HistoryEntry{
		RequestID:  id,
		Stage:      stage,
		Role:       user.Role.String(),
		Action:     action.String(),
		ActorEmail: user.Email,
		Timestamp:  s.timestamp(),
	}
	if body.Comment != nil {
		entry.Comment = *body.Comment
	}
	s.history[id] = append(s.history[id], entry)

	switch action {
	case domain.ActionApprove:
		req.CurrentStage = stage + 1
		if req.ActiveStage() >= len(req.WorkflowSnapshot) {
			req.Status = domain.StatusApproved
			req.CurrentStage = len(req.WorkflowSnapshot)
		}
	case domain.ActionReject:
		req.Status = domain.StatusRejected
	}
	req.UpdatedAt = s.timestamp()

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Request %s successfully", pastParticiple(action)),
	})
}

func pastParticiple(a domain.Action) string {
	switch a {
	case domain.ActionApprove:
		return "approved"
	case domain.ActionReject:
		return "rejected"
	default:
		return a.String()
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if !user.Role.CanViewDashboard() {
		writeDetail(w, http.StatusForbidden, "Access denied")
		return
	}

	s.mu.Lock()
	summary := domain.Summary{Total: len(s.requests)}
	recent := make([]domain.ApprovalRequest, 0, len(s.requests))
	for i := len(s.requests) - 1; i >= 0; i-- {
		req := s.requests[i]
		switch req.Status {
		case domain.StatusPending:
			summary.Pending++
		case domain.StatusApproved:
			summary.Approved++
		case domain.StatusRejected:
			summary.Rejected++
		}
		recent = append(recent, *req)
	}
	s.mu.Unlock()

	if s.flatDash {
		writeJSON(w, http.StatusOK, map[string]any{
			"total":    summary.Total,
			"pending":  summary.Pending,
			"approved": summary.Approved,
			"rejected": summary.Rejected,
			"requests": recent,
		})
		return
	}
	writeJSON(w, http.StatusOK, domain.Dashboard{Summary: summary, Recent: recent})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	order := s.workflow.Clone()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"workflow_order": order})
}

func (s *Server) handlePutWorkflow(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if !user.Role.CanEditWorkflow() {
		writeDetail(w, http.StatusForbidden, "Only admin can update workflow")
		return
	}

	var body struct {
		WorkflowOrder domain.WorkflowOrder `json:"workflow_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	s.workflow = body.WorkflowOrder.Clone()
	order := s.workflow.Clone()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"workflow_order": order})
}
