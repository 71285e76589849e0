// Package apitest runs an in-memory approval API for tests. Routing uses
// gorilla/mux and every request is validated against the embedded OpenAPI
// contract before it reaches a handler.
//
// Users exist implicitly: any email whose local part starts with l0, l1,
// l2, l3 or admin logs in with the password "password" and gets that role.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gorilla/mux"

	"github.com/felixgeelhaar/approvals/internal/api"
	"github.com/felixgeelhaar/approvals/internal/domain"
)

// Password is accepted for every implicit user.
const Password = "password"

// Route names, also used as keys for Intercept and Calls.
const (
	OpLogin         = "login"
	OpCreateRequest = "create_request"
	OpMyRequests    = "my_requests"
	OpPendingFor    = "pending_for"
	OpGetRequest    = "get_request"
	OpAct           = "act"
	OpDashboard     = "dashboard"
	OpGetWorkflow   = "get_workflow"
	OpPutWorkflow   = "put_workflow"
)

// Server is a fake approval API.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	requests   []*domain.ApprovalRequest
	history    map[int64][]domain.HistoryEntry
	workflow   domain.WorkflowOrder
	nextID     int64
	calls      []string
	intercepts map[string][]http.HandlerFunc

	contract   routers.Router
	tokens     *tokenIssuer
	tokenField string
	flatDash   bool
	now        func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) { s.tokens.ttl = ttl }
}

// WithTokenField makes login answer with the token under name ("token"
// instead of "access_token").
func WithTokenField(name string) Option {
	return func(s *Server) { s.tokenField = name }
}

// WithFlatDashboard answers the dashboard with top-level counts and a
// "requests" list instead of {summary, recent}.
func WithFlatDashboard() Option {
	return func(s *Server) { s.flatDash = true }
}

// WithWorkflow sets the initial global workflow order.
func WithWorkflow(order domain.WorkflowOrder) Option {
	return func(s *Server) { s.workflow = order.Clone() }
}

// WithClock overrides time.Now for timestamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
		s.tokens.now = now
	}
}

// New starts a server and closes it when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	doc, err := api.Contract(context.Background())
	if err != nil {
		t.Fatalf("apitest: %v", err)
	}
	contract, err := gorillamux.NewRouter(doc)
	if err != nil {
		t.Fatalf("apitest: build contract router: %v", err)
	}

	s := &Server{
		history:    make(map[int64][]domain.HistoryEntry),
		workflow:   domain.DefaultWorkflowOrder(),
		nextID:     1,
		intercepts: make(map[string][]http.HandlerFunc),
		contract:   contract,
		tokens:     newTokenIssuer(),
		tokenField: "access_token",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost).Name(OpLogin)
	r.HandleFunc("/api/requests", s.handleCreate).Methods(http.MethodPost).Name(OpCreateRequest)
	r.HandleFunc("/api/requests/my-requests", s.handleMyRequests).Methods(http.MethodGet).Name(OpMyRequests)
	r.HandleFunc("/api/requests/pending/{role}", s.handlePending).Methods(http.MethodGet).Name(OpPendingFor)
	r.HandleFunc("/api/requests/{request_id:[0-9]+}", s.handleGetRequest).Methods(http.MethodGet).Name(OpGetRequest)
	r.HandleFunc("/api/requests/{request_id:[0-9]+}/action", s.handleAct).Methods(http.MethodPost).Name(OpAct)
	r.HandleFunc("/api/dashboard", s.handleDashboard).Methods(http.MethodGet).Name(OpDashboard)
	r.HandleFunc("/api/workflow", s.handleGetWorkflow).Methods(http.MethodGet).Name(OpGetWorkflow)
	r.HandleFunc("/api/workflow", s.handlePutWorkflow).Methods(http.MethodPut).Name(OpPutWorkflow)

	r.Use(s.record, s.intercept, s.authenticate, s.validate)
	return r
}

// Intercept answers the next call to op with h instead of the real
// handler. Interceptors queue in order and are used once each.
func (s *Server) Intercept(op string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intercepts[op] = append(s.intercepts[op], h)
}

// FailNext answers the next call to op with status and {"detail": detail}.
// An empty detail sends an empty JSON object.
func (s *Server) FailNext(op string, status int, detail string) {
	s.Intercept(op, func(w http.ResponseWriter, _ *http.Request) {
		if detail == "" {
			writeJSON(w, status, map[string]any{})
			return
		}
		writeDetail(w, status, detail)
	})
}

// Calls returns the route names served so far, in arrival order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// ResetCalls clears the call log.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Seed stores a request as if it had been created, assigning an id when
// ID is zero. It returns the id.
func (s *Server) Seed(req domain.ApprovalRequest) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID == 0 {
		req.ID = s.nextID
	}
	if req.ID >= s.nextID {
		s.nextID = req.ID + 1
	}
	if req.Status == "" {
		req.Status = domain.StatusPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = domain.Timestamp{Time: s.now().UTC()}
	}
	stored := req
	stored.WorkflowSnapshot = append([]string(nil), req.WorkflowSnapshot...)
	s.requests = append(s.requests, &stored)
	return stored.ID
}

// Request returns a copy of the stored request.
func (s *Server) Request(id int64) (domain.ApprovalRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.find(id)
	if req == nil {
		return domain.ApprovalRequest{}, false
	}
	return s.withHistory(req), true
}

// Workflow returns the stored global order.
func (s *Server) Workflow() domain.WorkflowOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflow.Clone()
}

// IssueToken returns a token for email valid for ttl (negative for an
// already expired token).
func (s *Server) IssueToken(email string, ttl time.Duration) string {
	user, ok := lookupUser(email)
	if !ok {
		return ""
	}
	tok, err := s.tokens.issue(user, ttl)
	if err != nil {
		return ""
	}
	return tok
}

func (s *Server) find(id int64) *domain.ApprovalRequest {
	for _, req := range s.requests {
		if req.ID == id {
			return req
		}
	}
	return nil
}

func (s *Server) withHistory(req *domain.ApprovalRequest) domain.ApprovalRequest {
	out := *req
	out.WorkflowSnapshot = append([]string(nil), req.WorkflowSnapshot...)
	out.History = append([]domain.HistoryEntry(nil), s.history[req.ID]...)
	return out
}

func (s *Server) timestamp() domain.Timestamp {
	return domain.Timestamp{Time: s.now().UTC()}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
