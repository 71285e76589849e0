package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/approvals/internal/api"
	"github.com/felixgeelhaar/approvals/internal/apitest"
	"github.com/felixgeelhaar/approvals/internal/domain"
	"github.com/felixgeelhaar/approvals/internal/metrics"
)

func newClient(t *testing.T, srv *apitest.Server, opts ...api.Option) *api.Client {
	t.Helper()
	c, err := api.NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func login(t *testing.T, c *api.Client, email string) *api.LoginResponse {
	t.Helper()
	resp, err := c.Login(context.Background(), email, apitest.Password)
	require.NoError(t, err)
	c.SetToken(resp.BearerToken())
	return resp
}

func TestNewClient(t *testing.T) {
	c, err := api.NewClient("https://approvals.example.com:8443/")
	require.NoError(t, err)
	assert.Equal(t, "https://approvals.example.com:8443", c.BaseURL)
	assert.Equal(t, "https://approvals.example.com:8443", c.Origin())
	assert.Equal(t, api.DefaultTimeout, c.HTTPClient.Timeout)

	_, err = api.NewClient("approvals.example.com")
	assert.Error(t, err)
	_, err = api.NewClient("ftp://approvals.example.com")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(t, srv)

	resp, err := c.Login(context.Background(), "l1@example.com", apitest.Password)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.BearerToken())
	assert.Equal(t, domain.RoleRequester, resp.User.Role)
	assert.Equal(t, "l1@example.com", resp.User.Email)
	assert.Empty(t, c.Token(), "login does not install the token")

	_, err = c.Login(context.Background(), "l1@example.com", "wrong")
	se, ok := api.AsStatus(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "Incorrect email or password", se.Detail)
}

func TestLogin_TokenField(t *testing.T) {
	srv := apitest.New(t, apitest.WithTokenField("token"))
	c := newClient(t, srv)

	resp := login(t, c, "l2@example.com")
	assert.Empty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, resp.Token, resp.BearerToken())
}

func TestLogin_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"email":"l1@example.com","role":"L1"}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "l1@example.com", "password")
	var de *api.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestLogin_UnknownRoleRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"x","user":{"email":"a@b.c","role":"superuser"}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "a@b.c", "pw")
	var de *api.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestRequestLifecycle(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()

	requester := newClient(t, srv)
	login(t, requester, "l1@example.com")

	created, err := requester.CreateRequest(ctx, api.CreateRequest{
		Title:          "Laptop",
		Description:    "Need a new laptop",
		RequesterEmail: "l1@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, 0, created.CurrentStage)
	assert.Equal(t, []string{"L1", "L2", "L3"}, created.WorkflowSnapshot)

	mine, err := requester.MyRequests(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	manager := newClient(t, srv)
	login(t, manager, "l2@example.com")

	pending, err := manager.PendingFor(ctx, domain.RoleManager)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	result, err := manager.Act(ctx, created.ID, domain.ActionApprove, "ok")
	require.NoError(t, err)
	assert.Equal(t, "Request approved successfully", result.Message)
	assert.Nil(t, result.Request)

	_, err = manager.Act(ctx, created.ID, domain.ActionApprove, "")
	se, ok := api.AsStatus(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, se.Status)
	assert.Equal(t, "Not your turn to approve", se.Detail)

	detail, err := manager.GetRequest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.CurrentStage)
	require.Len(t, detail.History, 2)
	assert.Equal(t, "ok", detail.History[1].Comment)
}

func TestWorkflowRoundTrip(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()
	admin := newClient(t, srv)
	login(t, admin, "admin@example.com")

	stored, err := admin.PutWorkflow(ctx, domain.WorkflowOrder{"L1", "L2", "L3"})
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowOrder{"L1", "L2", "L3"}, stored)

	got, err := admin.GetWorkflow(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowOrder{"L1", "L2", "L3"}, got)

	_, err = admin.PutWorkflow(ctx, domain.WorkflowOrder{})
	se, ok := api.AsStatus(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	assert.NotEmpty(t, se.Detail, "validation arrays are flattened to their first message")
	assert.Equal(t, domain.WorkflowOrder{"L1", "L2", "L3"}, srv.Workflow())
}

func TestDashboardShapes(t *testing.T) {
	ctx := context.Background()

	for _, flat := range []bool{false, true} {
		var opts []apitest.Option
		if flat {
			opts = append(opts, apitest.WithFlatDashboard())
		}
		srv := apitest.New(t, opts...)
		srv.Seed(domain.ApprovalRequest{Title: "a", WorkflowSnapshot: []string{"L2"}})
		srv.Seed(domain.ApprovalRequest{Title: "b", Status: domain.StatusApproved, WorkflowSnapshot: []string{"L2"}, CurrentStage: 1})

		viewer := newClient(t, srv)
		login(t, viewer, "l0@example.com")

		d, err := viewer.Dashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, d.Summary.Total, "flat=%v", flat)
		assert.Equal(t, 1, d.Summary.Pending)
		assert.Equal(t, 1, d.Summary.Approved)
		assert.Len(t, d.Recent, 2)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := api.NewClient(url, api.WithTimeout(time.Second))
	require.NoError(t, err)
	_, err = c.MyRequests(context.Background())
	assert.True(t, api.IsTransport(err), "got %v", err)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := api.NewClient(srv.URL, api.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	_, err = c.GetWorkflow(context.Background())
	assert.True(t, api.IsTransport(err), "got %v", err)
}

func TestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{"workflow_order":["L2"]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	c.SetToken("tok")
	_, err = c.GetWorkflow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Len(t, got.Get(api.RequestIDHeader), 36)
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.True(t, strings.HasPrefix(got.Get("User-Agent"), "approvals/"), got.Get("User-Agent"))
}

func TestMetricsObserved(t *testing.T) {
	srv := apitest.New(t)
	_, m := metrics.NewRegistry()
	c := newClient(t, srv, api.WithMetrics(m))

	_, _ = c.Login(context.Background(), "l1@example.com", "nope")
	login(t, c, "l1@example.com")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICalls.WithLabelValues("login", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICalls.WithLabelValues("login", "2xx")))
}

func TestContract(t *testing.T) {
	doc, err := api.Contract(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/api/requests/{request_id}/action"))
	assert.Contains(t, string(api.ContractYAML()), "openapi: 3.0.3")
}
