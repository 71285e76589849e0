package workflowsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/approvals/internal/api"
	"github.com/felixgeelhaar/approvals/internal/apitest"
	"github.com/felixgeelhaar/approvals/internal/domain"
	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
	"github.com/felixgeelhaar/approvals/internal/metrics"
	"github.com/felixgeelhaar/approvals/internal/session"
)

type harness struct {
	srv     *apitest.Server
	kv      *session.MemoryKV
	notes   *ChannelNotifier
	metrics *metrics.Metrics
	sync    *Sync
}

func newHarness(t *testing.T, baseURL string) *harness {
	t.Helper()
	client, err := api.NewClient(baseURL, api.WithTimeout(5*time.Second))
	require.NoError(t, err)

	_, m := metrics.NewRegistry()
	h := &harness{
		kv:      session.NewMemoryKV(),
		notes:   NewChannelNotifier(16, m),
		metrics: m,
	}
	h.sync = New(client, session.NewStore(h.kv),
		WithNotifier(h.notes),
		WithMetrics(m),
	)
	return h
}

func loggedIn(t *testing.T, srv *apitest.Server, email string) *harness {
	t.Helper()
	h := newHarness(t, srv.URL)
	h.srv = srv
	_, err := h.sync.Authenticate(context.Background(), email, apitest.Password)
	require.NoError(t, err)
	h.notes.Drain()
	return h
}

func seedPending(srv *apitest.Server, title string) int64 {
	return srv.Seed(domain.ApprovalRequest{
		Title:            title,
		Description:      title + " please",
		RequesterEmail:   "l1@example.com",
		WorkflowSnapshot: []string{"L1", "L2", "L3"},
	})
}

func closedURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

func lastError(t *testing.T, n *ChannelNotifier) Notification {
	t.Helper()
	var found *Notification
	for _, note := range n.Drain() {
		if note.Level == LevelError {
			note := note
			found = &note
		}
	}
	require.NotNil(t, found, "expected an error notification")
	return *found
}

func TestAuthenticateRequesterLandsOnMyRequests(t *testing.T) {
	srv := apitest.New(t)
	h := newHarness(t, srv.URL)

	sess, err := h.sync.Authenticate(context.Background(), "l1@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRequester, sess.Role())
	assert.Equal(t, "l1@example.com", sess.User.Email)
	assert.NotEmpty(t, sess.Token)

	view, err := h.sync.HomeView()
	require.NoError(t, err)
	assert.Equal(t, domain.ViewMyRequests, view)

	// The session survives a restart over the same store.
	client, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	restarted := New(client, session.NewStore(h.kv))
	restored, err := restarted.Restore()
	require.NoError(t, err)
	assert.Equal(t, sess.Token, restored.Token)
	assert.Equal(t, sess.Token, client.Token())

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Actions.WithLabelValues("login", "ok")))
}

func TestHomeViewPerRole(t *testing.T) {
	srv := apitest.New(t)
	tests := map[string]domain.View{
		"l0@example.com":    domain.ViewDashboard,
		"l1@example.com":    domain.ViewMyRequests,
		"l2@example.com":    domain.ViewInbox,
		"l3@example.com":    domain.ViewInbox,
		"admin@example.com": domain.ViewWorkflow,
	}
	for email, want := range tests {
		t.Run(email, func(t *testing.T) {
			h := loggedIn(t, srv, email)
			got, err := h.sync.HomeView()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestAuthenticateAcceptsTokenField(t *testing.T) {
	srv := apitest.New(t, apitest.WithTokenField("token"))
	h := newHarness(t, srv.URL)

	sess, err := h.sync.Authenticate(context.Background(), "l2@example.com", "password")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
}

func TestAuthenticateBadCredentials(t *testing.T) {
	srv := apitest.New(t)
	h := newHarness(t, srv.URL)

	_, err := h.sync.Authenticate(context.Background(), "l1@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, clierrors.ErrAuth)

	ce, ok := clierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "Incorrect email or password", ce.Message)
	assert.Equal(t, http.StatusUnauthorized, ce.Status)

	note := lastError(t, h.notes)
	assert.Equal(t, "Incorrect email or password", note.Message)
	assert.Equal(t, clierrors.KindAuth, note.Kind)

	assert.Equal(t, 0, h.kv.Len())
	_, ok = h.sync.Session()
	assert.False(t, ok)
}

func TestAuthenticateRequiresCredentials(t *testing.T) {
	srv := apitest.New(t)
	h := newHarness(t, srv.URL)

	for _, creds := range [][2]string{{"  ", ""}, {"l1@example.com", ""}, {"", apitest.Password}} {
		_, err := h.sync.Authenticate(context.Background(), creds[0], creds[1])
		require.Error(t, err)
		assert.ErrorIs(t, err, clierrors.ErrAuth)
		ce, ok := clierrors.As(err)
		require.True(t, ok)
		assert.Equal(t, clierrors.ErrCodeAuthMissing, ce.Code)
	}
	assert.Empty(t, srv.Calls())
	assert.Equal(t, "email and password required", lastError(t, h.notes).Message)
}

func TestAuthenticateUnreachable(t *testing.T) {
	h := newHarness(t, closedURL())

	_, err := h.sync.Authenticate(context.Background(), "l1@example.com", "password")
	require.Error(t, err)
	assert.ErrorIs(t, err, clierrors.ErrAuth)
	assert.ErrorIs(t, err, clierrors.ErrConnectivity)
	assert.Equal(t, "cannot reach the approval server", lastError(t, h.notes).Message)
}

func TestRestoreWithoutSession(t *testing.T) {
	h := newHarness(t, apitest.New(t).URL)
	_, err := h.sync.Restore()
	require.Error(t, err)
	ce, ok := clierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, clierrors.ErrCodeAuthRequired, ce.Code)
}

func TestRestoreDropsExpiredToken(t *testing.T) {
	srv := apitest.New(t)
	h := newHarness(t, srv.URL)
	store := session.NewStore(h.kv)
	require.NoError(t, store.Save(session.Session{
		Token: srv.IssueToken("l2@example.com", -time.Minute),
		User:  domain.User{Email: "l2@example.com", Role: domain.RoleManager},
	}))

	_, err := h.sync.Restore()
	assert.ErrorIs(t, err, clierrors.ErrAuth)
	assert.Equal(t, 0, h.kv.Len())
}

func TestLogoutClearsEverything(t *testing.T) {
	srv := apitest.New(t)
	h := loggedIn(t, srv, "admin@example.com")
	_, err := h.sync.MoveUp(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, h.sync.Logout())
	assert.Equal(t, 0, h.kv.Len())
	_, ok := h.sync.Session()
	assert.False(t, ok)
	assert.Nil(t, h.sync.Draft())

	_, err = h.sync.HomeView()
	assert.ErrorIs(t, err, clierrors.ErrAuth)
}

func TestSubmitRequestPrependsEchoWithoutRefetch(t *testing.T) {
	srv := apitest.New(t)
	h := loggedIn(t, srv, "l1@example.com")
	ctx := context.Background()

	seedPending(srv, "Monitor")
	_, err := h.sync.MyRequests(ctx)
	require.NoError(t, err)
	srv.ResetCalls()

	created, err := h.sync.SubmitRequest(ctx, "Laptop", "Need a new laptop")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, 0, created.CurrentStage)
	assert.Equal(t, []string{"L1", "L2", "L3"}, created.WorkflowSnapshot)
	assert.Equal(t, "At L2", h.sync.StageLabel(*created))
	assert.Equal(t, "l1@example.com", created.RequesterEmail)

	cached := h.sync.CachedMyRequests()
	require.Len(t, cached, 2)
	assert.Equal(t, created.ID, cached[0].ID)
	assert.Equal(t, "Monitor", cached[1].Title)

	assert.Equal(t, RequestForm{}, h.sync.Form())
	assert.Equal(t, []string{apitest.OpCreateRequest}, srv.Calls())
}

func TestSubmitRequestValidation(t *testing.T) {
	srv := apitest.New(t)
	h := loggedIn(t, srv, "l1@example.com")
	srv.ResetCalls()

	_, err := h.sync.SubmitRequest(context.Background(), "Laptop", "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, clierrors.ErrValidation)
	assert.Equal(t, "title and description required", clierrors.UserMessage(err))

	assert.Empty(t, srv.Calls())
	assert.Equal(t, RequestForm{Title: "Laptop", Description: "   "}, h.sync.Form())
}

func TestSubmitRequestServerFailureKeepsState(t *testing.T) {
	srv := apitest.New(t)
	h := loggedIn(t, srv, "l1@example.com")
	srv.FailNext(apitest.OpCreateRequest, http.StatusInternalServerError, "")

	_, err := h.sync.SubmitRequest(context.Background(), "Laptop", "Need a new laptop")
	require.Error(t, err)
	assert.ErrorIs(t, err, clierrors.ErrAction)
	assert.Equal(t, "Failed to create request", clierrors.UserMessage(err))

	assert.Empty(t, h.sync.CachedMyRequests())
	assert.Equal(t, "Laptop", h.sync.Form().Title)
}

func TestSubmitRequestForbiddenForApprover(t *testing.T) {
	srv := apitest.New(t)
	h := loggedIn(t, srv, "l2@example.com")
	srv.ResetCalls()

	_, err := h.sync.SubmitRequest(context.Background(), "Laptop", "Need a new laptop")
	assert.ErrorIs(t, err, clierrors.ErrAuth)
	assert.Empty(t, srv.Calls())
}

func TestMyRequestsKeepsServerOrder(t *testing.T) {
	srv := apitest.New(t)
	first := seedPending(srv, "First")
	second := seedPending(srv, "Second")
	h := loggedIn(t, srv, "l1@example.com")

	got, err := h.sync.MyRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	// The fake answers newest first; the client must not re-sort.
	assert.Equal(t, second, got[0].ID)
	assert.Equal(t, first, got[1].ID)
}

func TestMyRequestsUnreachableLeavesCache(t *testing.T) {
	srv := apitest.New(t)
	seedPending(srv, "First")
	h := loggedIn(t, srv, "l1@example.com")
	_, err := h.sync.MyRequests(context.Background())
	require.NoError(t, err)

	srv.Close()
	_, err = h.sync.MyRequests(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, clierrors.ErrFetch)
	assert.ErrorIs(t, err, clierrors.ErrConnectivity)
	assert.Len(t, h.sync.CachedMyRequests(), 1)
}

func TestApproveMovesRequestToNextStage(t *testing.T) {
	srv := apitest.New(t)
	id := seedPending(srv, "Laptop")
	ctx := context.Background()

	l2 := loggedIn(t, srv, "l2@example.com")
	pending, err := l2.sync.PendingFor(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, []domain.Action{domain.ActionApprove, domain.ActionReject}, l2.sync.PermittedActions(pending[0]))

	selected, err := l2.sync.Select(id)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", selected.Title)

	srv.ResetCalls()
	require.NoError(t, l2.sync.Act(ctx, id, domain.ActionApprove, "ok"))

	// The refetch is issued only after the action answered.
	assert.Equal(t, []string{apitest.OpAct, apitest.OpPendingFor}, srv.Calls())
	assert.Empty(t, l2.sync.CachedPending())
	_, active := l2.sync.Active()
	assert.False(t, active)

	l3 := loggedIn(t, srv, "l3@example.com")
	pending, err = l3.sync.PendingFor(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, 2, pending[0].CurrentStage)
	assert.Equal(t, "At L3", l3.sync.StageLabel(pending[0]))

	stored, ok := srv.Request(id)
	require.True(t, ok)
	require.Len(t, stored.History, 1)
	assert.Equal(t, "ok", stored.History[0].Comment)

	assert.Equal(t, 1.0, testutil.ToFloat64(l2.metrics.Actions.WithLabelValues("approve", "ok")))
}

func TestApproveTwiceDoesNotDoubleAdvance(t *testing.T) {
	srv := apitest.New(t)
	id := seedPending(srv, "Laptop")
	ctx := context.Background()
	l2 := loggedIn(t, srv, "l2@example.com")

	require.NoError(t, l2.sync.Act(ctx, id, domain.ActionApprove, ""))
	err := l2.sync.Act(ctx, id, domain.ActionApprove, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, clierrors.ErrAction)
	assert.Equal(t, "Not your turn to approve", clierrors.UserMessage(err))

	stored, _ := srv.Request(id)
	assert.Equal(t, 2, stored.CurrentStage)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestActFailurePreservesListAndComment(t *testing.T) {
	srv := apitest.New(t)
	id := seedPending(srv, "Laptop")
	ctx := context.Background()
	l2 := loggedIn(t, srv, "l2@example.com")
	_, err := l2.sync.PendingFor(ctx)
	require.NoError(t, err)

	srv.FailNext(apitest.OpAct, http.StatusBadRequest, "Request is not pending")
	srv.ResetCalls()
	err = l2.sync.Act(ctx, id, domain.ActionReject, "budget")
	require.Error(t, err)
	assert.Equal(t, "Request is not pending", clierrors.UserMessage(err))
	assert.Equal(t, "Request is not pending", lastError(t, l2.notes).Message)

	assert.Equal(t, []string{apitest.OpAct}, srv.Calls(), "no refetch after a failure")
	require.Len(t, l2.sync.CachedPending(), 1)
	assert.Equal(t, "budget", l2.sync.Comment(id))

	// Retry succeeds and drops the kept comment.
	require.NoError(t, l2.sync.Act(ctx, id, domain.ActionReject, l2.sync.Comment(id)))
	assert.Empty(t, l2.sync.Comment(id))
	stored, _ := srv.Request(id)
	assert.Equal(t, domain.StatusRejected, stored.Status)
	assert.Equal(t, "Rejected", stored.StageLabel())
}

func TestActFailureKeepsCommentForNextRun(t *testing.T) {
	srv := apitest.New(t)
	id := seedPending(srv, "Laptop")
	ctx := context.Background()
	l2 := loggedIn(t, srv, "l2@example.com")

	srv.FailNext(apitest.OpAct, http.StatusServiceUnavailable, "")
	require.Error(t, l2.sync.Act(ctx, id, domain.ActionApprove, "within budget"))

	// A later run over the same store sees the comment.
	client, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	next := New(client, session.NewStore(l2.kv))
	_, err = next.Restore()
	require.NoError(t, err)
	assert.Equal(t, "within budget", next.Comment(id))

	require.NoError(t, next.Act(ctx, id, domain.ActionApprove, next.Comment(id)))
	assert.Empty(t, next.Comment(id))
	comment, err := session.NewStore(l2.kv).Comment(id)
	require.NoError(t, err)
	assert.Empty(t, comment)

	stored, _ := srv.Request(id)
	require.Len(t, stored.History, 1)
	assert.Equal(t, "within budget", stored.History[0].Comment)
}

func TestActFallbackMessageWithoutDetail(t *testing.T) {
	srv := apitest.New(t)
	id := seedPending(srv, "Laptop")
	l2 := loggedIn(t, srv, "l2@example.com")

	srv.FailNext(apitest.OpAct, http.StatusInternalServerError, "")
	err := l2.sync.Act(context.Background(), id, domain.ActionApprove, "")
	assert.Equal(t, "Failed to approve request", clierrors.UserMessage(err))
}

func TestActRefetchFailureDropsRequestLocally(t *testing.T) {
	srv := apitest.New(t)
	id := seedPending(srv, "Laptop")
	other := seedPending(srv, "Chair")
	ctx := context.Background()
	l2 := loggedIn(t, srv, "l2@example.com")
	_, err := l2.sync.PendingFor(ctx)
	require.NoError(t, err)

	srv.FailNext(apitest.OpPendingFor, http.StatusServiceUnavailable, "")
	require.NoError(t, l2.sync.Act(ctx, id, domain.ActionApprove, ""))

	cached := l2.sync.CachedPending()
	require.Len(t, cached, 1)
	assert.Equal(t, other, cached[0].ID)

	note := lastError(t, l2.notes)
	assert.Equal(t, clierrors.KindFetch, note.Kind)
	assert.Equal(t, "Failed to load pending requests", note.Message)
}

func TestActInFlightGuard(t *testing.T) {
	srv := apitest.New(t)
	id := seedPending(srv, "Laptop")
	ctx := context.Background()
	l2 := loggedIn(t, srv, "l2@example.com")

	release := make(chan struct{})
	srv.Intercept(apitest.OpAct, func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Request approved successfully"}`))
	})

	done := make(chan error, 1)
	go func() { done <- l2.sync.Act(ctx, id, domain.ActionApprove, "") }()
	require.Eventually(t, func() bool { return l2.sync.InFlight(id) }, 2*time.Second, 5*time.Millisecond)

	err := l2.sync.Act(ctx, id, domain.ActionReject, "")
	require.Error(t, err)
	ce, ok := clierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, clierrors.ErrCodeActionInProgress, ce.Code)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, l2.sync.InFlight(id))
}

func TestActForbiddenForRequester(t *testing.T) {
	srv := apitest.New(t)
	id := seedPending(srv, "Laptop")
	l1 := loggedIn(t, srv, "l1@example.com")
	srv.ResetCalls()

	err := l1.sync.Act(context.Background(), id, domain.ActionApprove, "")
	require.Error(t, err)
	ce, _ := clierrors.As(err)
	assert.Equal(t, clierrors.ErrCodeAuthForbidden, ce.Code)
	assert.Empty(t, srv.Calls())
}

func TestSelectUnknownRequest(t *testing.T) {
	srv := apitest.New(t)
	l2 := loggedIn(t, srv, "l2@example.com")
	_, err := l2.sync.Select(42)
	assert.ErrorIs(t, err, clierrors.ErrValidation)
}

func TestRequestDetailIncludesHistory(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()
	l1 := loggedIn(t, srv, "l1@example.com")
	created, err := l1.sync.SubmitRequest(ctx, "Laptop", "Need a new laptop")
	require.NoError(t, err)

	got, err := l1.sync.RequestDetail(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.Equal(t, "created", got.History[0].Action)

	active, ok := l1.sync.Active()
	require.True(t, ok)
	assert.Equal(t, created.ID, active.ID)

	_, err = l1.sync.RequestDetail(ctx, 999)
	assert.ErrorIs(t, err, clierrors.ErrFetch)
	assert.Equal(t, "Request not found", clierrors.UserMessage(err))
}

func TestDashboardSummary(t *testing.T) {
	for name, opts := range map[string][]apitest.Option{
		"nested": nil,
		"flat":   {apitest.WithFlatDashboard()},
	} {
		t.Run(name, func(t *testing.T) {
			srv := apitest.New(t, opts...)
			seedPending(srv, "One")
			srv.Seed(domain.ApprovalRequest{Title: "Two", Status: domain.StatusApproved, WorkflowSnapshot: []string{"L2"}, CurrentStage: 1})
			l0 := loggedIn(t, srv, "l0@example.com")

			d, err := l0.sync.DashboardSummary(context.Background())
			require.NoError(t, err)
			assert.Equal(t, domain.Summary{Total: 2, Pending: 1, Approved: 1}, d.Summary)
			assert.Len(t, d.Recent, 2)
		})
	}
}

func TestDashboardForbiddenForApprover(t *testing.T) {
	srv := apitest.New(t)
	l2 := loggedIn(t, srv, "l2@example.com")
	_, err := l2.sync.DashboardSummary(context.Background())
	assert.ErrorIs(t, err, clierrors.ErrAuth)
}

func TestNotLoggedIn(t *testing.T) {
	h := newHarness(t, apitest.New(t).URL)
	_, err := h.sync.PendingFor(context.Background())
	assert.ErrorIs(t, err, clierrors.ErrAuth)
	assert.Nil(t, h.sync.PermittedActions(domain.ApprovalRequest{}))
}

func TestStalePendingListDoesNotOverwriteRefetch(t *testing.T) {
	srv := apitest.New(t)
	id := seedPending(srv, "Laptop")
	ctx := context.Background()
	l2 := loggedIn(t, srv, "l2@example.com")

	before, ok := srv.Request(id)
	require.True(t, ok)
	body, err := json.Marshal([]domain.ApprovalRequest{before})
	require.NoError(t, err)

	started, release := make(chan struct{}), make(chan struct{})
	srv.Intercept(apitest.OpPendingFor, func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	slow := make(chan error, 1)
	go func() {
		_, err := l2.sync.PendingFor(ctx)
		slow <- err
	}()
	<-started

	require.NoError(t, l2.sync.Act(ctx, id, domain.ActionApprove, ""))
	assert.Empty(t, l2.sync.CachedPending())

	close(release)
	require.NoError(t, <-slow)
	assert.Empty(t, l2.sync.CachedPending(), "list fetched before the approval must not come back")

	reqs, err := l2.sync.PendingFor(ctx)
	require.NoError(t, err)
	assert.Empty(t, reqs)
}
