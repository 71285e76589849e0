package apitest

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

func TestLookupUser(t *testing.T) {
	tests := []struct {
		email string
		role  domain.Role
		ok    bool
	}{
		{"l0@example.com", domain.RoleViewer, true},
		{"L1@example.com", domain.RoleRequester, true},
		{"l2.manager@example.com", domain.RoleManager, true},
		{"l3@example.com", domain.RoleDirector, true},
		{"admin@example.com", domain.RoleAdmin, true},
		{"someone@example.com", "", false},
		{"l1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			u, ok := lookupUser(tt.email)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.role, u.Role)
		})
	}
}

func TestTokens(t *testing.T) {
	now := time.Date(2024, 10, 28, 9, 0, 0, 0, time.UTC)
	srv := New(t, WithClock(func() time.Time { return now }))

	valid := srv.IssueToken("l2@example.com", time.Hour)
	user, err := srv.tokens.verify(valid)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, user.Role)

	expired := srv.IssueToken("l2@example.com", -time.Minute)
	_, err = srv.tokens.verify(expired)
	assert.Error(t, err)

	assert.Empty(t, srv.IssueToken("nobody@example.com", time.Hour))
}

func TestContractValidation(t *testing.T) {
	srv := New(t)

	resp, err := http.PostForm(srv.URL+"/login", url.Values{"email": {"l1@example.com"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "password is required by the contract")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/requests/pending/L2", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPost, srv.URL+"/api/requests/1/action",
		strings.NewReader(`{"action":"escalate"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+srv.IssueToken("l2@example.com", time.Hour))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	assert.Equal(t, []string{OpLogin, OpPendingFor, OpAct}, srv.Calls())
}

func TestInterceptAndSeed(t *testing.T) {
	srv := New(t)
	id := srv.Seed(domain.ApprovalRequest{Title: "Laptop", WorkflowSnapshot: []string{"L1", "L2"}})
	assert.Equal(t, int64(1), id)

	got, ok := srv.Request(id)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "At L2", got.StageLabel())

	srv.FailNext(OpGetWorkflow, http.StatusServiceUnavailable, "")
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/workflow", nil)
	req.Header.Set("Authorization", "Bearer "+srv.IssueToken("admin@example.com", time.Hour))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/workflow", nil)
	req.Header.Set("Authorization", "Bearer "+srv.IssueToken("admin@example.com", time.Hour))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "interceptors are used once")
}
