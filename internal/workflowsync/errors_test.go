package workflowsync

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/approvals/internal/api"
	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		op      operation
		err     error
		code    clierrors.ErrorCode
		kind    clierrors.Kind
		message string
		status  int
	}{
		{
			name:    "detail verbatim",
			op:      opApprove,
			err:     &api.StatusError{Op: "act", Status: http.StatusForbidden, Detail: "Not your turn to approve"},
			code:    clierrors.ErrCodeActionRejected,
			kind:    clierrors.KindAction,
			message: "Not your turn to approve",
			status:  http.StatusForbidden,
		},
		{
			name:    "fallback without detail",
			op:      opDashboard,
			err:     &api.StatusError{Op: "dashboard", Status: http.StatusBadGateway},
			code:    clierrors.ErrCodeFetchFailed,
			kind:    clierrors.KindFetch,
			message: "Failed to load dashboard",
			status:  http.StatusBadGateway,
		},
		{
			name:    "transport",
			op:      opSubmit,
			err:     &api.TransportError{Op: "create_request", Err: context.DeadlineExceeded},
			code:    clierrors.ErrCodeUnreachable,
			kind:    clierrors.KindAction,
			message: "cannot reach the approval server",
		},
		{
			name:    "decode on fetch",
			op:      opPending,
			err:     &api.DecodeError{Op: "pending_for", Err: errors.New("bad json")},
			code:    clierrors.ErrCodeFetchDecode,
			kind:    clierrors.KindFetch,
			message: "Failed to load pending requests",
		},
		{
			name:    "decode on login",
			op:      opLogin,
			err:     &api.DecodeError{Op: "login", Err: errors.New("no token")},
			code:    clierrors.ErrCodeAuthRejected,
			kind:    clierrors.KindAuth,
			message: "Login failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := classify(tt.op, tt.err)
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.message, ce.Message)
			assert.Equal(t, tt.status, ce.Status)
			assert.ErrorIs(t, ce, tt.err)
		})
	}
}

func TestClassifyPassesClientErrorsThrough(t *testing.T) {
	in := clierrors.NewNotLoggedInError()
	assert.Same(t, in, classify(opPending, in))
	assert.Nil(t, classify(opPending, nil))
}

func TestChannelNotifierDropsWhenFull(t *testing.T) {
	n := NewChannelNotifier(1, nil)
	n.Notify(Notification{Message: "first"})
	n.Notify(Notification{Message: "second"})

	got := n.Drain()
	assert.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Message)
	assert.Empty(t, n.Drain())
}

func TestNotifierFunc(t *testing.T) {
	var got []string
	n := NotifierFunc(func(note Notification) { got = append(got, note.Message) })
	n.Notify(Notification{Message: "hello"})
	assert.Equal(t, []string{"hello"}, got)
}
