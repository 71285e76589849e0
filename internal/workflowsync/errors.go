package workflowsync

import (
	"errors"
	"net/http"

	"github.com/felixgeelhaar/approvals/internal/api"
	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
)

// operation describes how failures of one remote call are reported.
type operation struct {
	name     string
	kind     clierrors.Kind
	code     clierrors.ErrorCode
	fallback string
}

var (
	opLogin = operation{"login", clierrors.KindAuth, clierrors.ErrCodeAuthRejected, "Login failed"}

	opMyRequests = operation{"my_requests", clierrors.KindFetch, clierrors.ErrCodeFetchFailed, "Failed to load your requests"}
	opPending    = operation{"pending_for", clierrors.KindFetch, clierrors.ErrCodeFetchFailed, "Failed to load pending requests"}
	opDetail     = operation{"get_request", clierrors.KindFetch, clierrors.ErrCodeFetchFailed, "Failed to load request"}
	opDashboard  = operation{"dashboard", clierrors.KindFetch, clierrors.ErrCodeFetchFailed, "Failed to load dashboard"}
	opGetFlow    = operation{"get_workflow", clierrors.KindFetch, clierrors.ErrCodeFetchFailed, "Failed to load workflow"}

	opSubmit  = operation{"create_request", clierrors.KindAction, clierrors.ErrCodeSubmitFailed, "Failed to create request"}
	opApprove = operation{"approve", clierrors.KindAction, clierrors.ErrCodeActionRejected, "Failed to approve request"}
	opReject  = operation{"reject", clierrors.KindAction, clierrors.ErrCodeActionRejected, "Failed to reject request"}
	opPutFlow = operation{"put_workflow", clierrors.KindAction, clierrors.ErrCodeWorkflowSave, "Failed to save workflow"}
)

// classify turns a raw transport error into a ClientError for op. The
// server's detail is used verbatim when present.
func classify(op operation, err error) *clierrors.ClientError {
	if err == nil {
		return nil
	}
	if ce, ok := clierrors.As(err); ok {
		return ce
	}

	if api.IsTransport(err) {
		return clierrors.NewConnectivityError(op.kind, err)
	}

	if se, ok := api.AsStatus(err); ok {
		msg := se.Detail
		if msg == "" {
			msg = op.fallback
		}
		ce := clierrors.Wrap(op.kind, op.code, msg, err).WithStatus(se.Status)
		switch se.Status {
		case http.StatusUnauthorized:
			if op.kind != clierrors.KindAuth {
				ce.WithSuggestion("Your session may have expired; run 'approvals auth login'")
			} else {
				ce.WithSuggestion("Check the email and password and try again")
			}
		case http.StatusForbidden:
			ce.WithSuggestion("This account's role cannot perform the operation")
		}
		return ce
	}

	var de *api.DecodeError
	if errors.As(err, &de) {
		code := op.code
		if op.kind == clierrors.KindFetch {
			code = clierrors.ErrCodeFetchDecode
		}
		return clierrors.Wrap(op.kind, code, op.fallback, err)
	}

	return clierrors.Wrap(op.kind, op.code, op.fallback, err)
}
