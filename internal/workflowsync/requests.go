package workflowsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/approvals/internal/api"
	"github.com/felixgeelhaar/approvals/internal/domain"
	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
	"github.com/felixgeelhaar/approvals/internal/telemetry"
)

// MyRequests fetches the requests the caller created, in server order.
func (s *Sync) MyRequests(ctx context.Context) (reqs []domain.ApprovalRequest, err error) {
	if _, err := s.requireRole(domain.Role.CanSubmit, "list their requests"); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSyncSpan(ctx, "my_requests")
	defer func() { telemetry.End(span, err) }()

	fetched, err := s.client.MyRequests(ctx)
	if err != nil {
		return nil, s.fail(classify(opMyRequests, err))
	}

	s.mu.Lock()
	s.myRequests = fetched
	s.mu.Unlock()
	return cloneRequests(fetched), nil
}

// CachedMyRequests returns the last fetched or submitted list.
func (s *Sync) CachedMyRequests() []domain.ApprovalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRequests(s.myRequests)
}

// PendingFor fetches the requests awaiting the caller's role. The active
// detail is refreshed from the new list, or cleared when it left it.
func (s *Sync) PendingFor(ctx context.Context) (reqs []domain.ApprovalRequest, err error) {
	sess, err := s.requireRole(domain.Role.IsApprover, "review pending requests")
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSyncSpan(ctx, "pending_for")
	defer func() { telemetry.End(span, err) }()

	s.mu.Lock()
	gen := s.pendingGen
	s.mu.Unlock()

	fetched, err := s.client.PendingFor(ctx, sess.Role())
	if err != nil {
		return nil, s.fail(classify(opPending, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.installPending(gen, fetched) {
		s.logger.Debug("dropped stale pending list", "generation", gen, "current", s.pendingGen)
	}
	return cloneRequests(s.pending), nil
}

// CachedPending returns the last fetched pending list.
func (s *Sync) CachedPending() []domain.ApprovalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRequests(s.pending)
}

// installPending replaces the pending cache with a list fetched under
// generation gen, unless a mutation completed since. Callers hold mu.
func (s *Sync) installPending(gen uint64, reqs []domain.ApprovalRequest) bool {
	if gen != s.pendingGen {
		return false
	}
	s.setPending(reqs)
	return true
}

// setPending replaces the pending cache. Callers hold mu.
func (s *Sync) setPending(reqs []domain.ApprovalRequest) {
	s.pending = reqs
	if s.active == nil {
		return
	}
	for i := range reqs {
		if reqs[i].ID == s.active.ID {
			r := reqs[i]
			r.History = s.active.History
			s.active = &r
			return
		}
	}
	s.active = nil
}

// Select makes a request from the pending list the active detail.
func (s *Sync) Select(id int64) (domain.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pending {
		if s.pending[i].ID == id {
			r := s.pending[i]
			s.active = &r
			return r, nil
		}
	}
	return domain.ApprovalRequest{}, clierrors.NewArgumentError(fmt.Sprintf("request #%d is not in the pending list", id))
}

// Active returns the active detail, if one is selected.
func (s *Sync) Active() (domain.ApprovalRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return domain.ApprovalRequest{}, false
	}
	return *s.active, true
}

// RequestDetail fetches one request with its history and makes it the
// active detail.
func (s *Sync) RequestDetail(ctx context.Context, id int64) (req *domain.ApprovalRequest, err error) {
	if _, err := s.require(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSyncSpan(ctx, "request_detail", idAttr(id))
	defer func() { telemetry.End(span, err) }()

	fetched, err := s.client.GetRequest(ctx, id)
	if err != nil {
		return nil, s.fail(classify(opDetail, err))
	}

	s.mu.Lock()
	active := *fetched
	s.active = &active
	s.mu.Unlock()
	return fetched, nil
}

// SetForm stores the create-request inputs.
func (s *Sync) SetForm(title, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = RequestForm{Title: title, Description: description}
}

// Form returns the create-request inputs. They are cleared after a
// successful submission and kept after a failed one.
func (s *Sync) Form() RequestForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// SubmitRequest creates a request. Title and description must be
// non-blank. The server echo is prepended to the local list without a
// refetch and the form inputs are cleared.
func (s *Sync) SubmitRequest(ctx context.Context, title, description string) (req *domain.ApprovalRequest, err error) {
	sess, err := s.requireRole(domain.Role.CanSubmit, "create requests")
	if err != nil {
		return nil, err
	}
	s.SetForm(title, description)

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, s.fail(clierrors.NewFieldRequiredError("title", "description"))
	}

	ctx, span := telemetry.StartSyncSpan(ctx, "submit_request")
	defer func() { telemetry.End(span, err) }()

	created, err := s.client.CreateRequest(ctx, api.CreateRequest{
		Title:          title,
		Description:    description,
		RequesterEmail: sess.User.Email,
	})
	if err != nil {
		ce := classify(opSubmit, err)
		s.record("create", ce)
		return nil, s.fail(ce)
	}

	s.mu.Lock()
	s.myRequests = append([]domain.ApprovalRequest{*created}, s.myRequests...)
	s.form = RequestForm{}
	s.mu.Unlock()

	s.record("create", nil)
	s.info(fmt.Sprintf("Request #%d created", created.ID))
	return created, nil
}

// Comment returns the comment kept from a failed action on id. Comments
// from earlier runs are read from the session store.
func (s *Sync) Comment(id int64) string {
	s.mu.Lock()
	comment, ok := s.comments[id]
	s.mu.Unlock()
	if ok {
		return comment
	}
	comment, err := s.store.Comment(id)
	if err != nil {
		s.logger.Warn("failed to read kept comment", "request_id", id, "error", err)
		return ""
	}
	return comment
}

// Act approves or rejects a request.
//
// Only one mutation per request may be in flight. On success the pending
// list is refetched after the response arrives. If that refetch fails the
// request is dropped from the cached list and the fetch failure is
// notified, but the action still counts as done. A pending list fetched
// before the response is discarded when it lands. On failure the list is
// left as it was and the comment is kept for a retry, in memory and in
// the session store.
func (s *Sync) Act(ctx context.Context, id int64, action domain.Action, comment string) (err error) {
	sess, err := s.requireRole(domain.Role.IsApprover, "approve or reject requests")
	if err != nil {
		return err
	}
	if err := action.Validate(); err != nil {
		return clierrors.NewArgumentError(err.Error())
	}
	op := opApprove
	if action == domain.ActionReject {
		op = opReject
	}

	s.mu.Lock()
	if _, busy := s.inFlight[id]; busy {
		s.mu.Unlock()
		return s.fail(clierrors.NewActionInProgressError(id))
	}
	s.inFlight[id] = struct{}{}
	s.comments[id] = comment
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, id)
		s.mu.Unlock()
	}()

	ctx, span := telemetry.StartSyncSpan(ctx, "act", idAttr(id))
	defer func() { telemetry.End(span, err) }()

	result, err := s.client.Act(ctx, id, action, comment)
	if err != nil {
		ce := classify(op, err)
		s.record(action.String(), ce)
		if serr := s.store.SaveComment(id, comment); serr != nil {
			s.logger.Warn("failed to keep comment", "request_id", id, "error", serr)
		}
		return s.fail(ce)
	}

	s.mu.Lock()
	delete(s.comments, id)
	s.pendingGen++
	gen := s.pendingGen
	s.mu.Unlock()
	s.record(action.String(), nil)
	if serr := s.store.SaveComment(id, ""); serr != nil {
		s.logger.Warn("failed to drop kept comment", "request_id", id, "error", serr)
	}

	msg := result.Message
	if msg == "" {
		msg = fmt.Sprintf("Request #%d %s", id, action.PastTense())
	}
	s.info(msg)
	s.logger.Debug("action applied", "request_id", id, "action", action.String(), "role", sess.Role().String())

	fetched, ferr := s.client.PendingFor(ctx, sess.Role())
	if ferr != nil {
		s.mu.Lock()
		s.pending = withoutRequest(s.pending, id)
		if s.active != nil && s.active.ID == id {
			s.active = nil
		}
		s.mu.Unlock()
		_ = s.fail(classify(opPending, ferr))
		return nil
	}

	s.mu.Lock()
	s.installPending(gen, fetched)
	s.mu.Unlock()
	return nil
}

// InFlight reports whether a mutation for id is in progress.
func (s *Sync) InFlight(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

// DashboardSummary returns the server-computed aggregate unchanged.
func (s *Sync) DashboardSummary(ctx context.Context) (d *domain.Dashboard, err error) {
	if _, err := s.requireRole(domain.Role.CanViewDashboard, "view the dashboard"); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSyncSpan(ctx, "dashboard")
	defer func() { telemetry.End(span, err) }()

	d, err = s.client.Dashboard(ctx)
	if err != nil {
		return nil, s.fail(classify(opDashboard, err))
	}
	return d, nil
}

func cloneRequests(in []domain.ApprovalRequest) []domain.ApprovalRequest {
	if in == nil {
		return nil
	}
	out := make([]domain.ApprovalRequest, len(in))
	copy(out, in)
	return out
}

func withoutRequest(in []domain.ApprovalRequest, id int64) []domain.ApprovalRequest {
	out := make([]domain.ApprovalRequest, 0, len(in))
	for _, r := range in {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
