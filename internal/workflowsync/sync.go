// Package workflowsync is the client-side state layer of the approval
// workflow. It owns the session and the cached lists, derives display state
// from each request's workflow snapshot, and sequences mutations with the
// refetches that reconcile them against the server.
//
// Every failure is returned as a *errors.ClientError and also delivered to
// the Notifier. Caches are left untouched when a call fails.
package workflowsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/approvals/internal/api"
	"github.com/felixgeelhaar/approvals/internal/domain"
	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
	"github.com/felixgeelhaar/approvals/internal/log"
	"github.com/felixgeelhaar/approvals/internal/metrics"
	"github.com/felixgeelhaar/approvals/internal/session"
	"github.com/felixgeelhaar/approvals/internal/telemetry"
)

// RequestForm holds the create-request inputs between attempts.
type RequestForm struct {
	Title       string
	Description string
}

// Sync is the workflow client. It is safe for concurrent use; no lock is
// held while a network call is in progress.
type Sync struct {
	client   *api.Client
	store    *session.Store
	logger   *log.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	now      func() time.Time

	mu         sync.Mutex
	session    *session.Session
	myRequests []domain.ApprovalRequest
	pending    []domain.ApprovalRequest
	active     *domain.ApprovalRequest
	draft      domain.WorkflowOrder
	form       RequestForm
	comments   map[int64]string
	inFlight   map[int64]struct{}
	// pendingGen counts completed mutations. A pending fetch dispatched
	// under an older generation is not installed.
	pendingGen uint64
}

// Option configures a Sync.
type Option func(*Sync)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Sync) { s.logger = l }
}

// WithMetrics records action outcomes and error codes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sync) { s.metrics = m }
}

// WithNotifier sets where notifications go.
func WithNotifier(n Notifier) Option {
	return func(s *Sync) { s.notifier = n }
}

// WithClock overrides time.Now for notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sync) { s.now = now }
}

// New creates a Sync over client, persisting the session in store.
func New(client *api.Client, store *session.Store, opts ...Option) *Sync {
	s := &Sync{
		client:   client,
		store:    store,
		logger:   log.Discard(),
		notifier: discardNotifier{},
		now:      time.Now,
		comments: make(map[int64]string),
		inFlight: make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate exchanges credentials for a session and persists it.
func (s *Sync) Authenticate(ctx context.Context, email, password string) (sess *session.Session, err error) {
	ctx, span := telemetry.StartSyncSpan(ctx, "authenticate")
	defer func() { telemetry.End(span, err) }()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, s.fail(clierrors.NewCredentialsRequiredError())
	}

	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, s.fail(classify(opLogin, err))
	}

	user := resp.User
	if user.Email == "" {
		user.Email = email
	}
	if err := user.Role.Validate(); err != nil {
		return nil, s.fail(clierrors.Wrap(clierrors.KindAuth, clierrors.ErrCodeAuthRejected, opLogin.fallback, err))
	}

	sess = &session.Session{Token: resp.BearerToken(), User: user}
	if err := s.store.Save(*sess); err != nil {
		return nil, s.fail(clierrors.NewStoreError("failed to persist session", err))
	}

	s.begin(sess)
	s.logger.Info("logged in", "email", user.Email, "role", user.Role.String())
	s.record("login", nil)
	out := *sess
	return &out, nil
}

// Restore rehydrates the persisted session. It returns a not-logged-in
// AuthError when nothing usable is stored; expired tokens are discarded.
func (s *Sync) Restore() (*session.Session, error) {
	sess, err := s.store.Load()
	if errors.Is(err, session.ErrNoSession) {
		return nil, clierrors.NewNotLoggedInError()
	}
	if err != nil {
		return nil, clierrors.NewStoreError("failed to read session", err)
	}
	if err := sess.User.Role.Validate(); err != nil {
		_ = s.store.Clear()
		return nil, clierrors.NewNotLoggedInError()
	}

	s.begin(sess)
	out := *sess
	return &out, nil
}

// Logout clears the persisted session, the workflow draft and every cache.
func (s *Sync) Logout() error {
	s.mu.Lock()
	s.session = nil
	s.reset()
	s.mu.Unlock()
	s.client.SetToken("")

	if err := s.store.Clear(); err != nil {
		return clierrors.NewStoreError("failed to clear session", err)
	}
	if err := s.store.ClearDraft(); err != nil {
		return clierrors.NewStoreError("failed to clear workflow draft", err)
	}
	if err := s.store.ClearComments(); err != nil {
		return clierrors.NewStoreError("failed to clear kept comments", err)
	}
	return nil
}

// Session returns a copy of the current session.
func (s *Sync) Session() (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, false
	}
	out := *s.session
	return &out, true
}

// HomeView returns the view the session role lands on.
func (s *Sync) HomeView() (domain.View, error) {
	sess, err := s.require()
	if err != nil {
		return "", err
	}
	view, err := sess.Role().HomeView()
	if err != nil {
		return "", clierrors.NewArgumentError(err.Error())
	}
	return view, nil
}

// StageLabel derives the display label of req from its own snapshot.
func (s *Sync) StageLabel(req domain.ApprovalRequest) string {
	return req.StageLabel()
}

// PermittedActions returns what the session may do with req. Without a
// session nothing is permitted.
func (s *Sync) PermittedActions(req domain.ApprovalRequest) []domain.Action {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return nil
	}
	return req.PermittedActions(sess.Role())
}

func (s *Sync) begin(sess *session.Session) {
	s.mu.Lock()
	s.session = sess
	s.reset()
	s.mu.Unlock()
	s.client.SetToken(sess.Token)
}

// reset drops every cache. Callers hold mu.
func (s *Sync) reset() {
	s.myRequests = nil
	s.pending = nil
	s.active = nil
	s.draft = nil
	s.form = RequestForm{}
	s.comments = make(map[int64]string)
}

// require returns the current session or a not-logged-in error.
func (s *Sync) require() (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, clierrors.NewNotLoggedInError()
	}
	return s.session, nil
}

// requireRole returns the session when allowed reports true for its role.
func (s *Sync) requireRole(allowed func(domain.Role) bool, what string) (*session.Session, error) {
	sess, err := s.require()
	if err != nil {
		return nil, err
	}
	if !allowed(sess.Role()) {
		return nil, clierrors.NewForbiddenError(sess.Role().String(), what)
	}
	return sess, nil
}

// fail notifies the user about ce and returns it.
func (s *Sync) fail(ce *clierrors.ClientError) error {
	if s.metrics != nil {
		s.metrics.RecordError(string(ce.Code))
	}
	s.logger.Debug("operation failed", "code", string(ce.Code), "error", ce.Error())
	s.notifier.Notify(Notification{
		Level:   LevelError,
		Kind:    ce.Kind,
		Code:    ce.Code,
		Message: ce.Message,
		At:      s.now(),
	})
	return ce
}

func (s *Sync) info(message string) {
	s.notifier.Notify(Notification{Level: LevelInfo, Message: message, At: s.now()})
}

// record counts a mutation outcome: "ok" or the error code.
func (s *Sync) record(action string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if ce, ok := clierrors.As(err); ok {
		outcome = string(ce.Code)
	} else if err != nil {
		outcome = "error"
	}
	s.metrics.RecordAction(action, outcome)
}

func idAttr(id int64) attribute.KeyValue {
	return attribute.Int64("request.id", id)
}
