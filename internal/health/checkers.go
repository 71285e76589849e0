package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/approvals/internal/api"
	"github.com/felixgeelhaar/approvals/internal/session"
)

// FuncChecker adapts a function that fails with an error.
type FuncChecker struct {
	name string
	ok   string
	fn   func(context.Context) error
}

// NewFuncChecker reports ok when fn returns nil and unhealthy otherwise.
func NewFuncChecker(name, ok string, fn func(context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, ok: ok, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) *Result {
	if err := c.fn(ctx); err != nil {
		return Unhealthy(err.Error())
	}
	return Healthy(c.ok)
}

// StateDirChecker verifies sessions and drafts can be written.
type StateDirChecker struct {
	dir string
}

// NewStateDirChecker checks dir.
func NewStateDirChecker(dir string) *StateDirChecker {
	return &StateDirChecker{dir: dir}
}

func (c *StateDirChecker) Name() string { return "state-dir" }

// Check creates the directory if needed and writes a probe file into it.
// A directory other users can read is reported as degraded because it
// holds access tokens.
func (c *StateDirChecker) Check(ctx context.Context) *Result {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return Unhealthy("state directory cannot be created").
			WithDetail("path", c.dir).
			WithDetail("error", err.Error())
	}
	f, err := os.CreateTemp(c.dir, ".probe-*")
	if err != nil {
		return Unhealthy("state directory is not writable").
			WithDetail("path", c.dir).
			WithDetail("error", err.Error())
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	info, err := os.Stat(c.dir)
	if err == nil && info.Mode().Perm()&0o077 != 0 {
		return Degraded(fmt.Sprintf("state directory is accessible by other users (%s)", info.Mode().Perm())).
			WithDetail("path", c.dir).
			WithDetail("suggestion", "chmod 700 "+c.dir)
	}
	return Healthy("writable").WithDetail("path", c.dir)
}

// ServerChecker probes the approval API. Any HTTP answer, including 401,
// proves the server is reachable.
type ServerChecker struct {
	origin string
	probe  func(context.Context) error
}

// NewServerChecker probes client with an unauthenticated workflow read.
func NewServerChecker(client *api.Client) *ServerChecker {
	return &ServerChecker{
		origin: client.Origin(),
		probe: func(ctx context.Context) error {
			_, err := client.GetWorkflow(ctx)
			return err
		},
	}
}

func (c *ServerChecker) Name() string { return "server" }

func (c *ServerChecker) Check(ctx context.Context) *Result {
	start := time.Now()
	err := c.probe(ctx)
	latency := time.Since(start)

	if err == nil {
		return Healthy("reachable").WithDetail("origin", c.origin).WithLatency(latency)
	}
	if se, ok := api.AsStatus(err); ok {
		if se.Status >= 500 {
			return Degraded(fmt.Sprintf("server answered %d", se.Status)).
				WithDetail("origin", c.origin).
				WithLatency(latency)
		}
		return Healthy(fmt.Sprintf("reachable (answered %d)", se.Status)).
			WithDetail("origin", c.origin).
			WithLatency(latency)
	}
	if api.IsTransport(err) {
		return Unhealthy("server unreachable").
			WithDetail("origin", c.origin).
			WithDetail("error", err.Error()).
			WithDetail("suggestion", "Check --api-url or APPROVALS_API_URL").
			WithLatency(latency)
	}
	return Degraded("unexpected response").
		WithDetail("origin", c.origin).
		WithDetail("error", err.Error()).
		WithLatency(latency)
}

// SessionChecker reports whether a usable session is stored.
type SessionChecker struct {
	store *session.Store
	now   func() time.Time
}

// NewSessionChecker inspects store.
func NewSessionChecker(store *session.Store) *SessionChecker {
	return &SessionChecker{store: store, now: time.Now}
}

func (c *SessionChecker) Name() string { return "session" }

func (c *SessionChecker) Check(ctx context.Context) *Result {
	sess, err := c.store.Load()
	if errors.Is(err, session.ErrNoSession) {
		return Degraded("not logged in").
			WithDetail("suggestion", "Run 'approvals auth login'")
	}
	if err != nil {
		return Unhealthy("session unreadable").WithDetail("error", err.Error())
	}

	r := Healthy(fmt.Sprintf("logged in as %s (%s)", sess.User.Email, sess.Role()))
	if exp, ok := session.TokenExpiry(sess.Token); ok {
		r.WithDetail("expires_in", exp.Sub(c.now()).Round(time.Second).String())
	}
	return r
}
