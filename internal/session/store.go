package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

// Keys used in the KV.
const (
	KeyToken         = "token"
	KeyUser          = "user"
	KeyWorkflowDraft = "workflow_draft"
	KeyComments      = "comments"
)

// Store reads and writes session state through a KV.
type Store struct {
	kv  KV
	now func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore wraps kv.
func NewStore(kv KV, opts ...StoreOption) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists both entries of sess.
func (s *Store) Save(sess Session) error {
	if sess.Token == "" {
		return fmt.Errorf("refusing to persist a session without a token")
	}
	if err := s.setJSON(KeyToken, sess.Token); err != nil {
		return err
	}
	return s.setJSON(KeyUser, sess.User)
}

// Load returns the persisted session. It returns ErrNoSession when either
// entry is missing or the token has expired; in both cases the leftover
// entries are removed.
func (s *Store) Load() (*Session, error) {
	var sess Session
	hasToken, err := s.getJSON(KeyToken, &sess.Token)
	if err != nil {
		return nil, err
	}
	hasUser, err := s.getJSON(KeyUser, &sess.User)
	if err != nil {
		return nil, err
	}

	if !hasToken && !hasUser {
		return nil, ErrNoSession
	}
	if !hasToken || !hasUser || sess.Token == "" || Expired(sess.Token, s.now()) {
		if err := s.Clear(); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Clear removes the token and user entries.
func (s *Store) Clear() error {
	if err := s.kv.Delete(KeyToken, KeyUser); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Draft returns the admin's unsaved workflow order, if one is stored.
func (s *Store) Draft() (domain.WorkflowOrder, bool, error) {
	var order domain.WorkflowOrder
	ok, err := s.getJSON(KeyWorkflowDraft, &order)
	if err != nil || !ok {
		return nil, false, err
	}
	return order, true, nil
}

// SaveDraft stores order as the pending workflow draft.
func (s *Store) SaveDraft(order domain.WorkflowOrder) error {
	if order == nil {
		order = domain.WorkflowOrder{}
	}
	return s.setJSON(KeyWorkflowDraft, order)
}

// ClearDraft drops the pending workflow draft.
func (s *Store) ClearDraft() error {
	if err := s.kv.Delete(KeyWorkflowDraft); err != nil {
		return fmt.Errorf("failed to clear workflow draft: %w", err)
	}
	return nil
}

// Comment returns the comment kept from a failed action on request id.
func (s *Store) Comment(id int64) (string, error) {
	comments, err := s.comments()
	if err != nil {
		return "", err
	}
	return comments[strconv.FormatInt(id, 10)], nil
}

// SaveComment keeps comment for a retry of the action on id. An empty
// comment removes the entry.
func (s *Store) SaveComment(id int64, comment string) error {
	comments, err := s.comments()
	if err != nil {
		return err
	}
	key := strconv.FormatInt(id, 10)
	if comment == "" {
		if _, ok := comments[key]; !ok {
			return nil
		}
		delete(comments, key)
	} else {
		comments[key] = comment
	}
	if len(comments) == 0 {
		return s.ClearComments()
	}
	return s.setJSON(KeyComments, comments)
}

// ClearComments drops every kept comment.
func (s *Store) ClearComments() error {
	if err := s.kv.Delete(KeyComments); err != nil {
		return fmt.Errorf("failed to clear comments: %w", err)
	}
	return nil
}

func (s *Store) comments() (map[string]string, error) {
	comments := map[string]string{}
	if _, err := s.getJSON(KeyComments, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Store) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.kv.Set(key, data)
}

func (s *Store) getJSON(key string, v any) (bool, error) {
	data, ok, err := s.kv.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}
