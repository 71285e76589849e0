package domain

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an approval request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Validate checks that s is a known status.
func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return nil
	default:
		return fmt.Errorf("unknown status %q", string(s))
	}
}

// IsTerminal reports whether no further action may change the request.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected:
		return true
	case StatusPending:
		return false
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// Action is a decision an approver takes on the current stage.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction accepts "approve" or "reject" in any case.
func ParseAction(value string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(value)))
	if err := a.Validate(); err != nil {
		return "", err
	}
	return a, nil
}

// Validate checks that a is a known action.
func (a Action) Validate() error {
	switch a {
	case ActionApprove, ActionReject:
		return nil
	default:
		return fmt.Errorf("unknown action %q (valid: approve, reject)", string(a))
	}
}

func (a Action) String() string {
	return string(a)
}

// PastTense completes confirmations such as "Request #3 approved".
func (a Action) PastTense() string {
	switch a {
	case ActionApprove:
		return "approved"
	case ActionReject:
		return "rejected"
	default:
		return string(a)
	}
}
