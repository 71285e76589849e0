package domain

import (
	"fmt"
	"strings"
)

// Role identifies what a user may do in the approval workflow.
// It is a closed set; values outside it never validate.
type Role string

const (
	// RoleViewer (L0) audits the workflow through the dashboard.
	RoleViewer Role = "L0"
	// RoleRequester (L1) submits requests and never approves them.
	RoleRequester Role = "L1"
	// RoleManager (L2) is the first approver tier.
	RoleManager Role = "L2"
	// RoleDirector (L3) is the second approver tier.
	RoleDirector Role = "L3"
	// RoleAdmin configures the workflow order.
	RoleAdmin Role = "admin"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{RoleViewer, RoleRequester, RoleManager, RoleDirector, RoleAdmin}

// View is the home screen a role lands on after login.
type View string

const (
	ViewMyRequests View = "my-requests"
	ViewInbox      View = "inbox"
	ViewDashboard  View = "dashboard"
	ViewWorkflow   View = "workflow"
)

// ParseRole converts user or server input into a Role.
// Tier roles are matched case-insensitively ("l2" -> L2).
func ParseRole(value string) (Role, error) {
	v := strings.TrimSpace(value)
	if strings.EqualFold(v, string(RoleAdmin)) {
		return RoleAdmin, nil
	}
	r := Role(strings.ToUpper(v))
	if err := r.Validate(); err != nil {
		return "", err
	}
	return r, nil
}

// Validate reports whether r is one of the known roles.
func (r Role) Validate() error {
	switch r {
	case RoleViewer, RoleRequester, RoleManager, RoleDirector, RoleAdmin:
		return nil
	case "":
		return fmt.Errorf("role cannot be empty")
	default:
		return fmt.Errorf("unknown role %q (valid: L0, L1, L2, L3, admin)", string(r))
	}
}

// String returns the wire form of the role.
func (r Role) String() string {
	return string(r)
}

// UnmarshalText lets JSON and YAML decoding reject unknown roles.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalText returns the wire form of the role.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

// HomeView returns the screen the role is routed to.
func (r Role) HomeView() (View, error) {
	switch r {
	case RoleRequester:
		return ViewMyRequests, nil
	case RoleManager, RoleDirector:
		return ViewInbox, nil
	case RoleViewer:
		return ViewDashboard, nil
	case RoleAdmin:
		return ViewWorkflow, nil
	default:
		return "", r.Validate()
	}
}

// IsApprover reports whether the role can approve or reject requests.
func (r Role) IsApprover() bool {
	switch r {
	case RoleManager, RoleDirector:
		return true
	case RoleViewer, RoleRequester, RoleAdmin:
		return false
	default:
		return false
	}
}

// CanSubmit reports whether the role may create requests.
func (r Role) CanSubmit() bool {
	switch r {
	case RoleRequester:
		return true
	case RoleViewer, RoleManager, RoleDirector, RoleAdmin:
		return false
	default:
		return false
	}
}

// CanViewDashboard reports whether the role may read aggregate counts.
func (r Role) CanViewDashboard() bool {
	switch r {
	case RoleViewer, RoleAdmin:
		return true
	case RoleRequester, RoleManager, RoleDirector:
		return false
	default:
		return false
	}
}

// CanEditWorkflow reports whether the role may replace the workflow order.
func (r Role) CanEditWorkflow() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleViewer, RoleRequester, RoleManager, RoleDirector:
		return false
	default:
		return false
	}
}
