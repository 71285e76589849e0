package domain

// ApprovalRequest mirrors the server record. The server owns it; the
// client only reads and caches it.
type ApprovalRequest struct {
	ID               int64          `json:"id" yaml:"id"`
	Title            string         `json:"title" yaml:"title"`
	Description      string         `json:"description" yaml:"description"`
	RequesterEmail   string         `json:"requester_email" yaml:"requester_email"`
	Status           Status         `json:"status" yaml:"status"`
	CurrentStage     int            `json:"current_stage" yaml:"current_stage"`
	WorkflowSnapshot []string       `json:"workflow_snapshot" yaml:"workflow_snapshot"`
	CreatedAt        Timestamp      `json:"created_at" yaml:"created_at"`
	UpdatedAt        Timestamp      `json:"updated_at" yaml:"updated_at,omitempty"`
	History          []HistoryEntry `json:"history,omitempty" yaml:"history,omitempty"`
}

// HistoryEntry is one recorded step of a request's audit trail.
type HistoryEntry struct {
	RequestID  int64     `json:"request_id" yaml:"request_id"`
	Stage      int       `json:"stage" yaml:"stage"`
	Role       string    `json:"role" yaml:"role"`
	Action     string    `json:"action" yaml:"action"`
	Comment    string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	ActorEmail string    `json:"actor_email" yaml:"actor_email"`
	Timestamp  Timestamp `json:"timestamp" yaml:"timestamp"`
}

// Stage label texts.
const (
	LabelCompleted  = "Completed"
	LabelRejected   = "Rejected"
	LabelInProgress = "In Progress"
)

// IsTerminal reports whether the request is approved or rejected.
func (r ApprovalRequest) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// ActiveStage returns the index of the stage that must act next.
//
// Requesters never approve their own requests, so a leading L1 is passed
// over while the request sits at stage 0 and later stages exist. An L1
// anywhere else is reported as is. The result is never negative.
func (r ApprovalRequest) ActiveStage() int {
	stage := r.CurrentStage
	if stage < 0 {
		stage = 0
	}
	if stage == 0 && len(r.WorkflowSnapshot) > 1 && isRequesterStage(r.WorkflowSnapshot[0]) {
		stage = 1
	}
	return stage
}

// AwaitingRole returns the stage identifier that must act next, if any.
func (r ApprovalRequest) AwaitingRole() (string, bool) {
	if r.IsTerminal() {
		return "", false
	}
	stage := r.ActiveStage()
	if stage >= len(r.WorkflowSnapshot) {
		return "", false
	}
	return r.WorkflowSnapshot[stage], true
}

// StageLabel derives the human-readable position of the request.
// It never indexes past the snapshot, even when the stage has advanced
// beyond a workflow that was later shortened.
func (r ApprovalRequest) StageLabel() string {
	switch r.Status {
	case StatusApproved:
		return LabelCompleted
	case StatusRejected:
		return LabelRejected
	}
	if role, ok := r.AwaitingRole(); ok {
		return "At " + role
	}
	return LabelInProgress
}

// AwaitsRole reports whether role must act on the request now.
func (r ApprovalRequest) AwaitsRole(role Role) bool {
	next, ok := r.AwaitingRole()
	if !ok {
		return false
	}
	parsed, err := ParseRole(next)
	return err == nil && parsed == role
}

// PermittedActions returns the decisions role may take on the request.
// Terminal requests permit nothing.
func (r ApprovalRequest) PermittedActions(role Role) []Action {
	if r.IsTerminal() || !role.IsApprover() || !r.AwaitsRole(role) {
		return nil
	}
	return []Action{ActionApprove, ActionReject}
}

func isRequesterStage(stage string) bool {
	parsed, err := ParseRole(stage)
	return err == nil && parsed == RoleRequester
}
