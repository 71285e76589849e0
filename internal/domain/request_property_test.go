package domain

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func genStatus() *rapid.Generator[Status] {
	return rapid.SampledFrom([]Status{StatusPending, StatusApproved, StatusRejected})
}

func genSnapshot() *rapid.Generator[[]string] {
	return rapid.SliceOfN(rapid.SampledFrom([]string{"L0", "L1", "L2", "L3", "admin", "X"}), 0, 8)
}

// TestStageLabel_NeverPanics checks label derivation for arbitrary stage and snapshot combinations
func TestStageLabel_NeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := ApprovalRequest{
			Status:           genStatus().Draw(t, "status"),
			CurrentStage:     rapid.IntRange(-5, 20).Draw(t, "stage"),
			WorkflowSnapshot: genSnapshot().Draw(t, "snapshot"),
		}

		label := req.StageLabel()

		switch req.Status {
		case StatusApproved:
			if label != LabelCompleted {
				t.Fatalf("approved request labelled %q", label)
			}
		case StatusRejected:
			if label != LabelRejected {
				t.Fatalf("rejected request labelled %q", label)
			}
		default:
			if label != LabelInProgress && !strings.HasPrefix(label, "At ") {
				t.Fatalf("pending request labelled %q", label)
			}
			if req.CurrentStage >= len(req.WorkflowSnapshot) && label != LabelInProgress {
				t.Fatalf("stage %d past snapshot %v labelled %q", req.CurrentStage, req.WorkflowSnapshot, label)
			}
		}

		if active := req.ActiveStage(); active < 0 || active < req.CurrentStage {
			t.Fatalf("active stage %d behind current stage %d", active, req.CurrentStage)
		} else if active > max(req.CurrentStage, 0)+1 {
			t.Fatalf("active stage %d skips more than the leading requester from %d", active, req.CurrentStage)
		}
	})
}

// TestPermittedActions_TerminalAlwaysEmpty checks that terminal requests never offer actions
func TestPermittedActions_TerminalAlwaysEmpty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := ApprovalRequest{
			Status:           rapid.SampledFrom([]Status{StatusApproved, StatusRejected}).Draw(t, "status"),
			CurrentStage:     rapid.IntRange(0, 8).Draw(t, "stage"),
			WorkflowSnapshot: genSnapshot().Draw(t, "snapshot"),
		}
		role := rapid.SampledFrom(AllRoles).Draw(t, "role")

		if got := req.PermittedActions(role); len(got) != 0 {
			t.Fatalf("terminal request offered %v to %s", got, role)
		}
	})
}

// TestWorkflowOrder_TransformsPreserveElements checks that reorders keep the same multiset
func TestWorkflowOrder_TransformsPreserveElements(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		order := WorkflowOrder(genSnapshot().Draw(t, "order"))
		i := rapid.IntRange(-2, 10).Draw(t, "index")
		original := order.Clone()

		for _, moved := range []WorkflowOrder{order.MoveUp(i), order.MoveDown(i)} {
			if len(moved) != len(order) {
				t.Fatalf("move changed length: %v -> %v", order, moved)
			}
			counts := map[string]int{}
			for _, s := range order {
				counts[s]++
			}
			for _, s := range moved {
				counts[s]--
			}
			for s, c := range counts {
				if c != 0 {
					t.Fatalf("move changed count of %q: %v -> %v", s, order, moved)
				}
			}
		}

		removed := order.Remove(i)
		if i >= 0 && i < len(order) {
			if len(removed) != len(order)-1 {
				t.Fatalf("remove(%d) on %v gave %v", i, order, removed)
			}
		} else if !removed.Equal(order) {
			t.Fatalf("out-of-range remove(%d) changed %v", i, order)
		}

		if !order.Equal(original) {
			t.Fatalf("receiver mutated: %v -> %v", original, order)
		}
	})
}
