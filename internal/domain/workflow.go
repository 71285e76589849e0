package domain

import (
	"fmt"
	"strings"
)

// WorkflowOrder is the ordered list of stage identifiers new requests are
// routed through. Requests snapshot it at creation.
type WorkflowOrder []string

// DefaultWorkflowOrder is used whenever the server order cannot be loaded.
func DefaultWorkflowOrder() WorkflowOrder {
	return WorkflowOrder{"L1", "L2", "L3"}
}

// Clone returns an independent copy.
func (w WorkflowOrder) Clone() WorkflowOrder {
	if w == nil {
		return nil
	}
	out := make(WorkflowOrder, len(w))
	copy(out, w)
	return out
}

// MoveUp swaps index i with its predecessor. Out-of-range or first
// positions leave the order unchanged.
func (w WorkflowOrder) MoveUp(i int) WorkflowOrder {
	out := w.Clone()
	if i <= 0 || i >= len(out) {
		return out
	}
	out[i-1], out[i] = out[i], out[i-1]
	return out
}

// MoveDown swaps index i with its successor. Out-of-range or last
// positions leave the order unchanged.
func (w WorkflowOrder) MoveDown(i int) WorkflowOrder {
	out := w.Clone()
	if i < 0 || i >= len(out)-1 {
		return out
	}
	out[i], out[i+1] = out[i+1], out[i]
	return out
}

// Remove drops the entry at index i.
func (w WorkflowOrder) Remove(i int) WorkflowOrder {
	if i < 0 || i >= len(w) {
		return w.Clone()
	}
	out := make(WorkflowOrder, 0, len(w)-1)
	out = append(out, w[:i]...)
	return append(out, w[i+1:]...)
}

// Append adds a stage at the end. The identifier is trimmed and
// upper-cased; blank input is ignored.
func (w WorkflowOrder) Append(stage string) WorkflowOrder {
	out := w.Clone()
	v := strings.ToUpper(strings.TrimSpace(stage))
	if v == "" {
		return out
	}
	return append(out, v)
}

// Validate rejects orders that cannot be saved: empty orders and blank
// stage identifiers.
func (w WorkflowOrder) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("workflow must contain at least one stage")
	}
	for i, stage := range w {
		if strings.TrimSpace(stage) == "" {
			return fmt.Errorf("workflow stage %d is blank", i+1)
		}
	}
	return nil
}

// Equal compares two orders element by element.
func (w WorkflowOrder) Equal(other WorkflowOrder) bool {
	if len(w) != len(other) {
		return false
	}
	for i := range w {
		if w[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the order as "L1 -> L2 -> L3".
func (w WorkflowOrder) String() string {
	return strings.Join(w, " -> ")
}
