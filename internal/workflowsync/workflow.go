package workflowsync

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/approvals/internal/domain"
	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
	"github.com/felixgeelhaar/approvals/internal/telemetry"
)

// GetWorkflowOrder fetches the global order and resets the local draft to it.
func (s *Sync) GetWorkflowOrder(ctx context.Context) (order domain.WorkflowOrder, err error) {
	if _, err := s.requireRole(domain.Role.CanEditWorkflow, "configure the workflow"); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSyncSpan(ctx, "get_workflow")
	defer func() { telemetry.End(span, err) }()

	order, err = s.client.GetWorkflow(ctx)
	if err != nil {
		return nil, s.fail(classify(opGetFlow, err))
	}
	if err := s.setDraft(order, false); err != nil {
		return nil, err
	}
	return order.Clone(), nil
}

// SetWorkflowOrder replaces the global order. Orders that fail validation
// are never sent. On success the local draft becomes the stored order.
func (s *Sync) SetWorkflowOrder(ctx context.Context, order domain.WorkflowOrder) (saved domain.WorkflowOrder, err error) {
	if _, err := s.requireRole(domain.Role.CanEditWorkflow, "configure the workflow"); err != nil {
		return nil, err
	}
	if verr := order.Validate(); verr != nil {
		return nil, s.fail(clierrors.NewWorkflowInvalidError(verr))
	}

	ctx, span := telemetry.StartSyncSpan(ctx, "set_workflow",
		attribute.Int("workflow.stages", len(order)))
	defer func() { telemetry.End(span, err) }()

	saved, err = s.client.PutWorkflow(ctx, order)
	if err != nil {
		ce := classify(opPutFlow, err)
		s.record("save_workflow", ce)
		return nil, s.fail(ce)
	}
	s.record("save_workflow", nil)

	if err := s.setDraft(saved, false); err != nil {
		return nil, err
	}
	s.info("Workflow saved: " + saved.String())
	return saved.Clone(), nil
}

// SaveWorkflowDraft sends the local draft with SetWorkflowOrder.
func (s *Sync) SaveWorkflowDraft(ctx context.Context) (domain.WorkflowOrder, error) {
	return s.SetWorkflowOrder(ctx, s.Draft())
}

// LoadWorkflowDraft prepares the draft for editing: a persisted draft
// wins, then the server's order. Any failure falls back to the default
// order and is only logged.
func (s *Sync) LoadWorkflowDraft(ctx context.Context) domain.WorkflowOrder {
	s.mu.Lock()
	if s.draft != nil {
		out := s.draft.Clone()
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	if stored, ok, err := s.store.Draft(); err != nil {
		s.logger.WarnContext(ctx, "ignoring unreadable workflow draft", "error", err)
	} else if ok {
		s.mu.Lock()
		s.draft = stored.Clone()
		s.mu.Unlock()
		return stored
	}

	order, err := s.client.GetWorkflow(ctx)
	if err != nil || len(order) == 0 {
		s.logger.WarnContext(ctx, "workflow preload failed, using default order", "error", err)
		order = domain.DefaultWorkflowOrder()
	}
	s.mu.Lock()
	s.draft = order.Clone()
	s.mu.Unlock()
	return order
}

// Draft returns the local, unsaved workflow order.
func (s *Sync) Draft() domain.WorkflowOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// MoveUp swaps stage i with its predecessor in the draft.
func (s *Sync) MoveUp(ctx context.Context, i int) (domain.WorkflowOrder, error) {
	return s.edit(ctx, i, domain.WorkflowOrder.MoveUp)
}

// MoveDown swaps stage i with its successor in the draft.
func (s *Sync) MoveDown(ctx context.Context, i int) (domain.WorkflowOrder, error) {
	return s.edit(ctx, i, domain.WorkflowOrder.MoveDown)
}

// RemoveStage drops stage i from the draft. The draft may become empty;
// saving it is what gets refused.
func (s *Sync) RemoveStage(ctx context.Context, i int) (domain.WorkflowOrder, error) {
	return s.edit(ctx, i, domain.WorkflowOrder.Remove)
}

// AppendStage adds a stage to the end of the draft.
func (s *Sync) AppendStage(ctx context.Context, stage string) (domain.WorkflowOrder, error) {
	if _, err := s.requireRole(domain.Role.CanEditWorkflow, "configure the workflow"); err != nil {
		return nil, err
	}
	next := s.LoadWorkflowDraft(ctx).Append(stage)
	if err := s.setDraft(next, true); err != nil {
		return nil, err
	}
	return next, nil
}

// ResetDraft discards local edits.
func (s *Sync) ResetDraft() error {
	s.mu.Lock()
	s.draft = nil
	s.mu.Unlock()
	if err := s.store.ClearDraft(); err != nil {
		return clierrors.NewStoreError("failed to clear workflow draft", err)
	}
	return nil
}

func (s *Sync) edit(ctx context.Context, i int, transform func(domain.WorkflowOrder, int) domain.WorkflowOrder) (domain.WorkflowOrder, error) {
	if _, err := s.requireRole(domain.Role.CanEditWorkflow, "configure the workflow"); err != nil {
		return nil, err
	}
	current := s.LoadWorkflowDraft(ctx)
	if i < 0 || i >= len(current) {
		return nil, clierrors.NewArgumentError(fmt.Sprintf("stage index %d out of range for %d stages", i, len(current)))
	}
	next := transform(current, i)
	if err := s.setDraft(next, true); err != nil {
		return nil, err
	}
	return next, nil
}

// setDraft replaces the in-memory draft. persist keeps it in the store for
// the next run; otherwise the stored draft is dropped.
func (s *Sync) setDraft(order domain.WorkflowOrder, persist bool) error {
	s.mu.Lock()
	s.draft = order.Clone()
	s.mu.Unlock()

	var err error
	if persist {
		err = s.store.SaveDraft(order)
	} else {
		err = s.store.ClearDraft()
	}
	if err != nil {
		return clierrors.NewStoreError("failed to store workflow draft", err)
	}
	return nil
}
