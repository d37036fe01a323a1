package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dandori/sync/internal/api"
	"dandori/sync/internal/assignment"
	"dandori/sync/internal/projectmaster"
)

// Each mutation walks the same states:
//
//	Idle -> OptimisticApplied -> Reconciled (write confirmed, broadcasts sent)
//	                          -> RolledBack (write rejected, snapshot restored)
//	then GateClosed after the settle delay.

// CreateInput describes a new assignment. Either ProjectMasterID references
// an existing master, or NewProject describes one to resolve-or-create
// transparently. The master write is outside the assignment's rollback
// scope: a master created for a failed assignment stays created.
type CreateInput struct {
	Assignment assignment.Assignment
	NewProject *projectmaster.NewMaster
}

// Create applies a local placeholder immediately, then confirms it with the
// server-assigned record. The gate stays held for the longer create delay
// because a create fans out several downstream change-feed events.
func (e *Engine) Create(ctx context.Context, input CreateInput) (assignment.Assignment, error) {
	a := input.Assignment.Clone()
	a.Date = assignment.DayOf(a.Date)

	if a.ProjectMasterID == "" && input.NewProject != nil {
		if e.masters == nil {
			return assignment.Assignment{}, fmt.Errorf("create assignment: no master source configured")
		}
		pm, err := e.masters.ResolveOrCreate(ctx, *input.NewProject)
		if err != nil {
			return assignment.Assignment{}, fmt.Errorf("create assignment: resolve project: %w", err)
		}
		a.ProjectMasterID = pm.ID
		snap := pm
		a.ProjectMaster = &snap
	}

	placeholderID := "local-" + uuid.NewString()
	placeholder := a.Clone()
	placeholder.ID = placeholderID
	now := time.Now().UTC()
	placeholder.CreatedAt = now
	placeholder.UpdatedAt = now
	e.store.UpsertOne(placeholder)

	release := e.gate.Hold(e.createDelay)
	defer release()

	created, err := e.api.CreateAssignment(ctx, a)
	if err != nil {
		e.store.RemoveByID(placeholderID)
		return assignment.Assignment{}, err
	}

	e.store.RemoveByID(placeholderID)
	e.confirm(created)
	e.notifyUpdated(ctx, created.ID)
	return created, nil
}

// Update applies a partial update optimistically and reconciles it with the
// server-confirmed record.
func (e *Engine) Update(ctx context.Context, id string, p assignment.Patch) (assignment.Assignment, error) {
	prior, existed := e.store.Get(id)
	if existed {
		optimistic := prior.Clone()
		p.Apply(&optimistic)
		e.store.UpsertOne(optimistic)
	}

	release := e.gate.Hold(e.settleDelay)
	defer release()

	updated, err := e.api.UpdateAssignment(ctx, id, p)
	if err != nil {
		if existed {
			e.store.UpsertOne(prior)
		}
		return assignment.Assignment{}, err
	}

	e.confirm(updated)
	e.notifyUpdated(ctx, updated.ID)
	return updated, nil
}

// BatchUpdate applies several partial updates in one backend call. Locally it
// touches only the ids present in the cache; an id that is not cached is not
// an error, its update simply lands when the confirmed records merge back.
func (e *Engine) BatchUpdate(ctx context.Context, items []api.BatchItem) ([]assignment.Assignment, error) {
	priors := make(map[string]assignment.Assignment)
	for _, it := range items {
		prior, ok := e.store.Get(it.ID)
		if !ok {
			continue
		}
		priors[it.ID] = prior
		optimistic := prior.Clone()
		it.Patch.Apply(&optimistic)
		e.store.UpsertOne(optimistic)
	}

	release := e.gate.Hold(e.settleDelay)
	defer release()

	updated, err := e.api.BatchUpdateAssignments(ctx, items)
	if err != nil {
		for _, prior := range priors {
			e.store.UpsertOne(prior)
		}
		return nil, err
	}

	ids := make([]string, 0, len(updated))
	for _, a := range updated {
		// Confirm only entries this cache already held; an id that was never
		// present stays absent, it reaches other caches via the channels.
		if _, ok := priors[a.ID]; ok {
			e.confirm(a)
		}
		ids = append(ids, a.ID)
	}
	e.notifyBatchUpdated(ctx, ids)
	return updated, nil
}

// Delete removes the record locally first, restoring it if the backend
// rejects the delete.
func (e *Engine) Delete(ctx context.Context, id string) error {
	prior, existed := e.store.Get(id)
	e.store.RemoveByID(id)

	release := e.gate.Hold(e.settleDelay)
	defer release()

	if err := e.api.DeleteAssignment(ctx, id); err != nil {
		if existed {
			e.store.UpsertOne(prior)
		}
		return err
	}

	e.notifyDeleted(ctx, id)
	return nil
}

// confirm merges a server-confirmed record from this instance's own write.
// It bypasses the UpdatedAt comparison (the write owns the state) but still
// honors the window: a confirmed record dated outside the loaded window is
// dropped rather than cached.
func (e *Engine) confirm(a assignment.Assignment) {
	if window, ok := e.store.Window(); ok && !window.Contains(a.Date) {
		e.store.RemoveByID(a.ID)
		return
	}
	e.store.UpsertOne(a)
}
