package sync

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"dandori/sync/internal/api"
	"dandori/sync/internal/assignment"
	"dandori/sync/internal/projectmaster"
	"dandori/sync/internal/realtime"
)

// AssignmentAPI is the backend surface the engine needs. Satisfied by
// *api.Client.
type AssignmentAPI interface {
	ListAssignments(ctx context.Context, start, end time.Time, employeeID string) ([]assignment.Assignment, error)
	GetAssignment(ctx context.Context, id string) (assignment.Assignment, error)
	CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error)
	UpdateAssignment(ctx context.Context, id string, p assignment.Patch) (assignment.Assignment, error)
	BatchUpdateAssignments(ctx context.Context, items []api.BatchItem) ([]assignment.Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error
}

// MasterSource resolves project masters. Satisfied by *projectmaster.Client.
type MasterSource interface {
	Get(ctx context.Context, id string) (assignment.ProjectMasterSnapshot, error)
	ResolveOrCreate(ctx context.Context, input projectmaster.NewMaster) (assignment.ProjectMasterSnapshot, error)
}

// Notifier receives confirmed-write announcements. Satisfied by
// *realtime.Broadcast (cross-device) and *realtime.LocalBus (same process).
type Notifier interface {
	PublishUpdated(ctx context.Context, id string) error
	PublishBatchUpdated(ctx context.Context, ids []string) error
	PublishDeleted(ctx context.Context, id string) error
}

// Options configures an Engine. API is required; everything else has a
// usable zero value.
type Options struct {
	API       AssignmentAPI
	Masters   MasterSource
	Notifiers []Notifier
	Logger    *logrus.Logger

	// EmployeeID filters range fetches to one manager's assignments;
	// empty loads everyone's.
	EmployeeID string

	SettleDelay time.Duration // gate release after single-record writes
	CreateDelay time.Duration // gate release after create fan-out
	MaxGateHold time.Duration // watchdog bound on a hung write
}

// Engine owns the local assignment cache and is the single entry point for
// every mutator: the optimistic writer, the four invalidation channels, and
// the poller.
type Engine struct {
	store     *Store
	gate      *Gate
	api       AssignmentAPI
	masters   MasterSource
	notifiers []Notifier
	log       *logrus.Logger

	employeeID  string
	settleDelay time.Duration
	createDelay time.Duration
}

// NewEngine constructs an engine from options.
func NewEngine(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	create := opts.CreateDelay
	if create <= 0 {
		create = DefaultCreateDelay
	}
	return &Engine{
		store:       NewStore(),
		gate:        NewGate(opts.MaxGateHold),
		api:         opts.API,
		masters:     opts.Masters,
		notifiers:   opts.Notifiers,
		log:         log,
		employeeID:  opts.EmployeeID,
		settleDelay: settle,
		createDelay: create,
	}
}

// Store exposes the cache for synchronous reads by consumers.
func (e *Engine) Store() *Store { return e.store }

// FetchRange loads the window [start, end]. Requesting the already loaded
// window returns immediately without a network call.
func (e *Engine) FetchRange(ctx context.Context, start, end time.Time) error {
	requested := Window{Start: assignment.DayOf(start), End: assignment.DayOf(end)}
	if current, ok := e.store.Window(); ok && current.Equal(requested) {
		return nil
	}
	list, err := e.api.ListAssignments(ctx, requested.Start, requested.End, e.employeeID)
	if err != nil {
		return err
	}
	e.store.ReplaceAll(requested, list)
	return nil
}

// Reset clears the cache. Used on sign-out.
func (e *Engine) Reset() {
	e.store.Reset()
}

// Pump applies invalidations from one channel until it closes or ctx is
// done. Run one goroutine per channel source.
func (e *Engine) Pump(ctx context.Context, events <-chan realtime.Invalidation) {
	for {
		select {
		case <-ctx.Done():
			return
		case inv, ok := <-events:
			if !ok {
				return
			}
			e.Apply(ctx, inv)
		}
	}
}

// Apply is the single entry point for all four channels. While the mutation
// gate is held the signal is dropped: it is overwhelmingly the echo of this
// instance's own write, and acting on it would refetch or clobber state the
// writer already owns.
func (e *Engine) Apply(ctx context.Context, inv realtime.Invalidation) {
	if e.gate.Held() {
		e.log.WithField("kind", inv.Kind).Debug("sync: gate held, skipping invalidation")
		return
	}
	switch inv.Kind {
	case realtime.KindDelete:
		for _, id := range inv.IDs {
			e.store.RemoveByID(id)
		}
	case realtime.KindUpsert:
		for _, id := range inv.IDs {
			e.fetchAndMerge(ctx, id)
		}
	case realtime.KindMasterUpdate:
		for _, id := range inv.IDs {
			e.refreshMasterSnapshot(ctx, id)
		}
	case realtime.KindRefresh:
		e.refreshWindow(ctx)
	}
}

// fetchAndMerge fetches the full record and merges it when its date falls
// inside the loaded window. A record whose date moved outside the window is
// dropped from the cache instead. Failures are logged and swallowed: the
// change belongs to someone else, there is no local state to roll back.
func (e *Engine) fetchAndMerge(ctx context.Context, id string) {
	window, ok := e.store.Window()
	if !ok {
		return
	}
	a, err := e.api.GetAssignment(ctx, id)
	if err != nil {
		e.log.WithError(err).WithField("id", id).Warn("sync: single-record fetch failed")
		return
	}
	if !window.Contains(a.Date) {
		e.store.RemoveByID(id)
		return
	}
	e.store.MergeRemote(a)
}

func (e *Engine) refreshMasterSnapshot(ctx context.Context, masterID string) {
	if e.masters == nil {
		return
	}
	pm, err := e.masters.Get(ctx, masterID)
	if err != nil {
		e.log.WithError(err).WithField("masterId", masterID).Warn("sync: project-master fetch failed")
		return
	}
	e.store.ReplaceMasterSnapshot(pm)
}

func (e *Engine) refreshWindow(ctx context.Context) {
	window, ok := e.store.Window()
	if !ok {
		return
	}
	list, err := e.api.ListAssignments(ctx, window.Start, window.End, e.employeeID)
	if err != nil {
		e.log.WithError(err).Warn("sync: window refresh failed")
		return
	}
	e.store.ReplaceAll(window, list)
}

// notifyUpdated announces a confirmed create/update on every notifier.
// Notification failures never fail the mutation; the write is already
// confirmed and the poller covers missed deliveries.
func (e *Engine) notifyUpdated(ctx context.Context, id string) {
	for _, n := range e.notifiers {
		if err := n.PublishUpdated(ctx, id); err != nil {
			e.log.WithError(err).Warn("sync: update broadcast failed")
		}
	}
}

func (e *Engine) notifyBatchUpdated(ctx context.Context, ids []string) {
	for _, n := range e.notifiers {
		if err := n.PublishBatchUpdated(ctx, ids); err != nil {
			e.log.WithError(err).Warn("sync: batch broadcast failed")
		}
	}
}

func (e *Engine) notifyDeleted(ctx context.Context, id string) {
	for _, n := range e.notifiers {
		if err := n.PublishDeleted(ctx, id); err != nil {
			e.log.WithError(err).Warn("sync: delete broadcast failed")
		}
	}
}
