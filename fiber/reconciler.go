package fiber

import (
	"fmt"
	"log/slog"

	"github.com/delaneyj/fiberparty/element"
	"github.com/google/uuid"
)

// NestedUpdateLimit caps the sync renders a root may run back to back before
// the pending sync work is abandoned.
const NestedUpdateLimit = 50

// OnErrorFunc is called with every render or commit failure of a root.
type OnErrorFunc func(root *Root, err error)

type Option func(r *Reconciler)

// WithLogger sets the logger. Diagnostics are logged at warn level and
// failures at error level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithObserver(o Observer) Option {
	return func(r *Reconciler) {
		if o != nil {
			r.observer = o
		}
	}
}

func WithErrorHandler(fn OnErrorFunc) Option {
	return func(r *Reconciler) {
		r.onError = fn
	}
}

// Reconciler drives renders and commits of its roots against one host. It is
// not safe for concurrent use: every call, including the scheduled callbacks
// the host runs, must happen on the same goroutine.
type Reconciler struct {
	host     Host
	logger   *slog.Logger
	observer Observer
	onError  OnErrorFunc

	syncQueue          syncQueue
	syncFlushScheduled bool
	updateLane         Lane
	batchDepth         int
}

func CreateReconciler(host Host, opts ...Option) *Reconciler {
	r := &Reconciler{
		host:     host,
		logger:   slog.Default().With(slog.String("subsystem", "fiber")),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root is one mounted tree and the host container it renders into.
type Root struct {
	ID        uuid.UUID
	Container any
	// Current is the committed tree.
	Current *Node
	// FinishedWork is the rendered tree waiting for commit.
	FinishedWork *Node
	PendingLanes Lanes
	FinishedLane Lane

	callbackLane      Lane
	nestedSyncUpdates int
	err               error
}

// Err returns the failure that left the root inconsistent, nil while the root
// is healthy.
func (root *Root) Err() error {
	return root.err
}

// CreateContainer creates a root rendering into container.
func (r *Reconciler) CreateContainer(container any) *Root {
	root := &Root{
		ID:        uuid.New(),
		Container: container,
	}
	n := newNode(HostRoot, nil, element.NoKey)
	n.StateNode = root
	n.UpdateQueue = CreateUpdateQueue()
	root.Current = n

	r.logger.Debug("container created", slog.String("root", root.ID.String()))
	return root
}

// Render schedules el as the new content of root at the sync lane and
// returns it. A nil element unmounts everything.
func (r *Reconciler) Render(root *Root, el *element.Element) *element.Element {
	if root.err != nil {
		r.logger.Warn("render on inconsistent root ignored",
			slog.String("root", root.ID.String()),
			slog.Any("err", root.err),
		)
		return el
	}
	EnqueueUpdate(root.Current.UpdateQueue, CreateUpdate(el, SyncLane))
	r.scheduleUpdateOnRoot(root, SyncLane)
	return el
}

// FlushSync runs every pending sync lane render now.
func (r *Reconciler) FlushSync() error {
	return r.syncQueue.flush()
}

func (r *Reconciler) StartBatch() {
	r.batchDepth++
}

// EndBatch closes a batch. Closing the outermost batch flushes the sync lane
// work scheduled inside it.
func (r *Reconciler) EndBatch() error {
	r.batchDepth--
	if r.batchDepth > 0 {
		return nil
	}
	return r.FlushSync()
}

// Batch runs cb inside a batch.
func (r *Reconciler) Batch(cb func()) (err error) {
	r.StartBatch()
	defer func() {
		err = r.EndBatch()
	}()
	cb()
	return nil
}

// WithPriority runs fn with lane as the lane of every dispatch made inside it.
func (r *Reconciler) WithPriority(lane Lane, fn func()) {
	prev := r.updateLane
	r.updateLane = lane
	defer func() {
		r.updateLane = prev
	}()
	fn()
}

func (r *Reconciler) requestUpdateLane() Lane {
	if r.updateLane != NoLane {
		return r.updateLane
	}
	return SyncLane
}

func (r *Reconciler) dispatch(n *Node, q *UpdateQueue, action any) {
	root := rootOf(n)
	if root == nil {
		r.logger.Warn("dispatch dropped",
			slog.String("node", n.String()),
			slog.Any("err", ErrUnmountedDispatch),
		)
		return
	}
	if root.err != nil {
		r.logger.Warn("dispatch on inconsistent root dropped",
			slog.String("root", root.ID.String()),
			slog.Any("err", root.err),
		)
		return
	}

	lane := r.requestUpdateLane()
	EnqueueUpdate(q, CreateUpdate(action, lane))
	r.scheduleUpdateOnRoot(root, lane)
}

// rootOf walks the parent chain of n up to its root. Deleted nodes are
// detached and yield nil.
func rootOf(n *Node) *Root {
	node := n
	for node.Parent != nil {
		node = node.Parent
	}
	if node.Kind != HostRoot {
		return nil
	}
	root, _ := node.StateNode.(*Root)
	return root
}

func (r *Reconciler) scheduleUpdateOnRoot(root *Root, lane Lane) {
	root.PendingLanes = root.PendingLanes.Merge(lane)
	r.ensureRootIsScheduled(root)
}

// ensureRootIsScheduled makes sure exactly one callback is queued for the most
// urgent pending lane of root.
func (r *Reconciler) ensureRootIsScheduled(root *Root) {
	if root.err != nil {
		return
	}
	next := root.PendingLanes.Highest()
	if next == NoLane {
		root.callbackLane = NoLane
		return
	}
	if next == root.callbackLane {
		return
	}
	root.callbackLane = next

	if next == SyncLane {
		r.syncQueue.push(func() error {
			return r.performWorkOnRoot(root, SyncLane)
		})
		r.scheduleSyncFlush()
		return
	}

	task := func() {
		_ = r.performWorkOnRoot(root, next)
	}
	if ts, ok := r.host.(TaskScheduler); ok {
		ts.ScheduleTask(task)
		return
	}
	r.host.ScheduleMicrotask(task)
}

func (r *Reconciler) scheduleSyncFlush() {
	if r.syncFlushScheduled || r.batchDepth > 0 {
		return
	}
	r.syncFlushScheduled = true
	r.host.ScheduleMicrotask(func() {
		r.syncFlushScheduled = false
		// failures were already reported by performWorkOnRoot
		_ = r.syncQueue.flush()
	})
}

// performWorkOnRoot renders and commits the most urgent pending lane of root.
// scheduled is the lane the callback was queued for; a callback superseded by
// a more urgent one does nothing.
func (r *Reconciler) performWorkOnRoot(root *Root, scheduled Lane) error {
	if root.callbackLane != scheduled {
		return nil
	}
	root.callbackLane = NoLane
	if root.err != nil {
		return nil
	}

	lane := root.PendingLanes.Highest()
	if lane == NoLane {
		return nil
	}
	if lane == SyncLane {
		root.nestedSyncUpdates++
		if root.nestedSyncUpdates > NestedUpdateLimit {
			root.nestedSyncUpdates = 0
			err := fmt.Errorf("render %s lane on root %s: %w", lane, root.ID, ErrNestedUpdateLimit)
			r.reportError(root, err)
			return err
		}
	}

	// dispatches made while rendering put the lane back
	root.PendingLanes = root.PendingLanes.Remove(lane)
	if err := r.renderRoot(root, lane); err != nil {
		root.PendingLanes = root.PendingLanes.Merge(lane)
		root.nestedSyncUpdates = 0
		r.reportError(root, err)
		return err
	}
	if err := r.commitRoot(root); err != nil {
		r.reportError(root, err)
		return err
	}
	if !root.PendingLanes.Has(SyncLane) {
		root.nestedSyncUpdates = 0
	}
	r.ensureRootIsScheduled(root)
	return nil
}

func (r *Reconciler) reportError(root *Root, err error) {
	r.logger.Error("root work failed",
		slog.String("root", root.ID.String()),
		slog.Any("err", err),
	)
	if r.onError != nil {
		r.onError(root, err)
	}
}

func (root *Root) String() string {
	return fmt.Sprintf("root %s pending=%s", root.ID, root.PendingLanes)
}
