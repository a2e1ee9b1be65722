package fiber

import (
	"fmt"
	"log/slog"
	"time"
)

// workLoop is the render context of one render attempt: the cursor, the lane
// being rendered and the queues drained so far. It is dropped once the
// attempt ends, successful or not.
type workLoop struct {
	r    *Reconciler
	root *Root
	lane Lane
	wip  *Node

	consumed    []consumedQueue
	diagnostics int
	rendered    int
}

type consumedQueue struct {
	queue   *UpdateQueue
	pending *Update
}

// consume remembers the pending list of q before it is drained, so that an
// aborted pass can put it back.
func (wl *workLoop) consume(q *UpdateQueue) {
	wl.consumed = append(wl.consumed, consumedQueue{queue: q, pending: q.pending})
}

func (wl *workLoop) rollback() {
	for i := len(wl.consumed) - 1; i >= 0; i-- {
		c := wl.consumed[i]
		c.queue.pending = c.pending
	}
	wl.consumed = nil
}

// run walks the tree depth first until the cursor is exhausted. A panic in a
// component or a state declaration ends the pass with an error.
func (wl *workLoop) run() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recoveredError(rec)
		}
	}()

	for wl.wip != nil {
		if err := wl.performUnitOfWork(wl.wip); err != nil {
			return err
		}
	}
	return nil
}

func (wl *workLoop) performUnitOfWork(n *Node) error {
	next := wl.beginWork(n)
	n.MemoizedProps = n.PendingProps
	wl.rendered++

	if next == nil {
		return wl.completeUnitOfWork(n)
	}
	wl.wip = next
	return nil
}

// completeUnitOfWork completes n and its ancestors until one of them has an
// unvisited sibling, which becomes the new cursor.
func (wl *workLoop) completeUnitOfWork(n *Node) error {
	node := n
	for node != nil {
		if err := wl.completeWork(node); err != nil {
			return err
		}
		if node.Sibling != nil {
			wl.wip = node.Sibling
			return nil
		}
		node = node.Parent
		wl.wip = node
	}
	return nil
}

// renderRoot builds the work-in-progress tree of root for lane. On failure the
// work-in-progress tree is abandoned and root.Current stays authoritative.
func (r *Reconciler) renderRoot(root *Root, lane Lane) (err error) {
	wl := &workLoop{
		r:    r,
		root: root,
		lane: lane,
	}
	start := time.Now()
	defer func() {
		r.observer.RenderFinished(root, RenderStats{
			Lane:        lane,
			Nodes:       wl.rendered,
			Diagnostics: wl.diagnostics,
			Elapsed:     time.Since(start),
			Err:         err,
		})
	}()

	wl.wip = createWorkInProgress(root.Current, root.Current.PendingProps)
	if err = wl.run(); err != nil {
		wl.rollback()
		root.FinishedWork = nil
		return fmt.Errorf("render %s lane on root %s: %w", lane, root.ID, err)
	}

	root.FinishedWork = root.Current.Alternate()
	root.FinishedLane = lane
	r.logger.Debug("render finished",
		slog.String("root", root.ID.String()),
		slog.String("lane", lane.String()),
		slog.Int("nodes", wl.rendered),
	)
	return nil
}

// commitRoot applies the finished tree to the host and makes it current.
func (r *Reconciler) commitRoot(root *Root) (err error) {
	finished := root.FinishedWork
	if finished == nil {
		return nil
	}
	lane := root.FinishedLane
	root.FinishedWork = nil
	root.FinishedLane = NoLane

	c := &committer{r: r, root: root}
	start := time.Now()
	defer func() {
		r.observer.CommitFinished(root, CommitStats{
			Lane:        lane,
			Placements:  c.placements,
			Updates:     c.updates,
			Deletions:   c.deletions,
			Unmounts:    c.unmounts,
			HostRemoved: c.removed,
			Elapsed:     time.Since(start),
			Err:         err,
		})
	}()

	if (finished.Flags|finished.SubtreeFlags)&MutationMask != NoFlags {
		if err := c.commitMutationEffects(finished); err != nil {
			root.err = fmt.Errorf("%w: root %s: %w", ErrRootInconsistent, root.ID, err)
			return root.err
		}
	}
	root.Current = finished

	r.logger.Debug("commit finished",
		slog.String("root", root.ID.String()),
		slog.String("lane", lane.String()),
		slog.Int("placements", c.placements),
		slog.Int("updates", c.updates),
		slog.Int("deletions", c.deletions),
	)
	return nil
}
