package fiber

import (
	"time"

	"github.com/delaneyj/fiberparty/element"
)

// Host is the target the reconciler mutates. Instances and containers are
// opaque to the reconciler.
type Host interface {
	CreateInstance(tag string, props element.Props) (any, error)
	CreateTextInstance(text string) (any, error)
	// AppendInitialChild attaches child to a parent that is not attached yet.
	AppendInitialChild(parent, child any) error
	AppendChildToContainer(child, container any) error
	// InsertChildToContainer moves or inserts child right before before.
	InsertChildToContainer(child, container, before any) error
	RemoveChild(child, container any) error
	CommitUpdate(instance any, tag string, oldProps, newProps element.Props) error
	CommitTextUpdate(instance any, oldText, newText string) error
	// ScheduleMicrotask runs fn after the current call stack unwinds.
	ScheduleMicrotask(fn func())
}

// TaskScheduler is implemented by hosts that can run work later than a
// microtask. Non sync lanes use it when available.
type TaskScheduler interface {
	ScheduleTask(fn func())
}

// RenderStats describes one render attempt.
type RenderStats struct {
	Lane        Lane
	Nodes       int
	Diagnostics int
	Elapsed     time.Duration
	Err         error
}

// CommitStats describes one commit.
type CommitStats struct {
	Lane        Lane
	Placements  int
	Updates     int
	Deletions   int
	Unmounts    int
	HostRemoved int
	Elapsed     time.Duration
	Err         error
}

// Observer receives the outcome of every render and commit.
type Observer interface {
	RenderFinished(root *Root, stats RenderStats)
	CommitFinished(root *Root, stats CommitStats)
	ComponentUnmounted(root *Root, n *Node)
}

type nopObserver struct{}

func (nopObserver) RenderFinished(*Root, RenderStats) {}
func (nopObserver) CommitFinished(*Root, CommitStats) {}
func (nopObserver) ComponentUnmounted(*Root, *Node) {}
