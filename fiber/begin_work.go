package fiber

import "fmt"

// beginWork reconciles the children of wip and returns the first child to
// descend into.
func (wl *workLoop) beginWork(wip *Node) *Node {
	switch wip.Kind {
	case HostRoot:
		return wl.updateHostRoot(wip)
	case HostComponent:
		wl.reconcileChildren(wip, wip.PendingProps.Children())
		return wip.Child
	case HostText:
		return nil
	case FunctionComponent:
		return wl.updateFunctionComponent(wip)
	case Fragment:
		wl.reconcileChildren(wip, wip.PendingProps.Children())
		return wip.Child
	default:
		panic(fmt.Sprintf("begin: unknown node kind %d", wip.Kind))
	}
}

func (wl *workLoop) updateHostRoot(wip *Node) *Node {
	q := wip.UpdateQueue
	if q.pending != nil {
		wl.consume(q)
		wip.MemoizedState, q.pending = ProcessUpdateQueue(wip.MemoizedState, q.pending, wl.lane)
	}
	wl.reconcileChildren(wip, wip.MemoizedState)
	return wip.Child
}

func (wl *workLoop) updateFunctionComponent(wip *Node) *Node {
	c, ok := wip.Type.(*Component)
	if !ok || c.Render == nil {
		panic(fmt.Sprintf("begin: %s has no render function", wip))
	}
	wl.reconcileChildren(wip, wl.renderWithHooks(wip, c))
	return wip.Child
}

func (wl *workLoop) reconcileChildren(wip *Node, children any) {
	current := wip.Alternate()
	if current == nil {
		wip.Child = childReconciler{wl: wl}.reconcileChildNodes(wip, nil, children)
		return
	}
	wip.Child = childReconciler{wl: wl, trackSideEffects: true}.reconcileChildNodes(wip, current.Child, children)
}
