package fiber

import (
	"fmt"

	"github.com/delaneyj/fiberparty/element"
)

type cellKind uint8

const (
	cellState cellKind = iota
	cellReducer
	cellUnmount
)

func (k cellKind) String() string {
	switch k {
	case cellState:
		return "state"
	case cellReducer:
		return "reducer"
	case cellUnmount:
		return "unmount"
	default:
		return "unknown"
	}
}

// stateCell is one slot of a component's state chain.
type stateCell struct {
	kind          cellKind
	memoizedState any
	queue         *UpdateQueue
	next          *stateCell
}

// Component is a function component. Render receives the Hooks of the current
// render and the pending props and returns the children to reconcile.
type Component struct {
	Name   string
	Render func(h *Hooks, props element.Props) any
}

func NewComponent(name string, render func(h *Hooks, props element.Props) any) *Component {
	return &Component{Name: name, Render: render}
}

func (c *Component) String() string {
	return c.Name
}

// Element creates a descriptor rendering c.
func (c *Component) Element(props element.Props, children ...any) *element.Element {
	return element.Create(c, props, children...)
}

// Hooks is the render context of one component call. It is only valid while
// that call runs.
type Hooks struct {
	wl       *workLoop
	node     *Node
	active   bool
	mounting bool

	// prevHead is the chain of the previous render, prev the last cell of it
	// matched so far.
	prevHead *stateCell
	prev     *stateCell
	tail     *stateCell
	declared int
}

// Lane is the priority class being rendered.
func (h *Hooks) Lane() Lane {
	return h.wl.lane
}

func (wl *workLoop) renderWithHooks(wip *Node, c *Component) any {
	h := &Hooks{
		wl:       wl,
		node:     wip,
		active:   true,
		mounting: true,
	}
	if current := wip.Alternate(); current != nil {
		h.mounting = false
		h.prevHead, _ = current.MemoizedState.(*stateCell)
	}
	wip.MemoizedState = nil
	defer func() {
		h.active = false
	}()

	children := c.Render(h, wip.PendingProps)
	h.finish()
	return children
}

// nextCell appends a cell to the chain under construction, cloned from the
// matching slot of the previous render when updating.
func (h *Hooks) nextCell(kind cellKind) (cell, prev *stateCell) {
	if h == nil || !h.active {
		panic(ErrInvalidHookCall)
	}
	h.declared++

	if h.mounting {
		cell = &stateCell{kind: kind, queue: CreateUpdateQueue()}
	} else {
		if h.prev == nil {
			prev = h.prevHead
		} else {
			prev = h.prev.next
		}
		if prev == nil {
			panic(fmt.Errorf("%w: %s declared %d cells, previous render declared fewer", ErrHookMismatch, h.node, h.declared))
		}
		if prev.kind != kind {
			panic(fmt.Errorf("%w: %s slot %d was %s, now %s", ErrHookMismatch, h.node, h.declared, prev.kind, kind))
		}
		h.prev = prev
		cell = &stateCell{
			kind:          kind,
			memoizedState: prev.memoizedState,
			queue:         prev.queue,
		}
	}

	if h.tail == nil {
		h.node.MemoizedState = cell
	} else {
		h.tail.next = cell
	}
	h.tail = cell
	return cell, prev
}

func (h *Hooks) finish() {
	if h.mounting {
		return
	}
	rest := h.prevHead
	if h.prev != nil {
		rest = h.prev.next
	}
	if rest != nil {
		panic(fmt.Errorf("%w: %s declared %d cells, previous render declared more", ErrHookMismatch, h.node, h.declared))
	}
}

// drain folds the cell's pending updates of the render lane into its state.
func (h *Hooks) drain(cell *stateCell) {
	q := cell.queue
	if q.pending == nil {
		return
	}
	h.wl.consume(q)
	cell.memoizedState, q.pending = ProcessUpdateQueue(cell.memoizedState, q.pending, h.wl.lane)
}

// Dispatch updates one state cell and schedules a render of its root.
type Dispatch[S any] struct {
	r     *Reconciler
	node  *Node
	queue *UpdateQueue
}

// Set replaces the state with v.
func (d *Dispatch[S]) Set(v S) {
	d.r.dispatch(d.node, d.queue, v)
}

// Update derives the next state from the previous one.
func (d *Dispatch[S]) Update(fn func(prev S) S) {
	d.r.dispatch(d.node, d.queue, Reducer(func(state any) any {
		return fn(as[S](state))
	}))
}

// UseState declares a state cell holding an S.
func UseState[S any](h *Hooks, initial S) (S, *Dispatch[S]) {
	cell, prev := h.nextCell(cellState)
	if prev == nil {
		cell.memoizedState = initial
		cell.queue.dispatch = &Dispatch[S]{
			r:     h.wl.r,
			node:  h.node,
			queue: cell.queue,
		}
	}
	d, ok := cell.queue.dispatch.(*Dispatch[S])
	if !ok {
		panic(fmt.Errorf("%w: %s slot %d changed state type to %T", ErrHookMismatch, h.node, h.declared, initial))
	}
	h.drain(cell)
	return as[S](cell.memoizedState), d
}

// UseReducer declares a state cell whose updates are actions folded by reducer.
func UseReducer[S, A any](h *Hooks, reducer func(state S, action A) S, initial S) (S, func(A)) {
	cell, prev := h.nextCell(cellReducer)
	if prev == nil {
		cell.memoizedState = initial
		r, node, queue := h.wl.r, h.node, cell.queue
		cell.queue.dispatch = func(action A) {
			r.dispatch(node, queue, Reducer(func(state any) any {
				return reducer(as[S](state), action)
			}))
		}
	}
	dispatch, ok := cell.queue.dispatch.(func(A))
	if !ok {
		panic(fmt.Errorf("%w: %s slot %d changed action type", ErrHookMismatch, h.node, h.declared))
	}
	h.drain(cell)
	return as[S](cell.memoizedState), dispatch
}

// UseUnmount registers fn to run when the component is deleted. The function
// from the latest committed render is the one that runs.
func UseUnmount(h *Hooks, fn func()) {
	cell, _ := h.nextCell(cellUnmount)
	cell.memoizedState = fn
}

func as[S any](v any) S {
	s, _ := v.(S)
	return s
}

// runUnmounts calls the unmount callbacks of a committed component node.
func runUnmounts(n *Node) {
	cell, _ := n.MemoizedState.(*stateCell)
	for ; cell != nil; cell = cell.next {
		if cell.kind != cellUnmount {
			continue
		}
		if fn, ok := cell.memoizedState.(func()); ok && fn != nil {
			fn()
		}
	}
}
