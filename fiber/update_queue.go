package fiber

// Reducer is an update action that derives the next state from the current
// one. Any other action value replaces the state outright.
type Reducer func(state any) any

// Update is one pending state change. Updates of a queue form a circular list
// whose tail is the queue's pending pointer.
type Update struct {
	Action any
	Lane   Lane
	next   *Update
}

// UpdateQueue is shared between both generations of a node, and between a
// state cell and its clones.
type UpdateQueue struct {
	pending *Update
	// dispatch is the entry point handed out for this queue, kept so that every
	// render returns the same value.
	dispatch any
}

func CreateUpdate(action any, lane Lane) *Update {
	return &Update{Action: action, Lane: lane}
}

func CreateUpdateQueue() *UpdateQueue {
	return &UpdateQueue{}
}

// Pending returns the tail of the circular list, nil when nothing is queued.
func (q *UpdateQueue) Pending() *Update {
	return q.pending
}

// EnqueueUpdate appends u at the tail of the circular list.
func EnqueueUpdate(q *UpdateQueue, u *Update) {
	if q.pending == nil {
		u.next = u
	} else {
		u.next = q.pending.next
		q.pending.next = u
	}
	q.pending = u
}

// ProcessUpdateQueue folds, in FIFO order, the actions of the updates in lane
// onto base. Updates of other lanes are copied into a new circular list
// returned as remaining; the input list is left untouched so a failed render
// can put it back.
func ProcessUpdateQueue(base any, pending *Update, lane Lane) (state any, remaining *Update) {
	state = base
	if pending == nil {
		return state, nil
	}

	first := pending.next
	for u := first; ; u = u.next {
		if u.Lane == lane {
			state = applyAction(state, u.Action)
		} else {
			skipped := CreateUpdate(u.Action, u.Lane)
			if remaining == nil {
				skipped.next = skipped
			} else {
				skipped.next = remaining.next
				remaining.next = skipped
			}
			remaining = skipped
		}
		if u == pending {
			break
		}
	}
	return state, remaining
}

func applyAction(state, action any) any {
	if fn, ok := action.(Reducer); ok {
		return fn(state)
	}
	return action
}
