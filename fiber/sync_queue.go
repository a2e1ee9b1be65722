package fiber

import "errors"

// syncQueue holds the sync lane callbacks waiting for the next flush.
type syncQueue struct {
	callbacks []func() error
	flushing  bool
}

func (q *syncQueue) push(cb func() error) {
	q.callbacks = append(q.callbacks, cb)
}

// flush runs callbacks until the queue is empty, including the ones pushed
// while flushing. A nested flush is a no-op.
func (q *syncQueue) flush() error {
	if q.flushing {
		return nil
	}
	q.flushing = true
	defer func() {
		q.flushing = false
	}()

	var errs []error
	for len(q.callbacks) > 0 {
		batch := q.callbacks
		q.callbacks = nil
		for _, cb := range batch {
			if err := cb(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
