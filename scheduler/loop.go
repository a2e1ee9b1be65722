package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrLoopClosed  = errors.New("loop closed")
	ErrLoopRunning = errors.New("loop already running")
)

// microtaskBudget bounds one microtask checkpoint so a task that keeps
// scheduling microtasks cannot starve the task queue forever.
const microtaskBudget = 1024

// Loop is a single goroutine event loop with a task queue and a microtask
// queue. After every task the microtask queue is drained, so a microtask
// scheduled by a task runs before the next task starts.
//
// ScheduleTask and ScheduleMicrotask must be called from the loop goroutine
// (or before the loop runs). Other goroutines hand work to the loop with
// Submit.
type Loop struct {
	logger *slog.Logger

	tasks      []func()
	microtasks []func()

	ingressMu sync.Mutex
	ingress   []func()
	wake      chan struct{}

	running bool
	closed  bool

	// OnPanic is called with the value recovered from a panicking callback.
	OnPanic func(v any)
}

type Option func(l *Loop)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(opts ...Option) *Loop {
	l := &Loop{
		logger:     slog.Default().With(slog.String("subsystem", "scheduler")),
		microtasks: make([]func(), 0, 64),
		wake:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ScheduleMicrotask queues fn to run at the next microtask checkpoint.
func (l *Loop) ScheduleMicrotask(fn func()) {
	l.microtasks = append(l.microtasks, fn)
}

// ScheduleTask queues fn behind every task already queued.
func (l *Loop) ScheduleTask(fn func()) {
	l.tasks = append(l.tasks, fn)
}

// Submit queues fn as a task from any goroutine.
func (l *Loop) Submit(fn func()) error {
	l.ingressMu.Lock()
	if l.closed {
		l.ingressMu.Unlock()
		return ErrLoopClosed
	}
	l.ingress = append(l.ingress, fn)
	l.ingressMu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending reports the number of queued tasks and microtasks.
func (l *Loop) Pending() (tasks, microtasks int) {
	return len(l.tasks), len(l.microtasks)
}

// RunUntilIdle drains microtasks, then runs tasks one at a time with a
// microtask checkpoint after each, until both queues are empty. It returns
// the number of callbacks executed.
func (l *Loop) RunUntilIdle() int {
	executed := 0
	for {
		l.pullIngress()
		executed += l.drainMicrotasks()
		if len(l.microtasks) > 0 {
			continue
		}
		if len(l.tasks) == 0 {
			return executed
		}
		t := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.safeExecute(t)
		executed++
	}
}

// Run processes submitted tasks until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	if l.running {
		return ErrLoopRunning
	}
	l.running = true
	defer func() {
		l.running = false
	}()

	for {
		l.RunUntilIdle()

		l.ingressMu.Lock()
		closed := l.closed
		l.ingressMu.Unlock()
		if closed {
			return ErrLoopClosed
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close rejects further submissions and wakes a running loop so it returns.
func (l *Loop) Close() error {
	l.ingressMu.Lock()
	if l.closed {
		l.ingressMu.Unlock()
		return nil
	}
	l.closed = true
	l.ingressMu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (l *Loop) pullIngress() {
	l.ingressMu.Lock()
	if len(l.ingress) == 0 {
		l.ingressMu.Unlock()
		return
	}
	tasks := l.ingress
	l.ingress = nil
	l.ingressMu.Unlock()

	l.tasks = append(l.tasks, tasks...)
}

func (l *Loop) drainMicrotasks() int {
	if len(l.microtasks) > 10*microtaskBudget {
		l.logger.Warn("microtask queue is large, potential infinite loop", slog.Int("len", len(l.microtasks)))
	}

	executed := 0
	for len(l.microtasks) > 0 && executed < microtaskBudget {
		t := l.microtasks[0]
		l.microtasks[0] = nil
		l.microtasks = l.microtasks[1:]
		l.safeExecute(t)
		executed++
	}

	if cap(l.microtasks) > microtaskBudget && len(l.microtasks) < cap(l.microtasks)/4 {
		compacted := make([]func(), len(l.microtasks), len(l.microtasks)*2+64)
		copy(compacted, l.microtasks)
		l.microtasks = compacted
	}
	return executed
}

func (l *Loop) safeExecute(fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("callback panicked", slog.String("panic", fmt.Sprint(r)))
			if l.OnPanic != nil {
				l.OnPanic(r)
			}
		}
	}()
	fn()
}
