package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/delaneyj/fiberparty/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop(t *testing.T) {
	t.Run("microtasks run before the next task", func(t *testing.T) {
		l := scheduler.New()
		var order []string
		l.ScheduleTask(func() {
			order = append(order, "task a")
			l.ScheduleMicrotask(func() {
				order = append(order, "micro a")
			})
		})
		l.ScheduleTask(func() {
			order = append(order, "task b")
		})
		l.ScheduleMicrotask(func() {
			order = append(order, "micro first")
		})

		n := l.RunUntilIdle()
		assert.Equal(t, 4, n)
		assert.Equal(t, []string{"micro first", "task a", "micro a", "task b"}, order)
	})

	t.Run("chained microtasks drain in one checkpoint", func(t *testing.T) {
		l := scheduler.New()
		count := 0
		var next func()
		next = func() {
			count++
			if count < 10 {
				l.ScheduleMicrotask(next)
			}
		}
		l.ScheduleMicrotask(next)
		l.RunUntilIdle()
		assert.Equal(t, 10, count)

		tasks, micro := l.Pending()
		assert.Zero(t, tasks)
		assert.Zero(t, micro)
	})

	t.Run("a panicking callback does not stop the loop", func(t *testing.T) {
		l := scheduler.New()
		var recovered any
		l.OnPanic = func(v any) {
			recovered = v
		}
		ran := false
		l.ScheduleTask(func() {
			panic("boom")
		})
		l.ScheduleTask(func() {
			ran = true
		})
		l.RunUntilIdle()
		assert.Equal(t, "boom", recovered)
		assert.True(t, ran)
	})

	t.Run("submitted work runs on the loop goroutine", func(t *testing.T) {
		l := scheduler.New()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- l.Run(ctx)
		}()

		got := make(chan int, 1)
		require.NoError(t, l.Submit(func() {
			l.ScheduleMicrotask(func() {
				got <- 42
			})
		}))
		select {
		case v := <-got:
			assert.Equal(t, 42, v)
		case <-ctx.Done():
			t.Fatal("submitted task never ran")
		}

		require.NoError(t, l.Close())
		assert.ErrorIs(t, <-done, scheduler.ErrLoopClosed)
		assert.ErrorIs(t, l.Submit(func() {}), scheduler.ErrLoopClosed)
	})
}
