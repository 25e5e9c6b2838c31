package task

import (
	"context"
	"sync"
	"sync/atomic"
)

// Task is a value that becomes available exactly once. It is used to turn
// single-shot callbacks into something a goroutine can wait on: the first
// Resolve wins, later ones are dropped, and a waiter that gives up does not
// leave the callback blocked.
type Task[T any] struct {
	result T
	err    error

	once sync.Once
	done atomic.Bool
	ch   chan struct{}
}

func New[T any]() *Task[T] {
	return &Task[T]{ch: make(chan struct{})}
}

// Go runs fn in its own goroutine and resolves the task with its result.
func Go[T any](fn func() (T, error)) *Task[T] {
	task := New[T]()
	go func() {
		task.Resolve(fn())
	}()
	return task
}

// Resolve stores the outcome and reports whether it was the first call.
func (task *Task[T]) Resolve(result T, err error) bool {
	resolved := false
	task.once.Do(func() {
		task.result = result
		task.err = err
		task.done.Store(true)
		close(task.ch)
		resolved = true
	})
	return resolved
}

func (task *Task[T]) IsDone() bool { return task.done.Load() }

func (task *Task[T]) Done() <-chan struct{} { return task.ch }

// Await blocks until the task is resolved or ctx is done.
func (task *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-task.ch:
		return task.result, task.err
	case <-ctx.Done():
		var none T
		return none, ctx.Err()
	}
}
