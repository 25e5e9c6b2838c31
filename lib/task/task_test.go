package task

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolveOnce(t *testing.T) {
	task := New[int]()
	if task.IsDone() {
		t.Fatal("new task must not be done")
	}
	if !task.Resolve(1, nil) {
		t.Error("first resolve must win")
	}
	if task.Resolve(2, errors.New("late")) {
		t.Error("second resolve must be ignored")
	}

	val, err := task.Await(context.Background())
	if err != nil || val != 1 {
		t.Errorf("expected: %v | got %v (%v)", 1, val, err)
	}
	if !task.IsDone() {
		t.Error("resolved task must be done")
	}
}

func TestAwaitCancelled(t *testing.T) {
	task := New[string]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := task.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected: %v | got %v", context.Canceled, err)
	}

	// a late callback must not block once nobody is waiting
	resolved := make(chan bool, 1)
	go func() { resolved <- task.Resolve("late", nil) }()
	select {
	case ok := <-resolved:
		if !ok {
			t.Error("late resolve should still be the first one")
		}
	case <-time.After(time.Second):
		t.Fatal("late resolve blocked")
	}
}

func TestGo(t *testing.T) {
	task := Go(func() (int, error) { return 42, nil })
	val, err := task.Await(context.Background())
	if err != nil || val != 42 {
		t.Errorf("expected: %v | got %v (%v)", 42, val, err)
	}
	<-task.Done()
}
