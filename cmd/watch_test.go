package cmd

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatchLoopWaitsForFirstCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, "@every 1h", func() {
			close(started)
			<-release
			finished.Store(true)
		}, zap.NewNop())
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle did not start")
	}

	cancel()

	select {
	case err := <-done:
		t.Fatalf("watchLoop returned while a cycle was running: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watchLoop returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watchLoop did not return after the cycle finished")
	}

	if !finished.Load() {
		t.Fatal("watchLoop returned before the cycle finished")
	}
}

func TestWatchLoopRejectsBadSchedule(t *testing.T) {
	var runs atomic.Int32

	err := watchLoop(context.Background(), "every now and then", func() { runs.Add(1) }, zap.NewNop())
	if err == nil {
		t.Fatal("expected schedule error")
	}
	if runs.Load() != 0 {
		t.Fatalf("cycle must not run with a bad schedule, ran %d times", runs.Load())
	}
}
