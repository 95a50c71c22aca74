package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEveryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	every(ctx, time.Millisecond, func() { ticks.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ticks.Load() < 3 {
		t.Fatalf("ticks = %d; want at least 3", ticks.Load())
	}

	cancel()
	time.Sleep(10 * time.Millisecond)
	stopped := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != stopped {
		t.Errorf("ticks kept increasing after cancel: %d -> %d", stopped, got)
	}
}

type flusher struct{ calls int }

func (f *flusher) FlushArchive(context.Context) error {
	f.calls++
	return nil
}

func TestFlushOnShutdown(t *testing.T) {
	f := &flusher{}
	FlushOnShutdown(context.Background(), f)
	FlushOnShutdown(context.Background(), nil)
	if f.calls != 1 {
		t.Errorf("FlushArchive calls = %d; want 1", f.calls)
	}
}
