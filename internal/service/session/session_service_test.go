package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"mapworkbench/internal/editor"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	s := m.Add(editor.NewImageSession("/uploads/a.png", "plan", 1, nil))

	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get(%s) = %v, %v", s.ID(), got, err)
	}
	if err := m.Delete(s.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v; want ErrNotFound", err)
	}
	if err := m.Delete(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v; want ErrNotFound", err)
	}
}

func TestManagerSweep(t *testing.T) {
	clock := time.UnixMilli(1_700_000_000_000)
	m := NewManager()
	m.now = func() time.Time { return clock }

	old := m.Add(editor.NewImageSession("/uploads/a.png", "old", 1, nil))
	fresh := m.Add(editor.NewImageSession("/uploads/b.png", "fresh", 1, nil))

	// an hour later only the fresh session is used
	clock = clock.Add(time.Hour)
	if _, err := m.Get(fresh.ID()); err != nil {
		t.Fatal(err)
	}

	if got := m.Sweep(30 * time.Minute); got != 1 {
		t.Fatalf("Sweep() = %d; want 1", got)
	}
	if _, err := m.Get(old.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("old session survived the sweep: %v", err)
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d; want 1", m.Count())
	}
}

func TestSweepDoesNotRaceWithGet(t *testing.T) {
	for range 50 {
		start := time.UnixMilli(1_700_000_000_000)
		m := NewManager()
		m.now = func() time.Time { return start }
		s := m.Add(editor.NewImageSession("/uploads/a.png", "plan", 1, nil))
		m.now = func() time.Time { return start.Add(time.Hour) }

		var wg sync.WaitGroup
		stop := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					m.Get(s.ID())
				}
			}
		}()
		swept := m.Sweep(30 * time.Minute)
		close(stop)
		wg.Wait()

		_, err := m.Get(s.ID())
		switch swept {
		case 1:
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("swept session came back: Get = %v", err)
			}
		case 0:
			if err != nil {
				t.Fatalf("refreshed session lost: Get = %v", err)
			}
		default:
			t.Fatalf("Sweep() = %d; want 0 or 1", swept)
		}
	}
}
