package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type stubSessionStore struct {
	purges atomic.Int32
}

func (s *stubSessionStore) DeleteExpiredSessions(_ context.Context) (int64, error) {
	s.purges.Add(1)
	return 2, nil
}

func TestJanitorPurgesOnTick(t *testing.T) {
	store := &stubSessionStore{}
	j := NewJanitor(store, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for store.purges.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("janitor did not purge within a second")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on cancel")
	}
}

func TestJanitorDefaultInterval(t *testing.T) {
	j := NewJanitor(&stubSessionStore{}, 0, nil)
	if j.interval != time.Hour {
		t.Errorf("interval = %v, want 1h default", j.interval)
	}
}
