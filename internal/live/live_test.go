package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func recv[T any](t *testing.T, s *Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-s.C():
		if !ok {
			t.Fatalf("subscription closed: %v", s.Err())
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestWatchRequeriesOnPublish(t *testing.T) {
	hub := NewHub()
	var n atomic.Int64
	sub := Watch(context.Background(), hub, "locations", 0, func(context.Context) (int64, error) {
		return n.Add(1), nil
	})
	defer sub.Stop()

	if got := recv(t, sub); got != 1 {
		t.Fatalf("initial=%d want 1", got)
	}
	hub.Publish("locations")
	if got := recv(t, sub); got != 2 {
		t.Fatalf("after publish=%d want 2", got)
	}
	hub.Publish("users")
	select {
	case v := <-sub.C():
		t.Fatalf("unrelated topic produced %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchRefreshTick(t *testing.T) {
	var n atomic.Int64
	sub := Watch(context.Background(), nil, "x", 10*time.Millisecond, func(context.Context) (int64, error) {
		return n.Add(1), nil
	})
	defer sub.Stop()
	recv(t, sub)
	if got := recv(t, sub); got < 2 {
		t.Fatalf("refresh did not re-run query, got %d", got)
	}
}

func TestWatchQueryErrorEndsSubscription(t *testing.T) {
	boom := errors.New("store unavailable")
	sub := Watch(context.Background(), NewHub(), "x", 0, func(context.Context) (int, error) {
		return 0, boom
	})
	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
	}
	if !errors.Is(sub.Err(), boom) {
		t.Fatalf("Err=%v want %v", sub.Err(), boom)
	}
}

func TestStopUnsubscribesAndClears(t *testing.T) {
	hub := NewHub()
	sub := Watch(context.Background(), hub, "t", 0, func(context.Context) (int, error) { return 1, nil })
	recv(t, sub)
	sub.Stop()
	sub.Stop()
	if sub.Err() != nil {
		t.Fatalf("Stop should not report an error: %v", sub.Err())
	}
	if c := hub.subscriberCount("t"); c != 0 {
		t.Fatalf("subscribers left=%d", c)
	}
	for range sub.C() {
	}
}

func TestSlowReaderSeesLatest(t *testing.T) {
	ready := make(chan struct{})
	sub := Start(context.Background(), func(ctx context.Context, emit func(int) bool) error {
		for i := 1; i <= 5; i++ {
			if !emit(i) {
				return nil
			}
		}
		close(ready)
		<-ctx.Done()
		return nil
	})
	defer sub.Stop()
	<-ready
	if got := recv(t, sub); got != 5 {
		t.Fatalf("got %d want latest 5", got)
	}
}

func TestMapTransformsAndPropagatesError(t *testing.T) {
	hub := NewHub()
	var n atomic.Int64
	boom := errors.New("gone")
	sub := Map(context.Background(), func(ctx context.Context) *Subscription[int64] {
		return Watch(ctx, hub, "t", 0, func(context.Context) (int64, error) {
			if v := n.Add(1); v < 3 {
				return v, nil
			}
			return 0, boom
		})
	}, func(v int64) string {
		return string(rune('a' + v - 1))
	})
	if got := recv(t, sub); got != "a" {
		t.Fatalf("first=%q", got)
	}
	hub.Publish("t")
	if got := recv(t, sub); got != "b" {
		t.Fatalf("second=%q", got)
	}
	hub.Publish("t")
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("mapped subscription did not end")
	}
	if !errors.Is(sub.Err(), boom) {
		t.Fatalf("Err=%v", sub.Err())
	}
}
