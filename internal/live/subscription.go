// Package live implements live queries: subscriptions that re-deliver a
// result set whenever the data behind it changes.
package live

import (
	"context"
	"sync"
	"time"
)

// Subscription delivers successive results of a live query on C. A slow
// reader only ever sees the newest undelivered result. C is closed when the
// subscription ends; Err then reports why, or nil after Stop.
type Subscription[T any] struct {
	ch     chan T
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	once   sync.Once
}

// Start runs produce in its own goroutine. produce calls emit for each new
// result and must return once emit reports false or ctx is done.
func Start[T any](ctx context.Context, produce func(ctx context.Context, emit func(T) bool) error) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		ch:     make(chan T, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		err := produce(ctx, func(v T) bool { return s.emit(ctx, v) })
		if err != nil && ctx.Err() == nil {
			s.err = err
		}
		// done before ch: a reader that sees C closed must see Err.
		close(s.done)
		close(s.ch)
	}()
	return s
}

func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

func (s *Subscription[T]) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Done is closed once the producer has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Stop ends the subscription and waits for the producer to exit. It is safe
// to call more than once.
func (s *Subscription[T]) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Subscription[T]) emit(ctx context.Context, v T) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case s.ch <- v:
			return true
		default:
		}
		// Buffer full: drop the stale value and retry.
		select {
		case <-s.ch:
		default:
		}
	}
}

// Watch re-runs query every time topic is published on hub and, when refresh
// is positive, on every refresh tick. The first result is delivered
// immediately. A query error ends the subscription.
func Watch[T any](ctx context.Context, hub *Hub, topic string, refresh time.Duration, query func(context.Context) (T, error)) *Subscription[T] {
	return Start(ctx, func(ctx context.Context, emit func(T) bool) error {
		changes, unsubscribe := hub.Subscribe(topic)
		defer unsubscribe()
		var tick <-chan time.Time
		if refresh > 0 {
			t := time.NewTicker(refresh)
			defer t.Stop()
			tick = t.C
		}
		for {
			v, err := query(ctx)
			if err != nil {
				return err
			}
			if !emit(v) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
			case <-tick:
			}
		}
	})
}

// Map derives a subscription whose values are f applied to the values of
// src. Stopping the result stops src.
func Map[T, U any](ctx context.Context, src func(ctx context.Context) *Subscription[T], f func(T) U) *Subscription[U] {
	return Start(ctx, func(ctx context.Context, emit func(U) bool) error {
		in := src(ctx)
		defer in.Stop()
		for v := range in.C() {
			if !emit(f(v)) {
				return nil
			}
		}
		return in.Err()
	})
}
