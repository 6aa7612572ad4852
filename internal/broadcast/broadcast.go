// Package broadcast implements the Snapshot Broadcaster (C4): a
// single-producer, latest-value fan-out of WorldSnapshot records. It is
// deliberately not a queue — slow subscribers skip intermediate values
// and always converge on the most recent one.
//
// Grounded on controller/api/destination/watcher/snapshot_topic.go
// (teacher): one sync.RWMutex guarding a "last value" plus a set of
// per-subscriber buffered channels, each delivered the latest value
// immediately on Subscribe.
package broadcast

import (
	"context"
	"sync"
	"time"
)

// WorldSnapshot is the broadcast record. It is an alias for interface{}
// so unit tests can exercise the broadcaster without importing the full
// sim/mask stack; production code publishes world.WorldSnapshot values
// and subscribers type-assert them back on receipt.
type WorldSnapshot = interface{}

// Broadcaster is a latest-value, O(1), non-blocking publish primitive.
type Broadcaster struct {
	mu          sync.RWMutex
	last        WorldSnapshot
	hasLast     bool
	subscribers map[*subscription]struct{}

	coalesce    time.Duration
	lastPub     time.Time
	pending     WorldSnapshot
	hasPending  bool
	flushTimer  *time.Timer
}

// New returns a Broadcaster that samples publish calls at most once per
// coalesce interval (0 disables coalescing: every publish is delivered).
func New(coalesce time.Duration) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[*subscription]struct{}),
		coalesce:    coalesce,
	}
}

type subscription struct {
	ch chan WorldSnapshot
}

// Subscription is the subscriber-facing handle. Calling Next blocks until
// a value becomes available or ctx is done.
type Subscription struct {
	b   *Broadcaster
	sub *subscription
}

// Subscribe attaches a new subscription. If a value has already been
// published, it is delivered as the first value read from Next,
// satisfying "send the current WorldSnapshot immediately" for viewers
// that subscribe mid-run.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &subscription{ch: make(chan WorldSnapshot, 1)}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	if b.hasLast {
		sub.ch <- b.last
	}
	b.mu.Unlock()

	return &Subscription{b: b, sub: sub}
}

// Next blocks until the subscriber's current value is ready, or ctx is
// done. It yields the most recent value as of whenever the subscriber
// becomes ready to receive; intermediate values may have been skipped.
func (s *Subscription) Next(ctx context.Context) (WorldSnapshot, bool) {
	select {
	case v, ok := <-s.sub.ch:
		return v, ok
	case <-ctx.Done():
		return nil, false
	}
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if _, ok := s.b.subscribers[s.sub]; ok {
		delete(s.b.subscribers, s.sub)
	}
}

// Publish overwrites the latest value and wakes every subscriber. It is
// O(1) in payload size (a pointer swap) and never blocks on a slow
// subscriber: each subscriber channel is capacity 1, and Publish drains
// a stale unread value before pushing the new one, exactly the
// overwrite semantics of a single-slot "watch" primitive.
func (b *Broadcaster) Publish(v WorldSnapshot) {
	now := time.Now()

	b.mu.Lock()
	if b.coalesce > 0 && b.hasLast && now.Sub(b.lastPub) < b.coalesce {
		// Within the coalescing window: remember v as the pending value and
		// make sure a timer is armed to flush it once the window elapses,
		// even if no further Publish call ever arrives. Only the latest
		// pending value is kept; a prior pending value is simply replaced.
		b.pending = v
		b.hasPending = true
		if b.flushTimer == nil {
			remaining := b.coalesce - now.Sub(b.lastPub)
			if remaining < 0 {
				remaining = 0
			}
			b.flushTimer = time.AfterFunc(remaining, b.flush)
		}
		b.mu.Unlock()
		return
	}

	b.deliverLocked(v, now)
	b.mu.Unlock()
}

// flush delivers the pending coalesced value, if one is still waiting,
// once the coalescing window has elapsed without a new direct delivery.
func (b *Broadcaster) flush() {
	b.mu.Lock()
	b.flushTimer = nil
	if !b.hasPending {
		b.mu.Unlock()
		return
	}
	v := b.pending
	b.hasPending = false
	b.deliverLocked(v, time.Now())
	b.mu.Unlock()
}

// deliverLocked publishes v to the latest slot and wakes every subscriber.
// Callers must hold b.mu.
func (b *Broadcaster) deliverLocked(v WorldSnapshot, now time.Time) {
	b.last = v
	b.hasLast = true
	b.lastPub = now

	for s := range b.subscribers {
		select {
		case s.ch <- v:
		default:
			// Subscriber hasn't drained its previous value; drop the stale
			// one and push the latest so it never falls further behind than
			// one missed update.
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- v:
			default:
			}
		}
	}
}

// Latest returns the most recently published value, if any.
func (b *Broadcaster) Latest() (WorldSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.hasLast
}
