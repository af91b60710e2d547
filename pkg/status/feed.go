// Package status is a generic, topic-keyed publish/subscribe fan-out used
// to broadcast WorkerStatus and NodeStatus changes to whichever observers
// are wired in (in this module, the console feed). The engine publishes
// from the worker and node status callbacks; publishers never know who,
// if anyone, is listening.
package status

import "sync"

// Feed is a typed topic pub/sub. Zero value is not usable; use NewFeed.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[string][]chan any
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{
		subscribers: make(map[string][]chan any),
	}
}

// Subscribe returns a channel of values published to topic whose dynamic
// type matches T; values of other types are silently skipped.
func Subscribe[T any](f *Feed, topic string) <-chan T {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan any, 100)
	f.subscribers[topic] = append(f.subscribers[topic], ch)

	out := make(chan T, 100)
	go func() {
		defer close(out)
		for msg := range ch {
			if typed, ok := msg.(T); ok {
				out <- typed
			}
		}
	}()
	return out
}

// Publish fans payload out to every subscriber of topic. Slow subscribers
// drop messages rather than block the publisher — the feed is diagnostic,
// not part of the message-conservation invariant.
func (f *Feed) Publish(topic string, payload any) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, ch := range f.subscribers[topic] {
		select {
		case ch <- payload:
		default:
		}
	}
}
