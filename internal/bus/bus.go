// Package bus implements the Output Bus (§4.3): in-memory fan-out of
// per-channel byte chunks to every subscribed session, with a
// drop-oldest backpressure policy so a slow subscriber never stalls
// the producing PTY.
package bus

import "sync"

// Subscription is the handle a session holds for its output stream.
type Subscription struct {
	id   int
	bus  *Bus
	sub  *subscriber
	subs *SubscriptionSet
}

// Wake signals when new chunks (or new drops) are ready to Drain.
func (s *Subscription) Wake() <-chan struct{} { return s.sub.Wake() }

// Drain returns every chunk queued since the last Drain, in emission
// order for each (channel, subscriber) pair (§4.3 ordering guarantee),
// plus any per-channel bytes dropped in the interim.
func (s *Subscription) Drain() ([]Chunk, map[string]uint64) {
	return s.sub.drain()
}

// Subs returns the underlying subscription set so callers can mutate it
// via :sub / :unsub without a round-trip through Bus.
func (s *Subscription) Subs() *SubscriptionSet { return s.subs }

// Close unsubscribes and releases the queue.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

// Bus fans out OutputChunks to every subscriber whose SubscriptionSet
// matches the chunk's channel.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
}

func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers a new subscription and returns its handle.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	set := NewSubscriptionSet()
	sub := newSubscriber(id, set)
	b.subs[id] = sub

	return &Subscription{id: id, bus: b, sub: sub, subs: set}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		sub.close()
	}
}

// Publish delivers one OutputChunk to every matching subscriber. Never
// blocks: a subscriber at capacity silently drops its oldest chunk
// (§4.3).
func (b *Bus) Publish(name string, seq uint64, data []byte) {
	if len(data) == 0 {
		return
	}
	c := Chunk{Channel: name, Seq: seq, Data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.subs.Matches(name) {
			sub.enqueue(c)
		}
	}
}

// Prune removes name from every live subscriber's explicit set, the
// bus-wide side of the §3 invariant that kills prune subscriptions.
func (b *Bus) Prune(name string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		sub.subs.Prune(name)
	}
}
