package bus

import "sync"

const (
	// DefaultQueueBytes and DefaultQueueChunks are the per-subscriber
	// bound from §4.3: "bounded capacity of 4 MiB or 1,024 chunks
	// (whichever hits first)".
	DefaultQueueBytes  = 4 << 20
	DefaultQueueChunks = 1024
)

// Chunk is the bus's delivery unit: one channel's OutputChunk (§3).
type Chunk struct {
	Channel string
	Seq     uint64
	Data    []byte
}

// subscriber is one session's per-channel-set output queue. Producers
// (channel output pumps, via Bus.Publish) never block on a slow
// subscriber: Enqueue drops the oldest queued chunk instead (§4.3).
type subscriber struct {
	id   int
	subs *SubscriptionSet

	mu      sync.Mutex
	queue   []Chunk
	bytes   int
	dropped map[string]uint64 // per-channel bytes dropped since last drain
	wake    chan struct{}
	closed  bool
}

func newSubscriber(id int, subs *SubscriptionSet) *subscriber {
	return &subscriber{
		id:      id,
		subs:    subs,
		dropped: make(map[string]uint64),
		wake:    make(chan struct{}, 1),
	}
}

// enqueue appends chunk, dropping the oldest queued chunks (recording
// their byte count against their own channel) until the queue is back
// under both bounds.
func (s *subscriber) enqueue(c Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.queue = append(s.queue, c)
	s.bytes += len(c.Data)

	for (s.bytes > DefaultQueueBytes || len(s.queue) > DefaultQueueChunks) && len(s.queue) > 0 {
		oldest := s.queue[0]
		s.queue = s.queue[1:]
		s.bytes -= len(oldest.Data)
		s.dropped[oldest.Channel] += uint64(len(oldest.Data))
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// drain pops every currently queued chunk plus a snapshot of pending
// drop counts (reset to zero), for the session to forward as Output /
// DropNotice events in order.
func (s *subscriber) drain() ([]Chunk, map[string]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunks := s.queue
	s.queue = nil
	s.bytes = 0
	drops := s.dropped
	s.dropped = make(map[string]uint64)
	return chunks, drops
}

// Wake returns the channel a session's dispatch loop selects on to know
// new output (or drops) are ready to drain.
func (s *subscriber) Wake() <-chan struct{} { return s.wake }

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
