package bus

import (
	"testing"
	"time"
)

func TestSubscribeExplicitMatch(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	defer sub.Close()

	sub.Subs().Add([]string{"build"})
	b.Publish("build", 1, []byte("hello"))
	b.Publish("other", 1, []byte("ignored"))

	select {
	case <-sub.Wake():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for wake")
	}

	chunks, drops := sub.Drain()
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Channel != "build" || string(chunks[0].Data) != "hello" {
		t.Fatalf("unexpected chunk: %+v", chunks[0])
	}
	if len(drops) != 0 {
		t.Fatalf("expected no drops, got %+v", drops)
	}
}

func TestWildcardMatchesFutureChannels(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	defer sub.Close()

	sub.Subs().Add([]string{"*"})
	b.Publish("not-yet-seen", 1, []byte("x"))

	<-sub.Wake()
	chunks, _ := sub.Drain()
	if len(chunks) != 1 {
		t.Fatalf("expected wildcard subscriber to receive unseen channel output, got %d chunks", len(chunks))
	}
}

func TestUnsubscribeWildcardClearsExplicitNames(t *testing.T) {
	s := NewSubscriptionSet()
	s.Add([]string{"*", "build"})
	s.Remove([]string{"*"})

	if s.Matches("build") {
		t.Fatal("expected Unsubscribe(*) to clear explicit names too")
	}
	if s.Matches("anything") {
		t.Fatal("expected wildcard to be cleared")
	}
}

func TestPruneRemovesExplicitNameOnly(t *testing.T) {
	s := NewSubscriptionSet()
	s.Add([]string{"*", "build"})
	s.Prune("build")

	if !s.Matches("build") {
		t.Fatal("wildcard should still match pruned name")
	}

	s2 := NewSubscriptionSet()
	s2.Add([]string{"build"})
	s2.Prune("build")
	if s2.Matches("build") {
		t.Fatal("explicit-only subscriber should stop matching a pruned name")
	}
}

func TestDropOldestUnderByteBound(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	defer sub.Close()
	sub.Subs().Add([]string{"*"})

	big := make([]byte, DefaultQueueBytes/2+1)
	b.Publish("c", 1, big)
	b.Publish("c", 2, big)
	b.Publish("c", 3, big)

	<-sub.Wake()
	chunks, drops := sub.Drain()
	if len(chunks) >= 3 {
		t.Fatalf("expected oldest chunks to be dropped, got %d chunks", len(chunks))
	}
	if drops["c"] == 0 {
		t.Fatal("expected a recorded drop for channel c")
	}
}

func TestPruneAffectsAllSubscribers(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	defer sub.Close()
	sub.Subs().Add([]string{"build"})

	b.Prune("build")
	if sub.Subs().Matches("build") {
		t.Fatal("expected bus-wide Prune to remove the name from every subscriber")
	}
}
