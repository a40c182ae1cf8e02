package bus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/htooayelwinict/MI-3/app/news"
)

func testItem(title string, published time.Time) news.Item {
	return news.New(title, "https://e.com/"+title, published, "feed:test", "Example")
}

func TestPublishIdempotent(t *testing.T) {
	b := New(Options{})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := testItem("X", published)
	second := testItem("X", published)

	if !b.Publish(RawChannel, first, "feed:test") {
		t.Fatal("Expected first publish to be accepted")
	}
	if b.Publish(RawChannel, second, "feed:test") {
		t.Error("Expected second publish of the same logical item to be rejected")
	}

	items := b.Snapshot(RawChannel, 10, nil)
	if len(items) != 1 {
		t.Errorf("Expected exactly 1 retained item, got %d", len(items))
	}
}

func TestPublishDistinctTimestamps(t *testing.T) {
	b := New(Options{})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := testItem("X", published)
	second := testItem("X", published.Add(time.Minute))

	if first.ID == second.ID {
		t.Fatal("Expected distinct IDs for distinct publication times")
	}
	if !b.Publish(RawChannel, first, "feed:test") {
		t.Error("Expected first publish accepted")
	}
	if !b.Publish(RawChannel, second, "feed:test") {
		t.Error("Expected second publish accepted")
	}

	items := b.Snapshot(RawChannel, 10, nil)
	if len(items) != 2 {
		t.Errorf("Expected 2 retained items, got %d", len(items))
	}
}

func TestBoundedMemory(t *testing.T) {
	capacity := 10
	extra := 5
	b := New(Options{ChannelCapacity: capacity})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < capacity+extra; i++ {
		item := testItem(fmt.Sprintf("item-%d", i), published)
		if !b.Publish(RawChannel, item, "feed:test") {
			t.Fatalf("Expected publish %d accepted", i)
		}
	}

	items := b.Snapshot(RawChannel, 0, nil)
	if len(items) != capacity {
		t.Fatalf("Expected %d retained items, got %d", capacity, len(items))
	}

	// Most-recent-first: the newest item leads, the oldest retained one is
	// item number extra (everything before it was evicted).
	if items[0].Title != fmt.Sprintf("item-%d", capacity+extra-1) {
		t.Errorf("Expected newest item first, got '%s'", items[0].Title)
	}
	if items[len(items)-1].Title != fmt.Sprintf("item-%d", extra) {
		t.Errorf("Expected oldest retained item 'item-%d', got '%s'", extra, items[len(items)-1].Title)
	}
}

func TestSnapshotLimitAndFilter(t *testing.T) {
	b := New(Options{})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		item := testItem(fmt.Sprintf("item-%d", i), published)
		if i%2 == 0 {
			item.Topic = "markets"
		}
		b.Publish(RawChannel, item, "feed:test")
	}

	limited := b.Snapshot(RawChannel, 3, nil)
	if len(limited) != 3 {
		t.Errorf("Expected 3 items, got %d", len(limited))
	}

	filtered := b.Snapshot(RawChannel, 0, func(item news.Item) bool {
		return item.Topic == "markets"
	})
	if len(filtered) != 3 {
		t.Errorf("Expected 3 filtered items, got %d", len(filtered))
	}
	for _, item := range filtered {
		if item.Topic != "markets" {
			t.Errorf("Expected topic 'markets', got '%s'", item.Topic)
		}
	}
}

func TestSubscribersNotifiedInOrder(t *testing.T) {
	b := New(Options{})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var order []string
	b.Subscribe(RawChannel, func(Message) { order = append(order, "first") })
	b.Subscribe(RawChannel, func(Message) { order = append(order, "second") })

	b.Publish(RawChannel, testItem("X", published), "feed:test")

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Expected handlers in registration order, got %v", order)
	}
}

func TestSubscriberNotNotifiedForDuplicate(t *testing.T) {
	b := New(Options{})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	calls := 0
	b.Subscribe(RawChannel, func(Message) { calls++ })

	b.Publish(RawChannel, testItem("X", published), "feed:test")
	b.Publish(RawChannel, testItem("X", published), "feed:test")

	if calls != 1 {
		t.Errorf("Expected 1 notification, got %d", calls)
	}
}

func TestHandlerPanicIsolated(t *testing.T) {
	b := New(Options{})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	delivered := false
	b.Subscribe(RawChannel, func(Message) { panic("handler failure") })
	b.Subscribe(RawChannel, func(Message) { delivered = true })

	if !b.Publish(RawChannel, testItem("X", published), "feed:test") {
		t.Fatal("Expected publish accepted despite panicking handler")
	}
	if !delivered {
		t.Error("Expected later handler to run after an earlier handler panicked")
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New(Options{})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	calls := 0
	sub := b.Subscribe(RawChannel, func(Message) { calls++ })

	b.Publish(RawChannel, testItem("X", published), "feed:test")
	b.Unsubscribe(sub)
	b.Publish(RawChannel, testItem("Y", published), "feed:test")

	if calls != 1 {
		t.Errorf("Expected 1 call after unsubscribe, got %d", calls)
	}
}

func TestHandlerMayPublishToOtherChannel(t *testing.T) {
	b := New(Options{})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	b.Subscribe(RawChannel, func(m Message) {
		b.Publish(ProcessedChannel, m.Item, "processor")
	})

	b.Publish(RawChannel, testItem("X", published), "feed:test")

	processed := b.Snapshot(ProcessedChannel, 10, nil)
	if len(processed) != 1 {
		t.Errorf("Expected 1 processed item, got %d", len(processed))
	}
}

func TestSnapshotObservesItemAfterPublishReturns(t *testing.T) {
	b := New(Options{})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	item := testItem("X", published)

	b.Publish(RawChannel, item, "feed:test")

	items := b.Snapshot(RawChannel, 1, nil)
	if len(items) != 1 || items[0].ID != item.ID {
		t.Error("Expected snapshot to observe the item immediately after publish")
	}
}

func TestDedupIndexEviction(t *testing.T) {
	d := newDedupIndex(3)

	d.Add("a")
	d.Add("b")
	d.Add("c")
	d.Add("d")

	if d.Seen("a") {
		t.Error("Expected oldest entry 'a' to be evicted")
	}
	for _, id := range []string{"b", "c", "d"} {
		if !d.Seen(id) {
			t.Errorf("Expected '%s' to still be present", id)
		}
	}
	if d.Len() != 3 {
		t.Errorf("Expected index length 3, got %d", d.Len())
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := New(Options{ChannelCapacity: 5000})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				item := testItem(fmt.Sprintf("w%d-i%d", worker, i), published)
				b.Publish(RawChannel, item, "feed:test")
			}
		}(w)
	}
	wg.Wait()

	items := b.Snapshot(RawChannel, 0, nil)
	if len(items) != 400 {
		t.Errorf("Expected 400 distinct items, got %d", len(items))
	}
}

func TestStats(t *testing.T) {
	b := New(Options{ChannelCapacity: 10})
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	b.Subscribe(RawChannel, func(Message) {})
	b.Publish(RawChannel, testItem("X", published), "feed:test")
	b.Publish(RawChannel, testItem("X", published), "feed:test")

	stats := b.Stats()
	ch, ok := stats.Channels[RawChannel]
	if !ok {
		t.Fatal("Expected stats for news.raw channel")
	}
	if ch.Items != 1 {
		t.Errorf("Expected 1 item, got %d", ch.Items)
	}
	if ch.Published != 1 {
		t.Errorf("Expected 1 published, got %d", ch.Published)
	}
	if ch.Duplicates != 1 {
		t.Errorf("Expected 1 duplicate, got %d", ch.Duplicates)
	}
	if ch.Subscribers != 1 {
		t.Errorf("Expected 1 subscriber, got %d", ch.Subscribers)
	}
}
