// Package bus implements the in-memory event bus shared by all ingestion
// producers: multi-channel, deduplicating, capacity-bounded publish/subscribe.
package bus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/htooayelwinict/MI-3/app/news"
)

// Channel names used across the system. Producers publish raw ingested items
// to RawChannel; derived consumers may publish to ProcessedChannel.
const (
	RawChannel       = "news.raw"
	ProcessedChannel = "news.processed"
)

const (
	defaultChannelCapacity = 1000
	defaultDedupCapacity   = 10000
)

// Message wraps an item as it travels through a channel.
type Message struct {
	Channel  string    `json:"channel"`
	Source   string    `json:"source"`
	Received time.Time `json:"received"`
	Item     news.Item `json:"item"`
}

// Handler receives published messages. Handlers are invoked synchronously in
// registration order and must not block: a slow consumer hands off to its own
// queue. A handler must not call back into the same channel.
type Handler func(Message)

// Subscription identifies a registered handler for Unsubscribe.
type Subscription struct {
	channel string
	id      uint64
}

type subscriber struct {
	id uint64
	fn Handler
}

type channel struct {
	name string

	mu         sync.RWMutex
	buf        []Message
	start      int
	count      int
	dedup      *dedupIndex
	subs       []subscriber
	published  uint64
	duplicates uint64
}

// Options configures bus capacities. Zero values use defaults.
type Options struct {
	ChannelCapacity int
	DedupCapacity   int
}

// Bus is safe for concurrent use. Channels are created lazily and carry
// independent locks, so publishes to different channels never contend.
type Bus struct {
	opts Options

	mu       sync.RWMutex
	channels map[string]*channel
	nextSub  uint64
}

func New(opts Options) *Bus {
	if opts.ChannelCapacity <= 0 {
		opts.ChannelCapacity = defaultChannelCapacity
	}
	if opts.DedupCapacity <= 0 {
		opts.DedupCapacity = defaultDedupCapacity
	}
	return &Bus{
		opts:     opts,
		channels: make(map[string]*channel),
	}
}

func (b *Bus) channelFor(name string) *channel {
	b.mu.RLock()
	ch, ok := b.channels[name]
	b.mu.RUnlock()
	if ok {
		return ch
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok = b.channels[name]; ok {
		return ch
	}
	ch = &channel{
		name:  name,
		buf:   make([]Message, b.opts.ChannelCapacity),
		dedup: newDedupIndex(b.opts.DedupCapacity),
	}
	b.channels[name] = ch
	return ch
}

// Publish admits an item to a channel. It returns false without side effects
// when the item's ID was already seen (idempotent ingestion). When the channel
// is at capacity the oldest retained item is evicted to admit the new one.
// Live subscribers are notified before Publish returns.
func (b *Bus) Publish(channelName string, item news.Item, source string) bool {
	ch := b.channelFor(channelName)
	msg := Message{
		Channel:  channelName,
		Source:   source,
		Received: time.Now().UTC(),
		Item:     item,
	}

	ch.mu.Lock()
	if ch.dedup.Seen(item.ID) {
		ch.duplicates++
		ch.mu.Unlock()
		slog.Debug("Duplicate item dropped", "channel", channelName, "id", item.ID, "source", source)
		return false
	}
	ch.append(msg)
	ch.dedup.Add(item.ID)
	ch.published++
	subs := make([]subscriber, len(ch.subs))
	copy(subs, ch.subs)
	ch.mu.Unlock()

	// Fan out after releasing the channel lock so a handler may publish to
	// other channels or read a snapshot without deadlocking.
	for _, s := range subs {
		ch.notify(s, msg)
	}
	return true
}

// append adds a message to the ring, evicting the oldest entry at capacity.
func (c *channel) append(msg Message) {
	capacity := len(c.buf)
	if c.count == capacity {
		c.buf[c.start] = msg
		c.start = (c.start + 1) % capacity
		return
	}
	c.buf[(c.start+c.count)%capacity] = msg
	c.count++
}

func (c *channel) notify(s subscriber, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Subscriber handler panic", "channel", c.name, "subscription", s.id, "error", r)
		}
	}()
	s.fn(msg)
}

// Subscribe registers a handler for a channel. Handlers run in registration
// order on every subsequent publish.
func (b *Bus) Subscribe(channelName string, fn Handler) Subscription {
	ch := b.channelFor(channelName)

	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	b.mu.Unlock()

	ch.mu.Lock()
	ch.subs = append(ch.subs, subscriber{id: id, fn: fn})
	ch.mu.Unlock()

	slog.Debug("Subscriber added", "channel", channelName, "subscription", id)
	return Subscription{channel: channelName, id: id}
}

// Unsubscribe removes a previously registered handler. Unknown subscriptions
// are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	ch := b.channelFor(sub.channel)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	for i, s := range ch.subs {
		if s.id == sub.id {
			ch.subs = append(ch.subs[:i], ch.subs[i+1:]...)
			return
		}
	}
}

// Snapshot returns up to limit retained items from a channel,
// most-recent-first, optionally filtered. A non-positive limit returns all
// retained items.
func (b *Bus) Snapshot(channelName string, limit int, filter func(news.Item) bool) []news.Item {
	ch := b.channelFor(channelName)

	ch.mu.RLock()
	defer ch.mu.RUnlock()

	if limit <= 0 || limit > ch.count {
		limit = ch.count
	}

	items := make([]news.Item, 0, limit)
	capacity := len(ch.buf)
	for i := ch.count - 1; i >= 0 && len(items) < limit; i-- {
		msg := ch.buf[(ch.start+i)%capacity]
		if filter != nil && !filter(msg.Item) {
			continue
		}
		items = append(items, msg.Item)
	}
	return items
}
