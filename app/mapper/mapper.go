// Package mapper normalizes vendor-specific payloads into canonical items.
// Each vendor is a pure mapping function in a registry; new vendors are added
// by registering a new function, never by modifying existing mappings.
package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/htooayelwinict/MI-3/app/news"
)

// ErrUnmappable reports a payload whose shape carries no usable item fields.
var ErrUnmappable = errors.New("payload not mappable to a news item")

// Config carries the source context a mapping function may draw defaults from.
type Config struct {
	Name      string // configured source name
	Origin    string // "websocket", "webhook"
	Topic     string
	Publisher string
}

// Func maps one decoded payload to an item. Implementations must be pure:
// no I/O, no shared state.
type Func func(payload map[string]any, cfg Config) (news.Item, error)

type registry struct {
	mu      sync.RWMutex
	vendors map[string]Func
}

var defaultRegistry = &registry{vendors: make(map[string]Func)}

func init() {
	Register("reuters", mapReuters)
	Register("bloomberg", mapBloomberg)
	Register("cnbc", mapCNBC)
	Register("yahoo", mapYahoo)
}

// Register adds a vendor mapping function. Vendor keys are matched
// case-insensitively and by substring, so "webhook:reuters-wire" selects the
// "reuters" mapping.
func Register(vendor string, fn Func) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.vendors[strings.ToLower(vendor)] = fn
}

func lookup(vendor string) Func {
	vendor = strings.ToLower(vendor)

	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	if fn, ok := defaultRegistry.vendors[vendor]; ok {
		return fn
	}
	for key, fn := range defaultRegistry.vendors {
		if strings.Contains(vendor, key) {
			return fn
		}
	}
	return mapGeneric
}

// Map dispatches a decoded payload to the vendor's mapping function, falling
// back to the generic field-name heuristics for unknown vendors.
func Map(vendor string, payload map[string]any, cfg Config) (news.Item, error) {
	return lookup(vendor)(payload, cfg)
}

// MapRaw decodes a raw JSON payload, maps it, and retains the original bytes
// on the item for audit.
func MapRaw(vendor string, raw []byte, cfg Config) (news.Item, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return news.Item{}, fmt.Errorf("invalid JSON payload: %w", err)
	}

	item, err := Map(vendor, payload, cfg)
	if err != nil {
		return news.Item{}, err
	}
	item.RawPayload = json.RawMessage(raw)
	return item, nil
}

// str returns the first non-empty string value among the given keys.
func str(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := payload[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// val returns the first present value among the given keys.
func val(payload map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := payload[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// build assembles an item from extracted fields, applying config defaults.
// Title and link may not both be missing.
func build(cfg Config, title, link string, ts any, summary, topic, publisher string) (news.Item, error) {
	if title == "" && link == "" {
		return news.Item{}, ErrUnmappable
	}
	if title == "" {
		title = "No Title"
	}
	if topic == "" {
		topic = cfg.Topic
	}
	if publisher == "" {
		publisher = cfg.Publisher
	}
	if publisher == "" {
		publisher = cfg.Name
	}

	source := cfg.Name
	if cfg.Origin != "" {
		source = cfg.Origin + ":" + cfg.Name
	}

	item := news.New(title, link, news.ParseTime(ts), source, publisher)
	item.Topic = topic
	item.Summary = news.ClampSummary(summary)
	return item, nil
}
