// Package sources loads and validates the source inventory: polled HTTP
// feeds and streaming websocket vendors.
package sources

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a sources YAML file, applies defaults and validates it.
func Load(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var srcs Sources
	if err := yaml.Unmarshal(data, &srcs); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&srcs)

	if err := validate(&srcs); err != nil {
		return nil, fmt.Errorf("invalid sources config %s: %w", path, err)
	}

	return &srcs, nil
}

// setDefaults applies default values to source configurations
func setDefaults(srcs *Sources) {
	for i := range srcs.Feeds {
		if srcs.Feeds[i].Category == "" {
			srcs.Feeds[i].Category = "news"
		}
	}
	for i := range srcs.WebSockets {
		ws := &srcs.WebSockets[i]
		if ws.Topic == "" {
			ws.Topic = "news"
		}
		if ws.PingInterval == 0 {
			ws.PingInterval = 30
		}
		if len(ws.ReconnectBackoff) == 0 {
			ws.ReconnectBackoff = []int{1, 2, 4, 8, 16, 32}
		}
		if ws.MaxQueueSize == 0 {
			ws.MaxQueueSize = 1000
		}
	}
}

// validate validates the source inventory
func validate(srcs *Sources) error {
	names := make(map[string]bool)

	for i, feed := range srcs.Feeds {
		if feed.Name == "" {
			return fmt.Errorf("feed at index %d: name is required", i)
		}
		if feed.URL == "" {
			return fmt.Errorf("feed %s: url is required", feed.Name)
		}
		u, err := url.Parse(feed.URL)
		if err != nil {
			return fmt.Errorf("feed %s: invalid url: %w", feed.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("feed %s: url scheme must be http or https, got %q", feed.Name, u.Scheme)
		}
		if names[feed.Name] {
			return fmt.Errorf("duplicate source name: %s", feed.Name)
		}
		names[feed.Name] = true
	}

	for i, ws := range srcs.WebSockets {
		if ws.Name == "" {
			return fmt.Errorf("websocket at index %d: name is required", i)
		}
		if ws.URL == "" {
			return fmt.Errorf("websocket %s: url is required", ws.Name)
		}
		u, err := url.Parse(ws.URL)
		if err != nil {
			return fmt.Errorf("websocket %s: invalid url: %w", ws.Name, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("websocket %s: url scheme must be ws or wss, got %q", ws.Name, u.Scheme)
		}
		if ws.PingInterval < 0 {
			return fmt.Errorf("websocket %s: ping_interval must be non-negative", ws.Name)
		}
		if ws.MaxQueueSize < 0 {
			return fmt.Errorf("websocket %s: max_queue_size must be non-negative", ws.Name)
		}
		for _, delay := range ws.ReconnectBackoff {
			if delay <= 0 {
				return fmt.Errorf("websocket %s: reconnect_backoff delays must be positive", ws.Name)
			}
		}
		if names[ws.Name] {
			return fmt.Errorf("duplicate source name: %s", ws.Name)
		}
		names[ws.Name] = true
	}

	return nil
}
