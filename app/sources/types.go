package sources

// Sources represents the full source inventory loaded from sources.yaml.
type Sources struct {
	Feeds      []Feed      `yaml:"feeds"`
	WebSockets []WebSocket `yaml:"websockets"`
}

// Feed describes one polled HTTP feed.
type Feed struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Priority int    `yaml:"priority"`
}

// WebSocket describes one streaming vendor connection.
type WebSocket struct {
	Name             string            `yaml:"name"`
	URL              string            `yaml:"url"`
	Topic            string            `yaml:"topic"`
	Publisher        string            `yaml:"publisher"`
	Headers          map[string]string `yaml:"headers"`
	PingInterval     int               `yaml:"ping_interval"` // seconds
	ReconnectBackoff []int             `yaml:"reconnect_backoff"` // seconds
	MaxQueueSize     int               `yaml:"max_queue_size"`
}
