package cfg

type Cfg struct {
	// Server configuration
	Port        string
	SourcesFile string

	// Push receiver configuration
	WebhookSecret string
	PushRateLimit float64
	PushRateBurst int

	// Bus configuration
	ChannelCapacity int
	DedupCapacity   int

	// Poller configuration
	PollBaselineSeconds int
	PollMinSeconds      int
	PollMaxSeconds      int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
