package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Server configuration
	Port        string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SourcesFile string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yaml" description:"Path to the source inventory file"`

	// Push receiver configuration
	WebhookSecret string  `long:"webhook-secret" env:"WEBHOOK_SECRET" description:"Shared HMAC secret for inbound push verification (optional)"`
	PushRateLimit float64 `long:"push-rate-limit" env:"PUSH_RATE_LIMIT" default:"10" description:"Inbound push requests per second per vendor"`
	PushRateBurst int     `long:"push-rate-burst" env:"PUSH_RATE_BURST" default:"20" description:"Inbound push burst size per vendor"`

	// Bus configuration
	ChannelCapacity int `long:"channel-capacity" env:"CHANNEL_CAPACITY" default:"1000" description:"Retained items per bus channel"`
	DedupCapacity   int `long:"dedup-capacity" env:"DEDUP_CAPACITY" default:"10000" description:"Remembered fingerprints per bus channel"`

	// Poller configuration
	PollBaselineSeconds int `long:"poll-baseline" env:"POLL_BASELINE" default:"60" description:"Baseline poll interval in seconds"`
	PollMinSeconds      int `long:"poll-min" env:"POLL_MIN" default:"30" description:"Minimum poll interval in seconds"`
	PollMaxSeconds      int `long:"poll-max" env:"POLL_MAX" default:"900" description:"Maximum poll interval in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"MI-3/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:                raw.Port,
		SourcesFile:         raw.SourcesFile,
		WebhookSecret:       raw.WebhookSecret,
		PushRateLimit:       raw.PushRateLimit,
		PushRateBurst:       raw.PushRateBurst,
		ChannelCapacity:     raw.ChannelCapacity,
		DedupCapacity:       raw.DedupCapacity,
		PollBaselineSeconds: raw.PollBaselineSeconds,
		PollMinSeconds:      raw.PollMinSeconds,
		PollMaxSeconds:      raw.PollMaxSeconds,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if cfg.PollMinSeconds > cfg.PollBaselineSeconds || cfg.PollBaselineSeconds > cfg.PollMaxSeconds {
		return nil, fmt.Errorf("poll intervals must satisfy min <= baseline <= max, got %d/%d/%d",
			cfg.PollMinSeconds, cfg.PollBaselineSeconds, cfg.PollMaxSeconds)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
