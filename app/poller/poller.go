// Package poller drives adaptive polling of HTTP feeds. Feeds are grouped by
// host; each host carries its own interval, conditional-request cache and
// failure state, and never has more than one fetch outstanding.
package poller

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/htooayelwinict/MI-3/app/bus"
	"github.com/htooayelwinict/MI-3/app/sources"
)

const (
	tickInterval  = time.Second
	maxJitter     = 5 * time.Second
	maxStagger    = 10 * time.Second
	relaxFactor   = 0.9 // applied after a poll that yielded new items
	settleTighten = 0.7 // pull an over-stretched interval back toward settle
	settleRelax   = 1.1 // stretch an under-stretched interval toward settle
)

// Options configures a Scheduler. Zero values fall back to defaults.
type Options struct {
	Baseline  time.Duration // starting interval per host, default 60s
	Min       time.Duration // interval floor, default 30s
	Max       time.Duration // interval ceiling, default 900s
	UserAgent string
	Client    *http.Client
}

type feedState struct {
	cfg          sources.Feed
	etag         string
	lastModified string
}

type hostState struct {
	host            string
	feeds           []*feedState
	interval        time.Duration
	nextDue         time.Time
	fetching        bool
	consecutiveFail int
	lastSuccess     time.Time
	lastError       string
	polls           uint64
	items           uint64
}

// result is the outcome of one host fetch, reported back to the run loop.
type result struct {
	host       string
	newItems   int
	unchanged  bool // every feed answered 304
	failed     bool
	retryAfter time.Duration // from a 429/503 Retry-After header, 0 if absent
	errMsg     string
}

type Scheduler struct {
	bus       *bus.Bus
	client    *http.Client
	userAgent string
	baseline  time.Duration
	min       time.Duration
	max       time.Duration

	mu    sync.Mutex
	hosts map[string]*hostState

	results chan result
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(b *bus.Bus, feeds []sources.Feed, opts Options) *Scheduler {
	if opts.Baseline == 0 {
		opts.Baseline = 60 * time.Second
	}
	if opts.Min == 0 {
		opts.Min = 30 * time.Second
	}
	if opts.Max == 0 {
		opts.Max = 900 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		bus:       b,
		client:    opts.Client,
		userAgent: opts.UserAgent,
		baseline:  opts.Baseline,
		min:       opts.Min,
		max:       opts.Max,
		hosts:     make(map[string]*hostState),
		results:   make(chan result),
		ctx:       ctx,
		cancel:    cancel,
	}

	now := time.Now().UTC()
	for _, feed := range feeds {
		u, err := url.Parse(feed.URL)
		if err != nil {
			slog.Warn("Skipping feed with unparseable URL", "feed", feed.Name, "error", err)
			continue
		}
		host := u.Host

		st, ok := s.hosts[host]
		if !ok {
			// Stagger first polls so hosts do not all fire on the same tick.
			st = &hostState{
				host:     host,
				interval: s.baseline,
				nextDue:  now.Add(rand.N(maxStagger)),
			}
			s.hosts[host] = st
		}
		st.feeds = append(st.feeds, &feedState{cfg: feed})
	}

	return s
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	slog.Info("Poller started", "hosts", len(s.hosts), "baseline", s.baseline.String())
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	inflight := 0
	for {
		select {
		case <-s.ctx.Done():
			// Drain outstanding fetches so their goroutines can exit.
			for inflight > 0 {
				<-s.results
				inflight--
			}
			return
		case res := <-s.results:
			inflight--
			s.applyResult(res, time.Now().UTC())
		case <-ticker.C:
			now := time.Now().UTC()
			s.mu.Lock()
			for _, st := range s.hosts {
				if st.fetching || now.Before(st.nextDue) {
					continue
				}
				st.fetching = true
				st.polls++
				inflight++
				go func(st *hostState) {
					s.results <- s.fetchHost(st)
				}(st)
			}
			s.mu.Unlock()
		}
	}
}

// applyResult folds one fetch outcome into the host's interval and failure
// state, then schedules the next poll with jitter.
func (s *Scheduler) applyResult(res result, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.hosts[res.host]
	if !ok {
		return
	}
	st.fetching = false

	switch {
	case res.failed:
		st.consecutiveFail++
		st.lastError = res.errMsg
		if res.retryAfter > 0 {
			st.interval = s.clamp(res.retryAfter)
		} else {
			st.interval = s.clamp(max(st.interval, s.min) * 2)
		}
		slog.Warn("Host poll failed", "host", st.host, "consecutive", st.consecutiveFail,
			"interval", st.interval.String(), "error", res.errMsg)
	case res.newItems > 0:
		st.consecutiveFail = 0
		st.lastError = ""
		st.lastSuccess = now
		st.items += uint64(res.newItems)
		st.interval = s.clamp(time.Duration(float64(st.interval) * relaxFactor))
		slog.Debug("Host poll yielded items", "host", st.host, "new", res.newItems,
			"interval", st.interval.String())
	default:
		// Success with nothing new (including all-304): drift toward the
		// settle interval of twice baseline rather than jumping there.
		st.consecutiveFail = 0
		st.lastError = ""
		st.lastSuccess = now
		st.interval = s.clamp(s.settle(st.interval))
	}

	st.nextDue = now.Add(st.interval + rand.N(maxJitter))
}

// settle moves the interval one step toward 2x baseline from either side.
func (s *Scheduler) settle(current time.Duration) time.Duration {
	target := 2 * s.baseline
	if current < target {
		return min(target, time.Duration(float64(current)*settleRelax))
	}
	return max(target, time.Duration(float64(current)*settleTighten))
}

func (s *Scheduler) clamp(d time.Duration) time.Duration {
	if d < s.min {
		return s.min
	}
	if d > s.max {
		return s.max
	}
	return d
}

// HostStatus reports the observable state of one polled host.
type HostStatus struct {
	Host            string `json:"host"`
	Feeds           int    `json:"feeds"`
	IntervalSeconds int    `json:"interval_seconds"`
	NextDue         string `json:"next_due"`
	ConsecutiveFail int    `json:"consecutive_failures"`
	LastSuccess     string `json:"last_success,omitempty"`
	LastError       string `json:"last_error,omitempty"`
	Polls           uint64 `json:"polls"`
	Items           uint64 `json:"items"`
}

func (s *Scheduler) Stats() []HostStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]HostStatus, 0, len(s.hosts))
	for _, st := range s.hosts {
		status := HostStatus{
			Host:            st.host,
			Feeds:           len(st.feeds),
			IntervalSeconds: int(st.interval / time.Second),
			NextDue:         st.nextDue.Format(time.RFC3339),
			ConsecutiveFail: st.consecutiveFail,
			LastError:       st.lastError,
			Polls:           st.polls,
			Items:           st.items,
		}
		if !st.lastSuccess.IsZero() {
			status.LastSuccess = st.lastSuccess.Format(time.RFC3339)
		}
		statuses = append(statuses, status)
	}
	return statuses
}
