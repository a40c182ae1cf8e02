package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/htooayelwinict/MI-3/app/bus"
	"github.com/htooayelwinict/MI-3/app/poller"
	"github.com/htooayelwinict/MI-3/app/socket"
)

type PollerStatsInterface interface {
	Stats() []poller.HostStatus
}

type SocketStatsInterface interface {
	Stats() []socket.Status
}

var _ PollerStatsInterface = (*poller.Scheduler)(nil)
var _ SocketStatsInterface = (*socket.Manager)(nil)

type Handler struct {
	bus     *bus.Bus
	poller  PollerStatsInterface
	sockets SocketStatsInterface

	secret    string
	rateLimit rate.Limit
	rateBurst int
	started   time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	stats    map[string]*vendorStats
}

// vendorStats is the per-vendor outcome taxonomy of the push receiver.
// Every inbound request lands in exactly one outcome bucket.
type vendorStats struct {
	Received         uint64 `json:"received"`
	Accepted         uint64 `json:"accepted"`
	Duplicates       uint64 `json:"duplicates"`
	RateLimited      uint64 `json:"rate_limited"`
	Malformed        uint64 `json:"malformed"`
	InvalidSignature uint64 `json:"invalid_signature"`
}
