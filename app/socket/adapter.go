// Package socket maintains persistent websocket connections to streaming
// news vendors. Each adapter owns one connection, reconnecting with jittered
// exponential backoff and feeding decoded messages through a bounded queue.
package socket

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/htooayelwinict/MI-3/app/bus"
	"github.com/htooayelwinict/MI-3/app/mapper"
	"github.com/htooayelwinict/MI-3/app/sources"
)

// Connection states, exposed on the status surface.
const (
	StateDisconnected int32 = iota
	StateConnecting
	StateConnected
	StateBackoff
)

func stateString(state int32) string {
	switch state {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	default:
		return "disconnected"
	}
}

const (
	handshakeTimeout = 30 * time.Second
	// A connection held this long counts as healthy and resets the
	// reconnect attempt counter.
	stableAfter   = 30 * time.Second
	backoffJitter = 0.25
)

type Adapter struct {
	cfg    sources.WebSocket
	bus    *bus.Bus
	dialer *websocket.Dialer

	state    atomic.Int32
	attempts atomic.Int32

	queue chan []byte

	received    atomic.Uint64
	bytesRead   atomic.Uint64
	published   atomic.Uint64
	dropped     atomic.Uint64
	unmappable  atomic.Uint64
	reconnects  atomic.Uint64
	lastMessage atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAdapter(cfg sources.WebSocket, b *bus.Bus) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		cfg: cfg,
		bus: b,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		queue:  make(chan []byte, cfg.MaxQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (a *Adapter) Start() {
	a.wg.Add(2)
	go a.run()
	go a.consume()
}

func (a *Adapter) Stop() {
	a.cancel()
	a.wg.Wait()
}

// run is the connect loop: dial, read until failure, back off, repeat.
func (a *Adapter) run() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			a.state.Store(StateDisconnected)
			return
		default:
		}

		a.state.Store(StateConnecting)
		attempt := a.attempts.Add(1)

		header := http.Header{}
		for key, value := range a.cfg.Headers {
			header.Set(key, value)
		}

		conn, _, err := a.dialer.DialContext(a.ctx, a.cfg.URL, header)
		if err != nil {
			if a.ctx.Err() != nil {
				a.state.Store(StateDisconnected)
				return
			}
			delay := a.backoffDelay(int(attempt))
			slog.Warn("Websocket connect failed", "source", a.cfg.Name,
				"attempt", attempt, "retry_in", delay.String(), "error", err)
			a.state.Store(StateBackoff)
			select {
			case <-a.ctx.Done():
				a.state.Store(StateDisconnected)
				return
			case <-time.After(delay):
			}
			continue
		}

		a.state.Store(StateConnected)
		slog.Info("Websocket connected", "source", a.cfg.Name, "url", a.cfg.URL)

		connectedAt := time.Now()
		a.readLoop(conn)
		conn.Close()

		if a.ctx.Err() != nil {
			a.state.Store(StateDisconnected)
			return
		}

		a.reconnects.Add(1)
		if time.Since(connectedAt) >= stableAfter {
			a.attempts.Store(0)
		}

		delay := a.backoffDelay(int(a.attempts.Load()) + 1)
		slog.Warn("Websocket disconnected", "source", a.cfg.Name,
			"connected_for", time.Since(connectedAt).String(), "retry_in", delay.String())
		a.state.Store(StateBackoff)
		select {
		case <-a.ctx.Done():
			a.state.Store(StateDisconnected)
			return
		case <-time.After(delay):
		}
	}
}

// readLoop reads frames until the connection dies or the adapter stops.
// Liveness is enforced with pings: a peer that neither sends data nor
// answers pongs within two intervals is considered dead.
func (a *Adapter) readLoop(conn *websocket.Conn) {
	pingInterval := time.Duration(a.cfg.PingInterval) * time.Second
	readDeadline := 2 * pingInterval

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	done := make(chan struct{})
	defer close(done)

	// Closing the connection is the only way to unblock ReadMessage.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if a.ctx.Err() == nil {
				slog.Debug("Websocket read failed", "source", a.cfg.Name, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		a.received.Add(1)
		a.bytesRead.Add(uint64(len(data)))
		a.lastMessage.Store(time.Now().Unix())
		a.enqueue(data)
	}
}

// enqueue adds a frame to the bounded queue, evicting the oldest entry when
// full so a slow consumer sheds stale messages instead of fresh ones.
func (a *Adapter) enqueue(data []byte) {
	select {
	case a.queue <- data:
		return
	default:
	}

	select {
	case <-a.queue:
		a.dropped.Add(1)
	default:
	}

	select {
	case a.queue <- data:
	default:
		a.dropped.Add(1)
	}
}

// consume decodes queued frames and publishes the mapped items.
func (a *Adapter) consume() {
	defer a.wg.Done()

	mapCfg := mapper.Config{
		Name:      a.cfg.Name,
		Origin:    "websocket",
		Topic:     a.cfg.Topic,
		Publisher: a.cfg.Publisher,
	}

	for {
		select {
		case <-a.ctx.Done():
			return
		case data := <-a.queue:
			if isHeartbeat(data) {
				continue
			}
			item, err := mapper.MapRaw(a.cfg.Name, data, mapCfg)
			if err != nil {
				a.unmappable.Add(1)
				slog.Debug("Websocket payload not mappable", "source", a.cfg.Name, "error", err)
				continue
			}
			if a.bus.Publish(bus.RawChannel, item, "websocket:"+a.cfg.Name) {
				a.published.Add(1)
			}
		}
	}
}

// backoffDelay returns the reconnect delay for the given attempt with
// +/-25% jitter. Attempts beyond the configured sequence stay at its last
// entry.
func (a *Adapter) backoffDelay(attempt int) time.Duration {
	seq := a.cfg.ReconnectBackoff
	if len(seq) == 0 {
		return time.Second
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(seq) {
		idx = len(seq) - 1
	}

	base := time.Duration(seq[idx]) * time.Second
	jitter := 1 - backoffJitter + rand.Float64()*2*backoffJitter
	return time.Duration(float64(base) * jitter)
}

// isHeartbeat recognizes common keepalive payloads vendors interleave with
// news frames.
func isHeartbeat(data []byte) bool {
	var probe struct {
		Type  string `json:"type"`
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	switch probe.Type {
	case "ping", "pong", "heartbeat", "keepalive":
		return true
	}
	switch probe.Event {
	case "ping", "pong", "heartbeat", "keepalive":
		return true
	}
	return false
}

// Status reports the observable state of one adapter.
type Status struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	Attempts    int    `json:"attempts"`
	Queued      int    `json:"queued"`
	Received    uint64 `json:"received"`
	BytesRead   uint64 `json:"bytes_read"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
	Unmappable  uint64 `json:"unmappable"`
	Reconnects  uint64 `json:"reconnects"`
	LastMessage string `json:"last_message,omitempty"`
}

func (a *Adapter) Status() Status {
	status := Status{
		Name:       a.cfg.Name,
		State:      stateString(a.state.Load()),
		Attempts:   int(a.attempts.Load()),
		Queued:     len(a.queue),
		Received:   a.received.Load(),
		BytesRead:  a.bytesRead.Load(),
		Published:  a.published.Load(),
		Dropped:    a.dropped.Load(),
		Unmappable: a.unmappable.Load(),
		Reconnects: a.reconnects.Load(),
	}
	if last := a.lastMessage.Load(); last > 0 {
		status.LastMessage = time.Unix(last, 0).UTC().Format(time.RFC3339)
	}
	return status
}
