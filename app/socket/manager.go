package socket

import (
	"log/slog"

	"github.com/htooayelwinict/MI-3/app/bus"
	"github.com/htooayelwinict/MI-3/app/sources"
)

// Manager owns one adapter per configured websocket source.
type Manager struct {
	adapters []*Adapter
}

func NewManager(configs []sources.WebSocket, b *bus.Bus) *Manager {
	m := &Manager{}
	for _, cfg := range configs {
		m.adapters = append(m.adapters, NewAdapter(cfg, b))
	}
	return m
}

func (m *Manager) Start() {
	for _, a := range m.adapters {
		a.Start()
	}
	if len(m.adapters) > 0 {
		slog.Info("Websocket adapters started", "count", len(m.adapters))
	}
}

func (m *Manager) Stop() {
	for _, a := range m.adapters {
		a.Stop()
	}
}

func (m *Manager) Stats() []Status {
	statuses := make([]Status, 0, len(m.adapters))
	for _, a := range m.adapters {
		statuses = append(statuses, a.Status())
	}
	return statuses
}
