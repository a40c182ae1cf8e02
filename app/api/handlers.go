package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/htooayelwinict/MI-3/app/bus"
	"github.com/htooayelwinict/MI-3/app/news"
)

// GetItems returns a most-recent-first snapshot of a bus channel.
func (h *Handler) GetItems(c *gin.Context) {
	channel := c.DefaultQuery("channel", bus.RawChannel)

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	source := c.Query("source")
	category := c.Query("category")
	var filter func(news.Item) bool
	if source != "" || category != "" {
		filter = func(item news.Item) bool {
			if source != "" && item.Source != source {
				return false
			}
			if category != "" && item.Topic != category {
				return false
			}
			return true
		}
	}

	items := h.bus.Snapshot(channel, limit, filter)

	c.JSON(http.StatusOK, gin.H{
		"channel": channel,
		"count":   len(items),
		"items":   items,
	})
}

// StreamItems delivers bus messages as server-sent events. A slow client's
// events are dropped rather than blocking publishers.
func (h *Handler) StreamItems(c *gin.Context) {
	channel := c.DefaultQuery("channel", bus.RawChannel)

	events := make(chan bus.Message, 64)
	sub := h.bus.Subscribe(channel, func(m bus.Message) {
		select {
		case events <- m:
		default:
		}
	})
	defer h.bus.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case m := <-events:
			c.SSEvent("item", m.Item)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}

	busStats := h.bus.Stats()
	totalItems := 0
	for _, ch := range busStats.Channels {
		totalItems += ch.Items
	}
	health["channels"] = len(busStats.Channels)
	health["items"] = totalItems

	if h.poller != nil {
		health["polled_hosts"] = len(h.poller.Stats())
	}
	if h.sockets != nil {
		connected := 0
		statuses := h.sockets.Stats()
		for _, s := range statuses {
			if s.State == "connected" {
				connected++
			}
		}
		health["websockets"] = len(statuses)
		health["websockets_connected"] = connected
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"bus":       h.bus.Stats(),
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if h.poller != nil {
		stats["poller"] = h.poller.Stats()
	}
	if h.sockets != nil {
		stats["websockets"] = h.sockets.Stats()
	}

	c.JSON(http.StatusOK, stats)
}
