package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/htooayelwinict/MI-3/app/bus"
	"github.com/htooayelwinict/MI-3/app/mapper"
)

// Inbound payloads larger than this are rejected outright.
const maxPushBody = 1 << 20

// PushInbound ingests one signed vendor webhook delivery.
func (h *Handler) PushInbound(c *gin.Context) {
	vendor := vendorFrom(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPushBody+1))
	if err != nil || len(body) > maxPushBody {
		h.record(vendor, func(s *vendorStats) { s.Received++; s.Malformed++ })
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body unreadable or too large"})
		return
	}

	if h.secret != "" && !h.verifySignature(body, signatureFrom(c)) {
		h.record(vendor, func(s *vendorStats) { s.Received++; s.InvalidSignature++ })
		slog.Warn("Push signature verification failed", "vendor", vendor, "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	if !h.limiter(vendor).Allow() {
		h.record(vendor, func(s *vendorStats) { s.Received++; s.RateLimited++ })
		c.Header("Retry-After", "1")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return
	}

	h.ingest(c, vendor, body)
}

// PushTest ingests without signature verification. The route is only
// registered when no webhook secret is configured.
func (h *Handler) PushTest(c *gin.Context) {
	vendor := vendorFrom(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPushBody+1))
	if err != nil || len(body) > maxPushBody {
		h.record(vendor, func(s *vendorStats) { s.Received++; s.Malformed++ })
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body unreadable or too large"})
		return
	}

	h.ingest(c, vendor, body)
}

func (h *Handler) ingest(c *gin.Context, vendor string, body []byte) {
	item, err := mapper.MapRaw(vendor, body, mapper.Config{
		Name:   vendor,
		Origin: "webhook",
	})
	if err != nil {
		h.record(vendor, func(s *vendorStats) { s.Received++; s.Malformed++ })
		slog.Debug("Push payload not mappable", "vendor", vendor, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload not mappable", "details": err.Error()})
		return
	}

	if h.bus.Publish(bus.RawChannel, item, "webhook:"+vendor) {
		h.record(vendor, func(s *vendorStats) { s.Received++; s.Accepted++ })
		c.JSON(http.StatusOK, gin.H{"status": "accepted", "item_id": item.ID})
		return
	}

	// An exact redelivery is acknowledged so the vendor stops retrying.
	h.record(vendor, func(s *vendorStats) { s.Received++; s.Duplicates++ })
	c.JSON(http.StatusOK, gin.H{"status": "duplicate", "item_id": item.ID})
}

// PushHealth reports receiver readiness derived from the outcome taxonomy.
func (h *Handler) PushHealth(c *gin.Context) {
	var received, accepted, duplicates uint64
	h.mu.Lock()
	for _, s := range h.stats {
		received += s.Received
		accepted += s.Accepted
		duplicates += s.Duplicates
	}
	h.mu.Unlock()

	status := "ready"
	if received > 0 {
		handled := float64(accepted+duplicates) / float64(received)
		switch {
		case handled >= 0.9:
			status = "healthy"
		case handled >= 0.5:
			status = "degraded"
		default:
			status = "unhealthy"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":              status,
		"signature_verification": h.secret != "",
		"received":            received,
		"timestamp":           time.Now().In(time.Local).Format(time.RFC3339),
	})
}

func (h *Handler) PushStats(c *gin.Context) {
	h.mu.Lock()
	vendors := make(map[string]vendorStats, len(h.stats))
	for vendor, s := range h.stats {
		vendors[vendor] = *s
	}
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"vendors": vendors,
		"bus":     h.bus.Stats(),
	})
}

// vendorFrom identifies the sending vendor, preferring the explicit header
// over the user agent.
func vendorFrom(c *gin.Context) string {
	if vendor := c.GetHeader("X-Vendor"); vendor != "" {
		return strings.ToLower(vendor)
	}
	if ua := c.Request.UserAgent(); ua != "" {
		// "Reuters-Webhook/2.1" identifies as "reuters-webhook".
		name, _, _ := strings.Cut(ua, "/")
		if name != "" {
			return strings.ToLower(strings.TrimSpace(name))
		}
	}
	return "unknown"
}

// signatureFrom collects the signature from the header conventions vendors
// actually use.
func signatureFrom(c *gin.Context) string {
	for _, header := range []string{"X-Signature", "X-Hub-Signature-256", "X-Slack-Signature"} {
		if sig := c.GetHeader(header); sig != "" {
			return sig
		}
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Signature ") {
		return strings.TrimPrefix(auth, "Signature ")
	}
	return ""
}

// verifySignature checks an HMAC-SHA256 hex signature in constant time.
// Accepted forms: bare hex, "sha256=<hex>" and "v0=<hex>".
func (h *Handler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")
	signature = strings.TrimPrefix(signature, "v0=")

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}

func (h *Handler) limiter(vendor string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[vendor]
	if !ok {
		l = rate.NewLimiter(h.rateLimit, h.rateBurst)
		h.limiters[vendor] = l
	}
	return l
}

func (h *Handler) record(vendor string, update func(*vendorStats)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.stats[vendor]
	if !ok {
		s = &vendorStats{}
		h.stats[vendor] = s
	}
	update(s)
}
