package api

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/htooayelwinict/MI-3/app/bus"
)

// NewHandler wires the HTTP surface to the bus and the ingestion components.
// Poller and sockets may be nil when the corresponding sources are not
// configured.
func NewHandler(b *bus.Bus, p PollerStatsInterface, s SocketStatsInterface,
	secret string, rateLimit float64, rateBurst int) *Handler {
	return &Handler{
		bus:       b,
		poller:    p,
		sockets:   s,
		secret:    secret,
		rateLimit: rate.Limit(rateLimit),
		rateBurst: rateBurst,
		started:   time.Now(),
		limiters:  make(map[string]*rate.Limiter),
		stats:     make(map[string]*vendorStats),
	}
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, version string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler, version)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, version string) {
	// Distribution endpoints
	r.GET("/items", handler.GetItems)
	r.GET("/stream", handler.StreamItems)

	// Push receiver endpoints
	r.POST("/push/inbound", handler.PushInbound)
	r.GET("/push/health", handler.PushHealth)
	r.GET("/push/stats", handler.PushStats)

	if handler.secret == "" {
		// Unverified test ingestion only exists when no secret is set.
		r.POST("/push/test", handler.PushTest)
		log.Printf("Push signature verification disabled (WEBHOOK_SECRET not set)")
	} else {
		log.Printf("Push signature verification enabled")
	}

	// Health and status endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"items":       "/items?limit=<n>&source=<name>&category=<topic>",
			"stream":      "/stream?channel=<name>",
			"push":        "/push/inbound (POST, signed)",
			"push_health": "/push/health",
			"push_stats":  "/push/stats",
			"health":      "/health",
			"stats":       "/stats",
		}
		if handler.secret == "" {
			endpoints["push_test"] = "/push/test (POST, unverified)"
		}

		c.JSON(200, gin.H{
			"service":     "MI-3",
			"version":     version,
			"description": "News ingestion and distribution engine with deduplication",
			"endpoints":   endpoints,
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
