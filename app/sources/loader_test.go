package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidSources(t *testing.T) {
	content := `
feeds:
  - name: "reuters-business"
    url: "https://reuters.com/business/rss"
    category: "business"
    priority: 1
  - name: "cnbc-top"
    url: "https://cnbc.com/id/100003114/device/rss/rss.html"

websockets:
  - name: "bloomberg-wire"
    url: "wss://stream.bloomberg.example/v1/news"
    topic: "markets"
    publisher: "Bloomberg"
    headers:
      Authorization: "Bearer token"
    ping_interval: 15
    reconnect_backoff: [1, 2, 4]
    max_queue_size: 500
`

	srcs, err := Load(writeSources(t, content))
	if err != nil {
		t.Fatal(err)
	}

	if len(srcs.Feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got %d", len(srcs.Feeds))
	}
	if srcs.Feeds[0].Name != "reuters-business" {
		t.Errorf("Expected name 'reuters-business', got '%s'", srcs.Feeds[0].Name)
	}
	if srcs.Feeds[0].Category != "business" {
		t.Errorf("Expected category 'business', got '%s'", srcs.Feeds[0].Category)
	}
	if srcs.Feeds[0].Priority != 1 {
		t.Errorf("Expected priority 1, got %d", srcs.Feeds[0].Priority)
	}

	if len(srcs.WebSockets) != 1 {
		t.Fatalf("Expected 1 websocket, got %d", len(srcs.WebSockets))
	}
	ws := srcs.WebSockets[0]
	if ws.PingInterval != 15 {
		t.Errorf("Expected ping interval 15, got %d", ws.PingInterval)
	}
	if len(ws.ReconnectBackoff) != 3 {
		t.Errorf("Expected 3 backoff steps, got %d", len(ws.ReconnectBackoff))
	}
	if ws.MaxQueueSize != 500 {
		t.Errorf("Expected max queue size 500, got %d", ws.MaxQueueSize)
	}
	if ws.Headers["Authorization"] != "Bearer token" {
		t.Errorf("Expected Authorization header preserved, got '%s'", ws.Headers["Authorization"])
	}
}

func TestLoadDefaults(t *testing.T) {
	content := `
feeds:
  - name: "plain"
    url: "https://example.com/rss"

websockets:
  - name: "plain-ws"
    url: "wss://example.com/stream"
`

	srcs, err := Load(writeSources(t, content))
	if err != nil {
		t.Fatal(err)
	}

	if srcs.Feeds[0].Category != "news" {
		t.Errorf("Expected default category 'news', got '%s'", srcs.Feeds[0].Category)
	}

	ws := srcs.WebSockets[0]
	if ws.Topic != "news" {
		t.Errorf("Expected default topic 'news', got '%s'", ws.Topic)
	}
	if ws.PingInterval != 30 {
		t.Errorf("Expected default ping interval 30, got %d", ws.PingInterval)
	}
	want := []int{1, 2, 4, 8, 16, 32}
	if len(ws.ReconnectBackoff) != len(want) {
		t.Fatalf("Expected %d default backoff steps, got %d", len(want), len(ws.ReconnectBackoff))
	}
	for i, delay := range want {
		if ws.ReconnectBackoff[i] != delay {
			t.Errorf("Expected backoff step %d to be %d, got %d", i, delay, ws.ReconnectBackoff[i])
		}
	}
	if ws.MaxQueueSize != 1000 {
		t.Errorf("Expected default max queue size 1000, got %d", ws.MaxQueueSize)
	}
}

func TestLoadMissingName(t *testing.T) {
	content := `
feeds:
  - url: "https://example.com/rss"
`

	if _, err := Load(writeSources(t, content)); err == nil {
		t.Error("Expected error for feed without name")
	}
}

func TestLoadBadFeedScheme(t *testing.T) {
	content := `
feeds:
  - name: "bad"
    url: "ftp://example.com/rss"
`

	if _, err := Load(writeSources(t, content)); err == nil {
		t.Error("Expected error for non-http feed URL")
	}
}

func TestLoadBadSocketScheme(t *testing.T) {
	content := `
websockets:
  - name: "bad"
    url: "https://example.com/stream"
`

	if _, err := Load(writeSources(t, content)); err == nil {
		t.Error("Expected error for non-ws websocket URL")
	}
}

func TestLoadDuplicateNames(t *testing.T) {
	content := `
feeds:
  - name: "same"
    url: "https://example.com/a"

websockets:
  - name: "same"
    url: "wss://example.com/b"
`

	if _, err := Load(writeSources(t, content)); err == nil {
		t.Error("Expected error for duplicate source names")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing sources file")
	}
}
