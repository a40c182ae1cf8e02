package poller

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/htooayelwinict/MI-3/app/bus"
	"github.com/htooayelwinict/MI-3/app/news"
)

const acceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"

// fetchHost polls every feed on the host sequentially and aggregates the
// outcomes into a single result for interval adaptation.
func (s *Scheduler) fetchHost(st *hostState) result {
	res := result{host: st.host, unchanged: true}

	for _, fs := range st.feeds {
		newItems, notModified, retryAfter, err := s.fetchFeed(fs)
		if err != nil {
			res.failed = true
			res.unchanged = false
			res.errMsg = fmt.Sprintf("%s: %v", fs.cfg.Name, err)
			if retryAfter > res.retryAfter {
				res.retryAfter = retryAfter
			}
			continue
		}
		if !notModified {
			res.unchanged = false
		}
		res.newItems += newItems
	}

	return res
}

// fetchFeed performs one conditional GET. A 304 is a success that yields
// nothing; a 429 or 503 may carry a Retry-After the scheduler must honor.
func (s *Scheduler) fetchFeed(fs *feedState) (newItems int, notModified bool, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(s.ctx, "GET", fs.cfg.URL, nil)
	if err != nil {
		return 0, false, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Referer", req.URL.Scheme+"://"+req.URL.Host+"/")
	if fs.etag != "" {
		req.Header.Set("If-None-Match", fs.etag)
	}
	if fs.lastModified != "" {
		req.Header.Set("If-Modified-Since", fs.lastModified)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, false, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return 0, true, 0, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return 0, false, parseRetryAfter(resp.Header.Get("Retry-After")),
			fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return 0, false, 0, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, false, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	// Cache validators only after a successful read.
	if etag := resp.Header.Get("ETag"); etag != "" {
		fs.etag = etag
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		fs.lastModified = lm
	}

	newItems, err = s.publishEntries(fs, data)
	if err != nil {
		return 0, false, 0, err
	}
	return newItems, false, 0, nil
}

// publishEntries parses a feed document and publishes each entry; the bus
// drops entries already seen, so the return counts genuinely new items.
func (s *Scheduler) publishEntries(fs *feedState, data []byte) (int, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	publisher := parsed.Title
	if publisher == "" {
		publisher = fs.cfg.Name
	}

	accepted := 0
	for _, entry := range parsed.Items {
		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		}

		item := news.New(entry.Title, entry.Link, published, "feed:"+fs.cfg.Name, publisher)
		if len(entry.Categories) > 0 {
			item.Topic = entry.Categories[0]
		} else {
			item.Topic = fs.cfg.Category
		}
		item.Summary = news.ClampSummary(entry.Description)

		if s.bus.Publish(bus.RawChannel, item, "feed:"+fs.cfg.Name) {
			accepted++
		}
	}

	slog.Debug("Feed processed", "feed", fs.cfg.Name, "total", len(parsed.Items), "new", accepted)
	return accepted, nil
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
