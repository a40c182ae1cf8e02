package news

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Item is the normalized, source-agnostic representation of one news item.
// It is the unit that flows through the event bus.
type Item struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Link       string          `json:"link"`
	Published  time.Time       `json:"published"`
	Source     string          `json:"source"`
	Publisher  string          `json:"publisher"`
	Topic      string          `json:"topic,omitempty"`
	Summary    string          `json:"summary,omitempty"`
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
}

const (
	fingerprintLength = 16
	maxSummaryLength  = 500
)

// Fingerprint derives the stable content identifier from title, link and the
// reported publication instant. Two ingestions of the same logical article at
// the same reported time yield the same fingerprint; an update with a
// different reported time yields a new one.
func Fingerprint(title, link string, published time.Time) string {
	content := title + link + published.UTC().Format(time.RFC3339)
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])[:fingerprintLength]
}

// New builds an Item with its fingerprint set. The ID is computed exactly
// once here and never recomputed afterwards.
func New(title, link string, published time.Time, source, publisher string) Item {
	published = published.UTC()
	return Item{
		ID:        Fingerprint(title, link, published),
		Title:     title,
		Link:      link,
		Published: published,
		Source:    source,
		Publisher: publisher,
	}
}

// ClampSummary limits a summary to the maximum retained length.
func ClampSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= maxSummaryLength {
		return s
	}
	return string(runes[:maxSummaryLength])
}
