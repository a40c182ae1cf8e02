package mapper

import (
	"github.com/htooayelwinict/MI-3/app/news"
)

// Reuters pushes {"headline": ..., "url": ..., "timestamp": ..., "category": ...}.
func mapReuters(payload map[string]any, cfg Config) (news.Item, error) {
	return build(cfg,
		str(payload, "headline", "title"),
		str(payload, "url", "canonical_url", "link"),
		val(payload, "timestamp", "date_published", "published"),
		str(payload, "summary", "description", "lead"),
		str(payload, "category"),
		"Reuters",
	)
}

// Bloomberg pushes {"headline": ..., "story_url": ..., "datetime": ..., "topic": ...}.
func mapBloomberg(payload map[string]any, cfg Config) (news.Item, error) {
	return build(cfg,
		str(payload, "headline", "title"),
		str(payload, "url", "story_url"),
		val(payload, "datetime", "published_at", "timestamp"),
		str(payload, "summary", "abstract"),
		str(payload, "topic", "primary_category", "category"),
		"Bloomberg",
	)
}

// CNBC payloads vary; prefer title/link with datePublished.
func mapCNBC(payload map[string]any, cfg Config) (news.Item, error) {
	return build(cfg,
		str(payload, "title", "headline"),
		str(payload, "link", "url"),
		val(payload, "datePublished", "dateFirstPublished", "timestamp"),
		str(payload, "description", "summary"),
		str(payload, "section"),
		"CNBC",
	)
}

// Yahoo Finance uses RSS-flavored field names.
func mapYahoo(payload map[string]any, cfg Config) (news.Item, error) {
	return build(cfg,
		str(payload, "title"),
		str(payload, "link"),
		val(payload, "pubDate", "published"),
		str(payload, "summary", "description"),
		str(payload, "category"),
		"Yahoo Finance",
	)
}

// mapGeneric tries common field-name chains for unknown vendors.
func mapGeneric(payload map[string]any, cfg Config) (news.Item, error) {
	return build(cfg,
		str(payload, "title", "headline", "subject", "name"),
		str(payload, "url", "link", "href", "canonical_url", "story_url"),
		val(payload, "timestamp", "published", "datePublished", "datetime", "created_at", "date"),
		str(payload, "summary", "description", "body", "abstract", "excerpt", "lead"),
		str(payload, "category", "topic", "section"),
		str(payload, "publisher"),
	)
}
