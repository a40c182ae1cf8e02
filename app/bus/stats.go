package bus

// ChannelStats reports the observable state of one channel.
type ChannelStats struct {
	Items       int    `json:"items"`
	Capacity    int    `json:"capacity"`
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Duplicates  uint64 `json:"duplicates"`
	DedupSize   int    `json:"dedup_size"`
}

// Stats reports per-channel statistics for the health/statistics surface.
type Stats struct {
	Channels map[string]ChannelStats `json:"channels"`
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	channels := make([]*channel, 0, len(b.channels))
	for _, ch := range b.channels {
		channels = append(channels, ch)
	}
	b.mu.RUnlock()

	stats := Stats{Channels: make(map[string]ChannelStats, len(channels))}
	for _, ch := range channels {
		ch.mu.RLock()
		stats.Channels[ch.name] = ChannelStats{
			Items:       ch.count,
			Capacity:    len(ch.buf),
			Subscribers: len(ch.subs),
			Published:   ch.published,
			Duplicates:  ch.duplicates,
			DedupSize:   ch.dedup.Len(),
		}
		ch.mu.RUnlock()
	}
	return stats
}
