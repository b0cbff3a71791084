package redisx

import "time"

const (
	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Sweeper lease: sweep:lock:{job}
	KeySweepLock = "sweep:lock:%s"

	// Per-lot bid update channel; subscribers use ChannelBidEventsPattern.
	ChannelBidEvents        = "bid_events:%s"
	ChannelBidEventsPattern = "bid_events:*"
)

var (
	TTLDedup = 48 * time.Hour
)
