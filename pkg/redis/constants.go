package redis

import "time"

// NamespaceCache is the top-level key prefix for cached reads.
const NamespaceCache = "cache"

// Redis contexts define the second-level key prefixes for pipeline domains.
const (
	ContextContent      = "content"      // Content aggregates (counters, status)
	ContextScoring      = "scoring"      // Scoring snapshots
	ContextNotification = "notification" // Unread counts
)

// TTL constants define the time-to-live durations for cached data.
const (
	TTLContentAggregate = 5 * time.Minute // Content counter/status cache TTL
	TTLScoringSnapshot  = 1 * time.Hour   // Analysis snapshot cache TTL
	TTLUnreadCount      = 1 * time.Minute // Notification unread count TTL
)
