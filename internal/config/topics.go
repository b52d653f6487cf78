package config

const (
	// TopicIndexMaintenance is the NSQ topic for post-upsert index
	// maintenance checks (threshold-triggered eviction).
	TopicIndexMaintenance = "index.maintenance"
)
