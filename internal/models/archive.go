package models

import "time"

// Snapshot is the Kafka message emitted for every announcement of an aggregation run.
type Snapshot struct {
	SnapshotID   string       `json:"snapshot_id"`
	TakenAt      time.Time    `json:"taken_at"`
	Announcement Announcement `json:"announcement"`
}

// ArchivedAnnouncement represents the canonical structure stored in Elasticsearch.
type ArchivedAnnouncement struct {
	Announcement
	SnapshotID  string    `json:"snapshot_id"`
	FetchedAt   time.Time `json:"fetched_at"`
	PublishedAt time.Time `json:"published_at"`
	Keywords    []string  `json:"keywords"`
	Fingerprint string    `json:"fingerprint"`
}
