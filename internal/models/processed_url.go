package models

import "time"

// ProcessedURL is the deduplication ledger entry for a feed item that has
// already been turned into a scheduled post. Entries are advisory after the
// retention window: evicting one can at worst cause a duplicate post.
type ProcessedURL struct {
	URL       string    `gorm:"primaryKey;size:2048" json:"url"`
	FirstSeen time.Time `gorm:"not null;index" json:"first_seen"`
}
