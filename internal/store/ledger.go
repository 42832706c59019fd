package store

import (
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/newsmill/newsmill/internal/models"
)

// Ledger tracks feed-item URLs that have already produced a scheduled post.
// It only guards feed ingestion; bulk scheduling bypasses it on purpose.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// HasSeen reports whether a URL is already in the ledger.
func (l *Ledger) HasSeen(url string) (bool, error) {
	var count int64
	err := l.db.Model(&models.ProcessedURL{}).Where("url = ?", url).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check processed url")
	}
	return count > 0, nil
}

// MarkSeen records a URL as processed. Marking an already-seen URL is a no-op;
// the original first-seen timestamp wins.
func (l *Ledger) MarkSeen(url string, at time.Time) error {
	entry := models.ProcessedURL{URL: url, FirstSeen: at}
	err := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
	if err != nil {
		return errors.Wrap(err, "failed to mark url as processed")
	}
	return nil
}

// EvictOlderThan drops entries first seen before the cutoff. Eviction is
// advisory: a dropped entry can at worst cause one duplicate post.
func (l *Ledger) EvictOlderThan(cutoff time.Time) (int64, error) {
	res := l.db.Where("first_seen < ?", cutoff).Delete(&models.ProcessedURL{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed to evict processed urls")
	}
	return res.RowsAffected, nil
}
