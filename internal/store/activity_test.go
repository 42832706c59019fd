package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsmill/newsmill/internal/models"
)

func TestRecordWithPostID(t *testing.T) {
	db, mock := newMockDB(t)
	a := NewActivityStore(db)

	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WithArgs(models.ActionPublish, "https://news.example.com/a", int64(42),
			models.LogStatusSuccess, "Published post 42", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := a.Record(models.ActionPublish, "https://news.example.com/a",
		models.LogStatusSuccess, "Published post 42", WithPostID(42))
	require.NoError(t, err)

	expectationsMet(t, mock)
}

func TestFeedStats(t *testing.T) {
	db, mock := newMockDB(t)
	a := NewActivityStore(db)
	now := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	lastFetch := now.Add(-2 * time.Hour)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))
	mock.ExpectQuery(`SELECT \* FROM "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "created_at"}).
			AddRow(99, models.ActionRSS, lastFetch))

	stats, err := a.FeedStats(now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TodayCount)
	assert.Equal(t, int64(17), stats.TotalCount)
	require.NotNil(t, stats.LastFetch)
	assert.Equal(t, lastFetch, stats.LastFetch.UTC())

	expectationsMet(t, mock)
}

func TestFeedStatsNoRuns(t *testing.T) {
	db, mock := newMockDB(t)
	a := NewActivityStore(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	stats, err := a.FeedStats(time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.TodayCount)
	assert.Zero(t, stats.TotalCount)
	assert.Nil(t, stats.LastFetch)

	expectationsMet(t, mock)
}
