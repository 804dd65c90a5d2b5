package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	impressiondomain "github.com/sushiltimalsina/bemasathi/internal/impression/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestRecorder(t *testing.T, dsnName string) (impressiondomain.Recorder, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+dsnName+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&impressiondomain.Impression{}))

	return NewRecorder(RecorderParam{DB: db, Log: zap.NewNop()}), db
}

func seedImpression(t *testing.T, db *gorm.DB) *impressiondomain.Impression {
	t.Helper()
	imp := &impressiondomain.Impression{
		ID:         601,
		BuyerID:    42,
		PolicyID:   501,
		Position:   1,
		MatchScore: 87.5,
		Variant:    "control",
		ShownAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, db.Create(imp).Error)
	return imp
}

func TestRecordShown_WritesAsync(t *testing.T) {
	rec, db := newTestRecorder(t, "impression_shown")

	rec.RecordShown(context.Background(), []*impressiondomain.Impression{
		{ID: 1, BuyerID: 42, PolicyID: 501, Position: 1, MatchScore: 80, Variant: "control", ShownAt: time.Now().UTC()},
		{ID: 2, BuyerID: 42, PolicyID: 502, Position: 2, MatchScore: 70, Variant: "control", ShownAt: time.Now().UTC()},
	})

	// The write is fire-and-forget; poll until it lands.
	deadline := time.Now().Add(2 * time.Second)
	var count int64
	for time.Now().Before(deadline) {
		assert.NoError(t, db.Model(&impressiondomain.Impression{}).Count(&count).Error)
		if count == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, int64(2), count)
}

func TestMarkOutcomes(t *testing.T) {
	rec, db := newTestRecorder(t, "impression_outcomes")
	imp := seedImpression(t, db)

	assert.NoError(t, rec.MarkClicked(context.Background(), imp.ID.String()))
	assert.NoError(t, rec.MarkPurchased(context.Background(), imp.ID.String()))
	assert.NoError(t, rec.RecordTimeSpent(context.Background(), imp.ID.String(), 45))

	var stored impressiondomain.Impression
	assert.NoError(t, db.First(&stored, "id = ?", imp.ID).Error)
	assert.True(t, stored.Clicked)
	assert.True(t, stored.Purchased)
	assert.Equal(t, 45, stored.TimeSpentSeconds)
}

func TestRecordTimeSpent_ClampsNegative(t *testing.T) {
	rec, db := newTestRecorder(t, "impression_negative")
	imp := seedImpression(t, db)

	assert.NoError(t, rec.RecordTimeSpent(context.Background(), imp.ID.String(), -10))

	var stored impressiondomain.Impression
	assert.NoError(t, db.First(&stored, "id = ?", imp.ID).Error)
	assert.Equal(t, 0, stored.TimeSpentSeconds)
}

func TestOutcome_UnknownImpression(t *testing.T) {
	rec, _ := newTestRecorder(t, "impression_missing")

	assert.ErrorIs(t, rec.MarkClicked(context.Background(), "999999"), impressiondomain.ErrImpressionNotFound)
	assert.ErrorIs(t, rec.MarkClicked(context.Background(), "nonsense"), impressiondomain.ErrImpressionNotFound)
}
