package domain

import (
	"context"
	"errors"
)

// Recorder persists impression telemetry. RecordShown must not block the
// ranking response; implementations write asynchronously.
type Recorder interface {
	RecordShown(ctx context.Context, impressions []*Impression)
	MarkClicked(ctx context.Context, impressionID string) error
	MarkPurchased(ctx context.Context, impressionID string) error
	RecordTimeSpent(ctx context.Context, impressionID string, seconds int) error
}

var ErrImpressionNotFound = errors.New("impression_not_found")
