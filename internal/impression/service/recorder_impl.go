package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	impressiondomain "github.com/sushiltimalsina/bemasathi/internal/impression/domain"
	obsmetrics "github.com/sushiltimalsina/bemasathi/internal/observability/metrics"
	"github.com/sushiltimalsina/bemasathi/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RecorderParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Recorder struct {
	db      *gorm.DB
	log     *zap.Logger
	metrics *obsmetrics.Metrics

	repo repository.Repository[impressiondomain.Impression]
}

func NewRecorder(p RecorderParam) impressiondomain.Recorder {
	return &Recorder{
		db:      p.DB,
		log:     p.Log.Named("impression.recorder"),
		metrics: p.Metrics,

		repo: repository.ProvideStore[impressiondomain.Impression](p.DB),
	}
}

// RecordShown writes the displayed list asynchronously. A failed write
// loses telemetry, never a ranking response.
func (r *Recorder) RecordShown(ctx context.Context, impressions []*impressiondomain.Impression) {
	if len(impressions) == 0 {
		return
	}

	go func() {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := r.repo.BatchCreate(writeCtx, impressions); err != nil {
			r.log.Warn("impression batch write failed",
				zap.Int("count", len(impressions)),
				zap.Error(err),
			)
			if r.metrics != nil {
				r.metrics.ImpressionWriteFailed()
			}
		}
	}()
}

func (r *Recorder) MarkClicked(ctx context.Context, impressionID string) error {
	return r.updateOutcome(ctx, impressionID, map[string]any{"clicked": true})
}

func (r *Recorder) MarkPurchased(ctx context.Context, impressionID string) error {
	return r.updateOutcome(ctx, impressionID, map[string]any{"purchased": true})
}

func (r *Recorder) RecordTimeSpent(ctx context.Context, impressionID string, seconds int) error {
	if seconds < 0 {
		seconds = 0
	}
	return r.updateOutcome(ctx, impressionID, map[string]any{"time_spent_seconds": seconds})
}

func (r *Recorder) updateOutcome(ctx context.Context, impressionID string, values map[string]any) error {
	id, err := snowflake.ParseString(strings.TrimSpace(impressionID))
	if err != nil {
		return impressiondomain.ErrImpressionNotFound
	}

	res := r.db.WithContext(ctx).
		Model(&impressiondomain.Impression{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return impressiondomain.ErrImpressionNotFound
	}
	return nil
}
