package service

import (
	"context"
	"errors"
	"sort"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	"github.com/sushiltimalsina/bemasathi/internal/config"
	impressiondomain "github.com/sushiltimalsina/bemasathi/internal/impression/domain"
	matchingdomain "github.com/sushiltimalsina/bemasathi/internal/matching/domain"
	obsmetrics "github.com/sushiltimalsina/bemasathi/internal/observability/metrics"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	pricingdomain "github.com/sushiltimalsina/bemasathi/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Engine     *config.EngineConfigHolder
	Clock      clock.Clock
	PricingSvc pricingdomain.Service
	Recorder   impressiondomain.Recorder
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	engine  *config.EngineConfigHolder
	clock   clock.Clock
	pricing pricingdomain.Service
	record  impressiondomain.Recorder
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) matchingdomain.Service {
	return &Service{
		log:     p.Log.Named("matching.service"),
		genID:   p.GenID,
		engine:  p.Engine,
		clock:   p.Clock,
		pricing: p.PricingSvc,
		record:  p.Recorder,
		metrics: p.Metrics,
	}
}

func (s *Service) Rank(
	ctx context.Context,
	candidates []*policydomain.Policy,
	profile buyerdomain.Profile,
	req matchingdomain.RankRequest,
) ([]matchingdomain.Recommendation, error) {
	if len(candidates) == 0 {
		return nil, matchingdomain.ErrNoCandidates
	}

	cfg := s.engine.Current().Matching
	ranked := make([]matchingdomain.Recommendation, 0, len(candidates))

	for _, policy := range candidates {
		quote, err := s.pricing.Quote(ctx, policy, profile)
		if err != nil {
			if errors.Is(err, pricingdomain.ErrIneligibleRisk) {
				// Hard eligibility gate: the policy is excluded, not
				// penalized, so the rest of the order is unaffected.
				continue
			}
			s.log.Warn("skipping unpriceable candidate",
				zap.String("policy_id", policy.ID.String()),
				zap.Error(err),
			)
			continue
		}

		score, dims := scorePolicy(policy, profile, quote.Premium, cfg)
		ranked = append(ranked, matchingdomain.Recommendation{
			Policy:   policy,
			Premium:  quote.Premium,
			Score:    score,
			Reasons:  buildReasons(dims, cfg.MaxReasons),
			Approval: approvalLikelihood(policy, profile),
		})
	}

	sortRecommendations(ranked)

	s.recordImpressions(ctx, ranked, profile, req, cfg)
	if s.metrics != nil {
		s.metrics.RankingServed(len(ranked))
	}

	return ranked, nil
}

// sortRecommendations orders by score, breaking ties on claim settlement
// ratio, then personalized premium, then policy id so identical inputs
// always produce identical output.
func sortRecommendations(ranked []matchingdomain.Recommendation) {
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Policy.ClaimSettlementRatio != b.Policy.ClaimSettlementRatio {
			return a.Policy.ClaimSettlementRatio > b.Policy.ClaimSettlementRatio
		}
		if a.Premium != b.Premium {
			return a.Premium < b.Premium
		}
		return a.Policy.ID < b.Policy.ID
	})
}

func (s *Service) recordImpressions(
	ctx context.Context,
	ranked []matchingdomain.Recommendation,
	profile buyerdomain.Profile,
	req matchingdomain.RankRequest,
	cfg config.MatchingConfig,
) {
	if len(ranked) == 0 || profile.BuyerID == 0 {
		return
	}

	variant := req.Variant
	if variant == "" {
		variant = assignVariant(profile.BuyerID, cfg.ExperimentVariants)
	}

	now := s.clock.Now()
	impressions := make([]*impressiondomain.Impression, 0, len(ranked))
	for i, rec := range ranked {
		impressions = append(impressions, &impressiondomain.Impression{
			ID:         s.genID.Generate(),
			BuyerID:    profile.BuyerID,
			PolicyID:   rec.Policy.ID,
			Position:   i + 1,
			MatchScore: rec.Score,
			Variant:    variant,
			ShownAt:    now,
		})
	}

	s.record.RecordShown(ctx, impressions)
}

// assignVariant buckets a buyer deterministically so repeat visits land
// in the same experiment arm.
func assignVariant(buyerID snowflake.ID, variants []string) string {
	if len(variants) == 0 {
		return "control"
	}
	idx := int(uint64(buyerID) % uint64(len(variants)))
	return variants[idx]
}
