package service

import (
	"fmt"
	"math"
	"sort"

	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/config"
	matchingdomain "github.com/sushiltimalsina/bemasathi/internal/matching/domain"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
)

// neutralBaseline is the dimension score below which no reason is worth
// surfacing to the buyer.
const neutralBaseline = 60.0

type dimensionScore struct {
	dimension string
	score     float64
	weight    float64
	text      string
}

func (d dimensionScore) contribution() float64 { return d.score * d.weight }

// scorePolicy computes the weighted 0-100 match score and the per
// dimension breakdown. Each dimension is normalized to 0-100 before
// weighting. The smoker gate has already excluded incompatible policies.
func scorePolicy(
	policy *policydomain.Policy,
	profile buyerdomain.Profile,
	premium int64,
	cfg config.MatchingConfig,
) (float64, []dimensionScore) {
	weights := cfg.Weights
	dims := []dimensionScore{
		premiumFit(policy, profile, premium, cfg),
		coverageAdequacy(policy, cfg),
		conditionMatch(policy, profile),
		companyTrust(policy),
		smokerCompat(weights),
	}

	var weighted, totalWeight float64
	for i := range dims {
		switch dims[i].dimension {
		case matchingdomain.DimensionPremiumFit:
			dims[i].weight = weights.PremiumFit
		case matchingdomain.DimensionCoverage:
			dims[i].weight = weights.Coverage
		case matchingdomain.DimensionConditionMatch:
			dims[i].weight = weights.ConditionMatch
		case matchingdomain.DimensionTrust:
			dims[i].weight = weights.Trust
		case matchingdomain.DimensionSmokerCompat:
			dims[i].weight = weights.SmokerCompat
		}
		weighted += dims[i].contribution()
		totalWeight += dims[i].weight
	}
	if totalWeight <= 0 {
		return 0, dims
	}

	return math.Round(weighted/totalWeight*100) / 100, dims
}

// premiumFit peaks when the personalized premium sits at or below the
// budget-range midpoint and decays linearly past it, hitting zero at
// BudgetDecaySpan times the budget upper bound.
func premiumFit(_ *policydomain.Policy, profile buyerdomain.Profile, premium int64, cfg config.MatchingConfig) dimensionScore {
	dim := dimensionScore{dimension: matchingdomain.DimensionPremiumFit, score: 50}
	if profile.BudgetMax <= 0 || premium <= 0 {
		return dim
	}

	mid := float64(profile.BudgetMin+profile.BudgetMax) / 2
	ceiling := float64(profile.BudgetMax) * cfg.BudgetDecaySpan
	p := float64(premium)

	switch {
	case p <= mid:
		dim.score = 100
		dim.text = "fits comfortably within your budget"
	case p >= ceiling:
		dim.score = 0
	default:
		dim.score = (ceiling - p) / (ceiling - mid) * 100
		if p <= float64(profile.BudgetMax) {
			dim.text = "priced within your budget range"
		}
	}
	return dim
}

func coverageAdequacy(policy *policydomain.Policy, cfg config.MatchingConfig) dimensionScore {
	dim := dimensionScore{dimension: matchingdomain.DimensionCoverage}
	if cfg.CoverageAdequacyLimit <= 0 {
		dim.score = 50
		return dim
	}
	dim.score = math.Min(100, float64(policy.CoverageLimit)/float64(cfg.CoverageAdequacyLimit)*100)
	if dim.score >= 100 {
		dim.text = "coverage limit meets the recommended amount"
	}
	return dim
}

func conditionMatch(policy *policydomain.Policy, profile buyerdomain.Profile) dimensionScore {
	dim := dimensionScore{dimension: matchingdomain.DimensionConditionMatch}
	total := len(profile.PreExistingConditions)
	if total == 0 {
		dim.score = 100
		return dim
	}

	covered := 0
	for _, condition := range profile.PreExistingConditions {
		if policy.Covers(condition) {
			covered++
		}
	}
	dim.score = float64(covered) / float64(total) * 100
	if covered > 0 {
		dim.text = fmt.Sprintf("covers %d of your %d medical conditions", covered, total)
	}
	return dim
}

// companyTrust blends the company rating (0-5 scale) with the claim
// settlement ratio, weighted evenly.
func companyTrust(policy *policydomain.Policy) dimensionScore {
	dim := dimensionScore{dimension: matchingdomain.DimensionTrust}
	rating := math.Min(100, policy.CompanyRating/5*100)
	csr := math.Min(100, policy.ClaimSettlementRatio*100)
	dim.score = rating*0.5 + csr*0.5
	if policy.ClaimSettlementRatio >= 0.9 {
		dim.text = fmt.Sprintf("strong claim settlement record (%.0f%%)", policy.ClaimSettlementRatio*100)
	}
	return dim
}

// smokerCompat only ever scores 100 here: incompatible pairs were
// excluded before scoring, so the gate contributes its full weight when
// satisfied.
func smokerCompat(_ config.ScoreWeights) dimensionScore {
	return dimensionScore{dimension: matchingdomain.DimensionSmokerCompat, score: 100}
}

// buildReasons keeps the materially contributing dimensions, ordered by
// contribution descending and capped at the configured count.
func buildReasons(dims []dimensionScore, maxReasons int) []matchingdomain.Reason {
	eligible := make([]dimensionScore, 0, len(dims))
	for _, dim := range dims {
		if dim.text != "" && dim.score > neutralBaseline {
			eligible = append(eligible, dim)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].contribution() != eligible[j].contribution() {
			return eligible[i].contribution() > eligible[j].contribution()
		}
		return eligible[i].dimension < eligible[j].dimension
	})

	if len(eligible) > maxReasons {
		eligible = eligible[:maxReasons]
	}

	reasons := make([]matchingdomain.Reason, 0, len(eligible))
	for _, dim := range eligible {
		reasons = append(reasons, matchingdomain.Reason{
			Dimension:    dim.dimension,
			Text:         dim.text,
			Contribution: math.Round(dim.contribution()*100) / 100,
		})
	}
	return reasons
}

// approvalLikelihood buckets the policy's friction terms. Fully covered
// conditions plus no waiting period and no copay is as close to a
// guarantee as the product terms allow.
func approvalLikelihood(policy *policydomain.Policy, profile buyerdomain.Profile) matchingdomain.ApprovalLikelihood {
	fullyCovered := true
	for _, condition := range profile.PreExistingConditions {
		if !policy.Covers(condition) {
			fullyCovered = false
			break
		}
	}

	switch {
	case fullyCovered && policy.WaitingPeriodDays == 0 && policy.CopayPercent == 0:
		return matchingdomain.ApprovalGuaranteed
	case fullyCovered && policy.WaitingPeriodDays <= 90 && policy.CopayPercent <= 10:
		return matchingdomain.ApprovalHigh
	case policy.WaitingPeriodDays <= 180 && policy.CopayPercent <= 20:
		return matchingdomain.ApprovalMedium
	default:
		return matchingdomain.ApprovalLow
	}
}
