// Package domain defines the matching and recommendation contracts.
package domain

import (
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
)

// ApprovalLikelihood is a discrete bucket derived from policy terms, not
// a statistical prediction.
type ApprovalLikelihood string

const (
	ApprovalGuaranteed ApprovalLikelihood = "guaranteed"
	ApprovalHigh       ApprovalLikelihood = "high"
	ApprovalMedium     ApprovalLikelihood = "medium"
	ApprovalLow        ApprovalLikelihood = "low"
)

// Scoring dimension tags carried on reasons.
const (
	DimensionPremiumFit     = "premium_fit"
	DimensionCoverage       = "coverage"
	DimensionConditionMatch = "condition_match"
	DimensionTrust          = "trust"
	DimensionSmokerCompat   = "smoker_compat"
)

// Reason explains one scoring dimension's material contribution.
type Reason struct {
	Dimension    string  `json:"dimension"`
	Text         string  `json:"text"`
	Contribution float64 `json:"contribution"`
}

// Recommendation is one ranked entry: the policy, its personalized
// premium, the 0-100 match score and the explanation trail.
type Recommendation struct {
	Policy   *policydomain.Policy `json:"policy"`
	Premium  int64                `json:"premium"`
	Score    float64              `json:"match_score"`
	Reasons  []Reason             `json:"reasons"`
	Approval ApprovalLikelihood   `json:"approval_likelihood"`
}

// RankRequest carries per-call ranking options.
type RankRequest struct {
	// Variant is the experiment bucket stamped on impressions. Empty
	// means "assign from the configured buckets".
	Variant string
}
