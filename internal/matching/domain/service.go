package domain

import (
	"context"
	"errors"

	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
)

type Service interface {
	// Rank orders the candidate set for the buyer. Policies the buyer is
	// ineligible for are excluded, not penalized. As a side effect one
	// impression row is recorded per returned entry, without blocking
	// the response.
	Rank(ctx context.Context, candidates []*policydomain.Policy, profile buyerdomain.Profile, req RankRequest) ([]Recommendation, error)
}

var ErrNoCandidates = errors.New("no_candidate_policies")
