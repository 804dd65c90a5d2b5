package service

import (
	"math"

	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
)

// BMI bands per WHO classification. Normal and underweight price flat.
const (
	bmiOverweightFloor = 25.0
	bmiObeseFloor      = 30.0
)

// step is one rule of the multiplicative factor chain. Steps are pure;
// they receive the running premium and return the adjusted one. Order is
// fixed by the pipeline in Quote.
type step func(premium float64, policy *policydomain.Policy, profile buyerdomain.Profile) float64

// orOne is the explicit fallback for unset factors: the table stores 0
// for "not configured", which prices as no effect.
func orOne(factor float64) float64 {
	if factor <= 0 {
		return 1.0
	}
	return factor
}

func applyAgeBracket(premium float64, policy *policydomain.Policy, profile buyerdomain.Profile) float64 {
	f := policy.Factors
	switch {
	case profile.Age <= 0:
		return premium
	case profile.Age <= 2:
		return premium * orOne(f.Age0To2)
	case profile.Age <= 17:
		return premium * orOne(f.Age3To17)
	case profile.Age <= 24:
		return premium * orOne(f.Age18To24)
	default:
		// 25+ uses the base factor plus a linear per-year step above 25.
		yearsPast := float64(profile.Age - 25)
		return premium * orOne(f.Age25PlusBase) * (1 + f.PerYearStep*yearsPast)
	}
}

func applySmoker(premium float64, policy *policydomain.Policy, profile buyerdomain.Profile) float64 {
	if profile.IsSmoker && policy.SupportsSmokers {
		return premium * orOne(policy.Factors.Smoker)
	}
	return premium
}

func applyConditions(premium float64, policy *policydomain.Policy, profile buyerdomain.Profile) float64 {
	factor := orOne(policy.Factors.Condition)
	for _, condition := range profile.PreExistingConditions {
		if policy.Covers(condition) {
			// Compounds once per matched condition.
			premium *= factor
		}
	}
	return premium
}

func applyFamily(premium float64, policy *policydomain.Policy, profile buyerdomain.Profile) float64 {
	if profile.CoveragePreference != buyerdomain.CoverageFamily {
		return premium
	}
	extraMembers := float64(profile.FamilyMemberCount - 1)
	if extraMembers < 0 {
		extraMembers = 0
	}
	return premium * orOne(policy.Factors.FamilyBase) * (1 + policy.Factors.FamilyMemberStep*extraMembers)
}

func applyRegion(premium float64, policy *policydomain.Policy, profile buyerdomain.Profile) float64 {
	f := policy.Factors
	switch profile.Region {
	case buyerdomain.RegionUrban:
		return premium * orOne(f.RegionUrban)
	case buyerdomain.RegionSemiUrban:
		return premium * orOne(f.RegionSemiUrban)
	case buyerdomain.RegionRural:
		return premium * orOne(f.RegionRural)
	default:
		return premium
	}
}

func applyBMI(premium float64, policy *policydomain.Policy, profile buyerdomain.Profile) float64 {
	switch {
	case profile.BMI >= bmiObeseFloor:
		return premium * orOne(policy.Factors.BMIObese)
	case profile.BMI >= bmiOverweightFloor:
		return premium * orOne(policy.Factors.BMIOverweight)
	default:
		return premium
	}
}

func applyOccupation(premium float64, policy *policydomain.Policy, profile buyerdomain.Profile) float64 {
	switch profile.OccupationClass {
	case 2:
		return premium * orOne(policy.Factors.OccupationClass2)
	case 3:
		return premium * orOne(policy.Factors.OccupationClass3)
	default:
		return premium
	}
}

func roundMoney(raw float64) int64 {
	return int64(math.Floor(raw + 0.5))
}
