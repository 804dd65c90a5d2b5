// Package domain composes the buyer risk profile consumed by the
// pricing and matching engines. The profile is derived per call from the
// buyer's stored attributes and never persisted as its own row.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type RegionType string

const (
	RegionUrban     RegionType = "urban"
	RegionSemiUrban RegionType = "semi_urban"
	RegionRural     RegionType = "rural"
)

type CoveragePreference string

const (
	CoverageIndividual CoveragePreference = "individual"
	CoverageFamily     CoveragePreference = "family"
)

// Profile is a read-only risk snapshot for one buyer at one instant.
// Zero values mean "attribute unknown" and price with no multiplier.
type Profile struct {
	BuyerID               snowflake.ID
	Age                   int
	IsSmoker              bool
	BMI                   float64
	OccupationClass       int
	Region                RegionType
	FamilyMemberCount     int
	PreExistingConditions []string
	BudgetMin             int64
	BudgetMax             int64
	CoveragePreference    CoveragePreference
	TenureYears           float64
}

// Attributes is the stored shape the profile is derived from, supplied
// by the account subsystem as a read-only snapshot per call.
type Attributes struct {
	BuyerID               snowflake.ID
	DateOfBirth           time.Time
	IsSmoker              bool
	WeightKg              float64
	HeightCm              float64
	OccupationClass       int
	Region                RegionType
	FamilyMemberCount     int
	PreExistingConditions []string
	BudgetMin             int64
	BudgetMax             int64
	CoveragePreference    CoveragePreference
	AccountCreatedAt      time.Time
}

// Compose derives the risk profile from stored attributes as of `at`.
// Unknown inputs yield zero values, which downstream engines treat as
// "no multiplier" rather than failing the computation.
func Compose(attrs Attributes, at time.Time) Profile {
	profile := Profile{
		BuyerID:               attrs.BuyerID,
		IsSmoker:              attrs.IsSmoker,
		OccupationClass:       attrs.OccupationClass,
		Region:                attrs.Region,
		FamilyMemberCount:     attrs.FamilyMemberCount,
		PreExistingConditions: attrs.PreExistingConditions,
		BudgetMin:             attrs.BudgetMin,
		BudgetMax:             attrs.BudgetMax,
		CoveragePreference:    attrs.CoveragePreference,
	}

	if !attrs.DateOfBirth.IsZero() {
		profile.Age = yearsBetween(attrs.DateOfBirth, at)
	}
	if attrs.WeightKg > 0 && attrs.HeightCm > 0 {
		heightM := attrs.HeightCm / 100
		profile.BMI = attrs.WeightKg / (heightM * heightM)
	}
	if !attrs.AccountCreatedAt.IsZero() && at.After(attrs.AccountCreatedAt) {
		profile.TenureYears = at.Sub(attrs.AccountCreatedAt).Hours() / (24 * 365.25)
	}

	return profile
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	anniversary := from.AddDate(years, 0, 0)
	if anniversary.After(to) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
