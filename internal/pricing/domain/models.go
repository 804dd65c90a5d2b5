// Package domain defines the pricing engine contract.
package domain

import "github.com/bwmarrin/snowflake"

// Quote is the personalized full-term premium for one buyer/policy pair,
// in minor currency units.
type Quote struct {
	PolicyID snowflake.ID `json:"policy_id"`
	Premium  int64        `json:"premium"`
	Currency string       `json:"currency"`
}

// PremiumRange is the simplified envelope returned to guest callers who
// have no authenticated profile.
type PremiumRange struct {
	PolicyID snowflake.ID `json:"policy_id"`
	Min      int64        `json:"min"`
	Max      int64        `json:"max"`
	Currency string       `json:"currency"`
}
