// Package domain contains recommendation impression telemetry models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Impression is one row per policy shown to a buyer in a ranked list.
// Write-once on display; outcome fields are updated by downstream events
// and are never read back into scoring.
type Impression struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	BuyerID          snowflake.ID `json:"buyer_id" gorm:"not null;index"`
	PolicyID         snowflake.ID `json:"policy_id" gorm:"not null;index"`
	Position         int          `json:"position" gorm:"not null"`
	MatchScore       float64      `json:"match_score" gorm:"not null"`
	Variant          string       `json:"variant" gorm:"type:text;not null"`
	Clicked          bool         `json:"clicked" gorm:"not null;default:false"`
	Purchased        bool         `json:"purchased" gorm:"not null;default:false"`
	TimeSpentSeconds int          `json:"time_spent_seconds" gorm:"not null;default:0"`
	ShownAt          time.Time    `json:"shown_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Impression) TableName() string { return "recommendation_impressions" }
