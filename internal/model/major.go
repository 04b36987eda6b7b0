package model

import "time"

// Major represents a school major or field of study with its SNBP quota
// policy. Quota allocation is always per major, never pooled.
type Major struct {
	ID       int    `json:"id"`
	Code     string `json:"code"`
	LongName string `json:"long_name"`
	// QuotaPercentage is the fraction (0–100) of the major's ranked cohort
	// permitted to be eligible. Nil means not configured.
	QuotaPercentage *float64 `json:"quota_percentage"`
	// QuotaCountOverride fixes the quota count directly, taking precedence
	// over the percentage.
	QuotaCountOverride *int `json:"quota_count_override"`
	// MinAverage is the eligibility threshold. Nil means no floor.
	MinAverage *float64  `json:"min_average"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasQuotaPolicy reports whether any quota policy is configured. A major
// without one fails closed: recalculation clears eligibility instead of
// guessing a default.
func (m *Major) HasQuotaPolicy() bool {
	return m.QuotaPercentage != nil || m.QuotaCountOverride != nil
}

// CreateMajorRequest is the payload for creating a major.
type CreateMajorRequest struct {
	Code               string   `json:"code" binding:"required,min=2,max=10"`
	LongName           string   `json:"long_name" binding:"required,min=2,max=100"`
	QuotaPercentage    *float64 `json:"quota_percentage" binding:"omitempty,gte=0,lte=100"`
	QuotaCountOverride *int     `json:"quota_count_override" binding:"omitempty,gte=0"`
	MinAverage         *float64 `json:"min_average" binding:"omitempty,gte=0,lte=100"`
}

// UpdateMajorRequest is the payload for updating a major and its quota
// policy. Changing the policy does not recalculate by itself; the caller
// must trigger an explicit recalculation.
type UpdateMajorRequest struct {
	Code               string   `json:"code" binding:"required,min=2,max=10"`
	LongName           string   `json:"long_name" binding:"required,min=2,max=100"`
	QuotaPercentage    *float64 `json:"quota_percentage" binding:"omitempty,gte=0,lte=100"`
	QuotaCountOverride *int     `json:"quota_count_override" binding:"omitempty,gte=0"`
	MinAverage         *float64 `json:"min_average" binding:"omitempty,gte=0,lte=100"`
}
