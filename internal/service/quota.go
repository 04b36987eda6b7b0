package service

import (
	"errors"
	"math"

	"github.com/stemsi/snbp-backend/internal/config"
	"github.com/stemsi/snbp-backend/internal/model"
)

// ErrQuotaNotConfigured means the major has neither a quota percentage nor a
// count override. Recalculation fails closed for that major: no student is
// marked eligible, nothing is guessed.
var ErrQuotaNotConfigured = errors.New("major has no quota policy configured")

// QuotaPolicy holds the engine-level allocation knobs that are deliberately
// configurable rather than hard-coded.
type QuotaPolicy struct {
	Rounding config.RoundingPolicy
	// CountUnrankable includes unrankable students in the quota denominator.
	CountUnrankable bool
}

// QuotaCount derives the number of eligible slots for a major. An explicit
// count override wins over the percentage.
func QuotaCount(major *model.Major, rankedCount, unrankableCount int, policy QuotaPolicy) (int, error) {
	if major.QuotaCountOverride != nil {
		return *major.QuotaCountOverride, nil
	}
	if major.QuotaPercentage == nil {
		return 0, ErrQuotaNotConfigured
	}

	denominator := rankedCount
	if policy.CountUnrankable {
		denominator += unrankableCount
	}

	raw := *major.QuotaPercentage / 100 * float64(denominator)
	switch policy.Rounding {
	case config.RoundingNearest:
		return int(math.Round(raw)), nil
	case config.RoundingCeil:
		return int(math.Ceil(raw)), nil
	default:
		return int(math.Floor(raw)), nil
	}
}

// AllocateQuota converts a rank order into eligibility decisions. A student
// is eligible iff rank ≤ quota count and, when a minimum average is
// configured, their average meets it. The threshold is a hard floor: slots
// freed by students below it are never backfilled from lower ranks.
//
// Allocation is total, not incremental — every student in the list gets a
// fresh decision, so eligibility is never sticky across runs.
func AllocateQuota(ranked []*model.Student, major *model.Major, unrankableCount int, policy QuotaPolicy) (map[int]bool, int, error) {
	quotaCount, err := QuotaCount(major, len(ranked), unrankableCount, policy)
	if err != nil {
		return nil, 0, err
	}

	eligible := make(map[int]bool, len(ranked))
	for _, s := range ranked {
		within := s.Rank != nil && *s.Rank <= quotaCount
		aboveFloor := major.MinAverage == nil ||
			(s.AverageScore != nil && *s.AverageScore >= *major.MinAverage)
		eligible[s.ID] = within && aboveFloor
	}
	return eligible, quotaCount, nil
}
