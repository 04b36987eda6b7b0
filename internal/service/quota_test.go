package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/snbp-backend/internal/config"
	"github.com/stemsi/snbp-backend/internal/model"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func majorWithQuota(pct *float64, override *int, minAvg *float64) *model.Major {
	return &model.Major{
		ID:                 1,
		Code:               "RPL",
		LongName:           "Rekayasa Perangkat Lunak",
		QuotaPercentage:    pct,
		QuotaCountOverride: override,
		MinAverage:         minAvg,
	}
}

func TestQuotaCount_RoundingPolicies(t *testing.T) {
	major := majorWithQuota(floatPtr(50), nil, nil)

	tests := []struct {
		name     string
		rounding config.RoundingPolicy
		ranked   int
		want     int
	}{
		{"floor rounds down", config.RoundingFloor, 5, 2},
		{"nearest rounds half up", config.RoundingNearest, 5, 3},
		{"ceil rounds up", config.RoundingCeil, 5, 3},
		{"floor exact", config.RoundingFloor, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuotaCount(major, tt.ranked, 0, QuotaPolicy{Rounding: tt.rounding})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuotaCount_OverrideWinsOverPercentage(t *testing.T) {
	major := majorWithQuota(floatPtr(50), intPtr(7), nil)

	got, err := QuotaCount(major, 100, 0, QuotaPolicy{Rounding: config.RoundingFloor})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestQuotaCount_UnrankableDenominator(t *testing.T) {
	major := majorWithQuota(floatPtr(50), nil, nil)

	excl, err := QuotaCount(major, 4, 2, QuotaPolicy{Rounding: config.RoundingFloor, CountUnrankable: false})
	require.NoError(t, err)
	assert.Equal(t, 2, excl)

	incl, err := QuotaCount(major, 4, 2, QuotaPolicy{Rounding: config.RoundingFloor, CountUnrankable: true})
	require.NoError(t, err)
	assert.Equal(t, 3, incl)
}

func TestQuotaCount_NotConfigured(t *testing.T) {
	major := majorWithQuota(nil, nil, nil)

	_, err := QuotaCount(major, 10, 0, QuotaPolicy{Rounding: config.RoundingFloor})
	assert.ErrorIs(t, err, ErrQuotaNotConfigured)
}

// A 50% quota with a minimum average of 75 over averages 90, 80, 70, 60:
// quota covers the top two, the threshold cuts nobody inside it, and the two
// below the cut stay out even though one of them trails the quota boundary.
func TestAllocateQuota_PercentageWithHardFloor(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	students := []*model.Student{
		studentWithAvg(1, "001", 90, base),
		studentWithAvg(2, "002", 80, base),
		studentWithAvg(3, "003", 70, base),
		studentWithAvg(4, "004", 60, base),
	}
	ranked, _ := RankStudents(students)

	major := majorWithQuota(floatPtr(50), nil, floatPtr(75))
	eligible, quotaCount, err := AllocateQuota(ranked, major, 0, QuotaPolicy{Rounding: config.RoundingFloor})
	require.NoError(t, err)

	assert.Equal(t, 2, quotaCount)
	assert.True(t, eligible[1])
	assert.True(t, eligible[2])
	assert.False(t, eligible[3])
	assert.False(t, eligible[4])
}

// The threshold is a hard floor: a slot freed by a within-quota student below
// the minimum average is never backfilled by the next rank.
func TestAllocateQuota_NoBackfillBelowFloor(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	students := []*model.Student{
		studentWithAvg(1, "001", 90, base),
		studentWithAvg(2, "002", 70, base),
		studentWithAvg(3, "003", 69, base),
	}
	ranked, _ := RankStudents(students)

	major := majorWithQuota(nil, intPtr(2), floatPtr(75))
	eligible, quotaCount, err := AllocateQuota(ranked, major, 0, QuotaPolicy{Rounding: config.RoundingFloor})
	require.NoError(t, err)

	assert.Equal(t, 2, quotaCount)
	assert.True(t, eligible[1])
	assert.False(t, eligible[2], "rank 2 is within quota but below the floor")
	assert.False(t, eligible[3], "rank 3 must not inherit the freed slot")
}

func TestAllocateQuota_QuotaLargerThanCohort(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	students := []*model.Student{
		studentWithAvg(1, "001", 88, base),
		studentWithAvg(2, "002", 77, base),
	}
	ranked, _ := RankStudents(students)

	major := majorWithQuota(nil, intPtr(10), nil)
	eligible, quotaCount, err := AllocateQuota(ranked, major, 0, QuotaPolicy{Rounding: config.RoundingFloor})
	require.NoError(t, err)

	assert.Equal(t, 10, quotaCount)
	assert.True(t, eligible[1])
	assert.True(t, eligible[2])
}

func TestAllocateQuota_EveryStudentGetsDecision(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	students := []*model.Student{
		studentWithAvg(1, "001", 90, base),
		studentWithAvg(2, "002", 50, base),
	}
	ranked, _ := RankStudents(students)

	major := majorWithQuota(nil, intPtr(1), nil)
	eligible, _, err := AllocateQuota(ranked, major, 0, QuotaPolicy{Rounding: config.RoundingFloor})
	require.NoError(t, err)

	_, ok1 := eligible[1]
	_, ok2 := eligible[2]
	assert.True(t, ok1)
	assert.True(t, ok2)
}
