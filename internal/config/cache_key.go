package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// MajorRecalcLockKey returns the Redis key for a major's recalculation mutex.
func (r *CacheKeyStruct) MajorRecalcLockKey(majorID int) string {
	return fmt.Sprintf("major:%d:recalc_lock", majorID)
}

// MajorDataGenKey returns the Redis key for a major's data generation
// counter. Every grade mutation bumps it; a recalculation that observes a
// bump between snapshot and commit abandons its result.
func (r *CacheKeyStruct) MajorDataGenKey(majorID int) string {
	return fmt.Sprintf("major:%d:data_gen", majorID)
}

// MajorReportKey returns the cache key for a major's eligibility report.
func (r *CacheKeyStruct) MajorReportKey(majorID int) string {
	return fmt.Sprintf("major:%d:eligibility_report", majorID)
}

var CacheKey = NewCacheKeyStruct()
