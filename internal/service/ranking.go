package service

import (
	"sort"

	"github.com/stemsi/snbp-backend/internal/model"
)

// Unrankable reasons reported back to the caller so "not eligible" is never
// confused with "not yet computable".
const (
	ReasonNoAverage    = "no computable average (missing grade data)"
	ReasonStaleAverage = "average is stale relative to latest grades"
)

// RankStudents produces the strict total order for one major's verified
// cohort: descending average, ties broken by earlier enrollment then
// lexicographic NISN. The triple tie-break guarantees determinism — two runs
// over the same snapshot assign identical ranks.
//
// Students whose average is missing or stale are excluded from the order and
// returned as unrankable rather than silently dropped. Ranks are assigned
// 1..N with no gaps on the returned slice's elements.
func RankStudents(students []*model.Student) ([]*model.Student, []model.UnrankableStudent) {
	ranked := make([]*model.Student, 0, len(students))
	var unrankable []model.UnrankableStudent

	for _, s := range students {
		switch {
		case s.AverageScore == nil:
			unrankable = append(unrankable, model.UnrankableStudent{
				StudentID: s.ID, NISN: s.NISN, Reason: ReasonNoAverage,
			})
		case s.ScoreStale:
			unrankable = append(unrankable, model.UnrankableStudent{
				StudentID: s.ID, NISN: s.NISN, Reason: ReasonStaleAverage,
			})
		default:
			ranked = append(ranked, s)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if *a.AverageScore != *b.AverageScore {
			return *a.AverageScore > *b.AverageScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.NISN < b.NISN
	})

	for i := range ranked {
		rank := i + 1
		ranked[i].Rank = &rank
	}

	return ranked, unrankable
}
