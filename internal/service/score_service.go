package service

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/repository"
)

var (
	// ErrNoGradeData means the student has no grades at all. Aggregation
	// surfaces this instead of returning 0, so a missing score is never
	// mistaken for a genuine zero.
	ErrNoGradeData = errors.New("student has no grade data")
	// ErrZeroWeightSum means every semester that has grades is configured
	// with weight 0, leaving nothing to normalize by.
	ErrZeroWeightSum = errors.New("all graded semesters have zero weight")
)

// WeightedAverage computes a student's weighted academic average: the
// arithmetic mean of each graded semester, weighted by the configured vector
// and normalized by the sum of weights of semesters that actually have
// grades. A semester missing from the data therefore never drags the
// average toward zero.
//
// Semesters are folded in ascending order so the float accumulation is
// bit-for-bit reproducible across runs.
func WeightedAverage(grades []model.Grade, weights *model.WeightConfig) (float64, error) {
	if len(grades) == 0 {
		return 0, ErrNoGradeData
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, g := range grades {
		sums[g.Semester] += g.Value
		counts[g.Semester]++
	}

	semesters := make([]int, 0, len(sums))
	for sem := range sums {
		semesters = append(semesters, sem)
	}
	sort.Ints(semesters)

	var total, weightSum float64
	for _, sem := range semesters {
		mean := sums[sem] / float64(counts[sem])
		w := weights.SemesterWeight(sem)
		total += mean * w
		weightSum += w
	}

	if weightSum == 0 {
		return 0, ErrZeroWeightSum
	}
	return total / weightSum, nil
}

// ScoreService exposes single-student aggregation for callers outside the
// orchestrator, e.g. the student detail endpoint showing a fresh preview.
type ScoreService struct {
	gradeRepo repository.GradeRepository
	weights   WeightSource
	log       zerolog.Logger
}

func NewScoreService(gradeRepo repository.GradeRepository, weights WeightSource, log zerolog.Logger) *ScoreService {
	return &ScoreService{
		gradeRepo: gradeRepo,
		weights:   weights,
		log:       log.With().Str("component", "score_service").Logger(),
	}
}

// ComputeAverage aggregates one student's current grade set under the
// current weight vector. It does not persist anything; persisted averages
// are owned by the recalculation orchestrator.
func (s *ScoreService) ComputeAverage(ctx context.Context, studentID int) (float64, error) {
	weights, err := s.weights.SemesterWeights(ctx)
	if err != nil {
		return 0, err
	}

	grades, err := s.gradeRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return 0, err
	}
	return WeightedAverage(grades, weights)
}
