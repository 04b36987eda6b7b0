package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/repository"
)

// GradeService covers direct grade access and manual admin corrections.
// Every write marks the owning student stale and triggers a recalculation,
// the same invalidation path an approved rebuttal takes.
type GradeService struct {
	gradeRepo   repository.GradeRepository
	studentRepo repository.StudentRepository
	gate        RecalcGate
	queue       RecalcQueue
	log         zerolog.Logger
}

func NewGradeService(
	gradeRepo repository.GradeRepository,
	studentRepo repository.StudentRepository,
	gate RecalcGate,
	queue RecalcQueue,
	log zerolog.Logger,
) *GradeService {
	return &GradeService{
		gradeRepo:   gradeRepo,
		studentRepo: studentRepo,
		gate:        gate,
		queue:       queue,
		log:         log.With().Str("component", "grade_service").Logger(),
	}
}

func (s *GradeService) ListByStudent(ctx context.Context, studentID int) ([]model.Grade, error) {
	return s.gradeRepo.ListByStudent(ctx, studentID)
}

// Upsert writes one grade (latest value wins for a re-graded subject),
// invalidates the student's average and enqueues a single-student
// recalculation.
func (s *GradeService) Upsert(ctx context.Context, studentID int, req model.UpsertGradeRequest) (*model.Grade, error) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student %d: %w", studentID, err)
	}

	grade := &model.Grade{
		StudentID: studentID,
		Semester:  req.Semester,
		Subject:   req.Subject,
		Value:     req.Value,
	}
	if err := s.gradeRepo.Upsert(ctx, grade); err != nil {
		return nil, err
	}
	if err := s.studentRepo.MarkStale(ctx, []int{studentID}); err != nil {
		return nil, err
	}

	s.gate.BumpGeneration(ctx, student.MajorID)
	s.queue.EnqueueRecalc(ctx, model.RecalcJob{Scope: model.ScopeStudent, StudentID: studentID})

	return grade, nil
}
