package service

import (
	"context"
	"time"

	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/repository"
)

// StudentService covers identity-level student access. Derived fields are
// read-only here; only the recalculation engine writes them.
type StudentService struct {
	studentRepo repository.StudentRepository
	gate        RecalcGate
	queue       RecalcQueue
}

func NewStudentService(studentRepo repository.StudentRepository, gate RecalcGate, queue RecalcQueue) *StudentService {
	return &StudentService{studentRepo: studentRepo, gate: gate, queue: queue}
}

func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

func (s *StudentService) ListPaginated(ctx context.Context, majorID *int, limit, offset int) ([]model.Student, int, error) {
	return s.studentRepo.ListPaginated(ctx, majorID, limit, offset)
}

func (s *StudentService) Create(ctx context.Context, req model.CreateStudentRequest) (*model.Student, error) {
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, err
	}

	student := &model.Student{
		NISN:      req.NISN,
		Name:      req.Name,
		MajorID:   req.MajorID,
		BirthDate: birthDate,
		Status:    model.DataStatusUnverified,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *StudentService) Update(ctx context.Context, id int, req model.UpdateStudentRequest) (*model.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, err
	}

	student.NISN = req.NISN
	student.Name = req.Name
	student.MajorID = req.MajorID
	student.BirthDate = birthDate

	if err := s.studentRepo.Update(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// SetStatus moves a student between UNVERIFIED and VERIFIED. Verification
// changes ranking membership, so it invalidates the student's major the same
// way a grade mutation does: bump the data generation (an in-flight run
// abandons itself) and enqueue a major-scope recalculation. Until that run
// commits, a formerly eligible un-verified student would otherwise keep
// is_eligible standing indefinitely.
func (s *StudentService) SetStatus(ctx context.Context, id int, status model.DataStatus) (*model.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if student.Status == status {
		return student, nil
	}

	if err := s.studentRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	student.Status = status

	s.gate.BumpGeneration(ctx, student.MajorID)
	s.queue.EnqueueRecalc(ctx, model.RecalcJob{Scope: model.ScopeMajor, MajorID: student.MajorID})

	return student, nil
}

func (s *StudentService) Delete(ctx context.Context, id int) error {
	if _, err := s.studentRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.studentRepo.Delete(ctx, id)
}
