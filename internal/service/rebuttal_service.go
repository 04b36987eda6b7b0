package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/repository"
)

var (
	// ErrInvalidTransition means the rebuttal state machine was violated:
	// PENDING is the only state that admits a transition.
	ErrInvalidTransition = errors.New("rebuttal is already in a terminal state")
	// ErrRebuttalGradeMissing means the disputed grade does not exist, so
	// there is nothing an approval could rewrite.
	ErrRebuttalGradeMissing = errors.New("disputed grade does not exist")
)

// CanTransition reports whether a rebuttal may move from one status to
// another. APPROVED and REJECTED are terminal; nothing leaves them.
func CanTransition(from, to model.RebuttalStatus) bool {
	if from != model.RebuttalPending {
		return false
	}
	return to == model.RebuttalApproved || to == model.RebuttalRejected
}

// RebuttalService runs the grade dispute workflow: student-facing intake and
// the admin approve/reject gate. Approval mutates the disputed grade, marks
// the student stale and enqueues a single-student recalculation.
type RebuttalService struct {
	rebuttalRepo repository.RebuttalRepository
	studentRepo  repository.StudentRepository
	audit        AuditPublisher
	gate         RecalcGate
	queue        RecalcQueue
	log          zerolog.Logger
}

func NewRebuttalService(
	rebuttalRepo repository.RebuttalRepository,
	studentRepo repository.StudentRepository,
	audit AuditPublisher,
	gate RecalcGate,
	queue RecalcQueue,
	log zerolog.Logger,
) *RebuttalService {
	return &RebuttalService{
		rebuttalRepo: rebuttalRepo,
		studentRepo:  studentRepo,
		audit:        audit,
		gate:         gate,
		queue:        queue,
		log:          log.With().Str("component", "rebuttal_service").Logger(),
	}
}

// Submit creates a PENDING rebuttal with a stable ID.
func (s *RebuttalService) Submit(ctx context.Context, req model.SubmitRebuttalRequest) (*model.Rebuttal, error) {
	if _, err := s.studentRepo.GetByID(ctx, req.StudentID); err != nil {
		return nil, fmt.Errorf("load student %d: %w", req.StudentID, err)
	}

	reb := &model.Rebuttal{
		ID:           uuid.New().String(),
		StudentID:    req.StudentID,
		Semester:     req.Semester,
		Subject:      req.Subject,
		ClaimedValue: req.ClaimedValue,
		EvidenceRef:  req.EvidenceRef,
		Status:       model.RebuttalPending,
	}
	if err := s.rebuttalRepo.Create(ctx, reb); err != nil {
		return nil, err
	}
	return reb, nil
}

func (s *RebuttalService) GetByID(ctx context.Context, id string) (*model.Rebuttal, error) {
	return s.rebuttalRepo.GetByID(ctx, id)
}

func (s *RebuttalService) ListByStudent(ctx context.Context, studentID int) ([]model.Rebuttal, error) {
	return s.rebuttalRepo.ListByStudent(ctx, studentID)
}

func (s *RebuttalService) ListByStatus(ctx context.Context, status model.RebuttalStatus, limit, offset int) ([]model.Rebuttal, int, error) {
	return s.rebuttalRepo.ListByStatus(ctx, status, limit, offset)
}

// Approve resolves a PENDING rebuttal in the student's favor. The grade
// rewrite, the stale flag and the status change commit as one transaction;
// afterwards a single-student recalculation is triggered. If the trigger
// itself fails the stale flag survives, so the next recalculation of the
// major detects and repairs the gap.
func (s *RebuttalService) Approve(ctx context.Context, id string, req model.ResolveRebuttalRequest) (*model.Rebuttal, error) {
	reb, oldValue, err := s.rebuttalRepo.Approve(ctx, id, req.ReviewerNote, req.ReviewedBy)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyResolved):
			return nil, ErrInvalidTransition
		case errors.Is(err, repository.ErrGradeNotFound):
			return nil, ErrRebuttalGradeMissing
		default:
			return nil, err
		}
	}

	before, _ := json.Marshal(map[string]any{"subject": reb.Subject, "semester": reb.Semester, "value": oldValue})
	after, _ := json.Marshal(map[string]any{"subject": reb.Subject, "semester": reb.Semester, "value": reb.ClaimedValue})
	s.audit.Publish(ctx, model.AuditEvent{
		Actor:      req.ReviewedBy,
		Action:     model.AuditActionGradeCorrected,
		EntityType: "rebuttal",
		EntityID:   reb.ID,
		Before:     before,
		After:      after,
		At:         time.Now().UTC(),
	})

	s.triggerRecalc(ctx, reb.StudentID)
	return reb, nil
}

// Reject resolves a PENDING rebuttal against the student. No grade is
// touched and no recalculation runs.
func (s *RebuttalService) Reject(ctx context.Context, id string, req model.ResolveRebuttalRequest) (*model.Rebuttal, error) {
	reb, err := s.rebuttalRepo.Reject(ctx, id, req.ReviewerNote, req.ReviewedBy)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyResolved) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.audit.Publish(ctx, model.AuditEvent{
		Actor:      req.ReviewedBy,
		Action:     model.AuditActionRebuttalRejected,
		EntityType: "rebuttal",
		EntityID:   reb.ID,
		At:         time.Now().UTC(),
	})
	return reb, nil
}

// triggerRecalc bumps the student's major generation (so an in-flight run
// abandons itself) and enqueues the single-student job. Failures are logged,
// not returned: the committed stale flag already guarantees eventual repair.
func (s *RebuttalService) triggerRecalc(ctx context.Context, studentID int) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		s.log.Error().Err(err).Int("student_id", studentID).Msg("Failed to load student for recalc trigger")
		return
	}
	s.gate.BumpGeneration(ctx, student.MajorID)
	s.queue.EnqueueRecalc(ctx, model.RecalcJob{Scope: model.ScopeStudent, StudentID: studentID})
}
