package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/repository"
	"golang.org/x/sync/errgroup"
)

// ErrRecalcSuperseded means newer grade data arrived between this run's
// snapshot and its commit. The stale result is discarded; the caller (or the
// worker) retries against the fresh data.
var ErrRecalcSuperseded = errors.New("recalculation superseded by newer data")

// MajorRecalcError names the major and the error class so an admin-facing
// failure is never a generic one.
type MajorRecalcError struct {
	MajorID   int
	MajorCode string
	Err       error
}

func (e *MajorRecalcError) Error() string {
	return fmt.Sprintf("recalculation for major %s (id=%d) failed: %v", e.MajorCode, e.MajorID, e.Err)
}

func (e *MajorRecalcError) Unwrap() error { return e.Err }

// RecalcService is the top-level entry point of the eligibility engine. It
// decides when the aggregate → rank → allocate pipeline re-runs, holds the
// per-major critical section while it does, and commits all derived fields
// as one atomic swap.
type RecalcService struct {
	studentRepo repository.StudentRepository
	gradeRepo   repository.GradeRepository
	majorRepo   repository.MajorRepository
	weights     WeightSource
	gate        RecalcGate
	audit       AuditPublisher
	policy      QuotaPolicy
	log         zerolog.Logger
}

func NewRecalcService(
	studentRepo repository.StudentRepository,
	gradeRepo repository.GradeRepository,
	majorRepo repository.MajorRepository,
	weights WeightSource,
	gate RecalcGate,
	audit AuditPublisher,
	policy QuotaPolicy,
	log zerolog.Logger,
) *RecalcService {
	return &RecalcService{
		studentRepo: studentRepo,
		gradeRepo:   gradeRepo,
		majorRepo:   majorRepo,
		weights:     weights,
		gate:        gate,
		audit:       audit,
		policy:      policy,
		log:         log.With().Str("component", "recalc_service").Logger(),
	}
}

// Recalc dispatches on scope. STUDENT escalates to the student's whole major
// because one score change can shift every peer's rank and the quota
// boundary with it.
func (s *RecalcService) Recalc(ctx context.Context, req model.RecalcRequest) ([]*model.MajorRecalcReport, error) {
	switch req.Scope {
	case model.ScopeAll:
		return s.RecalcAll(ctx)
	case model.ScopeMajor:
		report, err := s.RecalcMajor(ctx, req.MajorID)
		if report == nil {
			return nil, err
		}
		return []*model.MajorRecalcReport{report}, err
	case model.ScopeStudent:
		report, err := s.RecalcStudent(ctx, req.StudentID)
		if report == nil {
			return nil, err
		}
		return []*model.MajorRecalcReport{report}, err
	default:
		return nil, fmt.Errorf("unknown recalc scope %q", req.Scope)
	}
}

// RecalcAll recalculates every major. Majors share no mutable state, so they
// run in parallel; one major's failure never aborts the others.
func (s *RecalcService) RecalcAll(ctx context.Context) ([]*model.MajorRecalcReport, error) {
	majors, err := s.majorRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		reports []*model.MajorRecalcReport
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, major := range majors {
		g.Go(func() error {
			report, err := s.runMajor(gctx, major)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if report != nil {
				reports = append(reports, report)
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}

// RecalcMajor re-runs the full pipeline for one major.
func (s *RecalcService) RecalcMajor(ctx context.Context, majorID int) (*model.MajorRecalcReport, error) {
	major, err := s.majorRepo.GetByID(ctx, majorID)
	if err != nil {
		return nil, fmt.Errorf("load major %d: %w", majorID, err)
	}
	return s.runMajor(ctx, major)
}

// RecalcStudent recomputes one student's average and then escalates to the
// student's major. The escalation is mandatory, not an optimization knob.
func (s *RecalcService) RecalcStudent(ctx context.Context, studentID int) (*model.MajorRecalcReport, error) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student %d: %w", studentID, err)
	}
	// The major run re-aggregates every stale student, this one included.
	return s.RecalcMajor(ctx, student.MajorID)
}

type derivedSnapshot struct {
	average *float64
	rank    *int
	elig    bool
	stale   bool
}

func snapshotOf(st *model.Student) derivedSnapshot {
	return derivedSnapshot{average: st.AverageScore, rank: st.Rank, elig: st.IsEligible, stale: st.ScoreStale}
}

func (d derivedSnapshot) equals(row model.DerivedScore) bool {
	if d.stale {
		return false
	}
	if !floatPtrEqual(d.average, row.AverageScore) {
		return false
	}
	if !intPtrEqual(d.rank, row.Rank) {
		return false
	}
	return d.elig == row.IsEligible
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// runMajor executes one critical-section pass: snapshot, aggregate stale
// averages, rank, allocate, and commit. The commit is a single bulk swap, so
// a failure at any point leaves the previously persisted derived state
// untouched.
func (s *RecalcService) runMajor(ctx context.Context, major *model.Major) (*model.MajorRecalcReport, error) {
	token, err := s.gate.Lock(ctx, major.ID)
	if err != nil {
		return nil, &MajorRecalcError{MajorID: major.ID, MajorCode: major.Code, Err: err}
	}
	defer s.gate.Unlock(ctx, major.ID, token)

	startGen, err := s.gate.Generation(ctx, major.ID)
	if err != nil {
		return nil, &MajorRecalcError{MajorID: major.ID, MajorCode: major.Code, Err: err}
	}

	// Config is read once per invocation. A weight change only takes effect
	// through the next explicit trigger.
	weights, err := s.weights.SemesterWeights(ctx)
	if err != nil {
		return nil, &MajorRecalcError{MajorID: major.ID, MajorCode: major.Code, Err: err}
	}

	students, err := s.studentRepo.ListByMajor(ctx, major.ID)
	if err != nil {
		return nil, &MajorRecalcError{MajorID: major.ID, MajorCode: major.Code, Err: err}
	}

	previous := make(map[int]derivedSnapshot, len(students))
	for _, st := range students {
		previous[st.ID] = snapshotOf(st)
	}

	// 1. Score Aggregator for every stale or never-computed student.
	for _, st := range students {
		if !st.ScoreStale && st.AverageScore != nil {
			continue
		}
		grades, err := s.gradeRepo.ListByStudent(ctx, st.ID)
		if err != nil {
			return nil, &MajorRecalcError{MajorID: major.ID, MajorCode: major.Code, Err: err}
		}
		avg, err := WeightedAverage(grades, weights)
		if err != nil {
			if errors.Is(err, ErrNoGradeData) || errors.Is(err, ErrZeroWeightSum) {
				// Surfaced later as unrankable; does not abort the major.
				st.AverageScore = nil
				st.ScoreStale = false
				continue
			}
			return nil, &MajorRecalcError{MajorID: major.ID, MajorCode: major.Code, Err: err}
		}
		st.AverageScore = &avg
		st.ScoreStale = false
	}

	// 2. Ranking Engine over the verified cohort.
	verified := make([]*model.Student, 0, len(students))
	for _, st := range students {
		st.Rank = nil
		if st.Status == model.DataStatusVerified {
			verified = append(verified, st)
		}
	}
	ranked, unrankable := RankStudents(verified)

	// 3. Quota Allocator.
	eligible, quotaCount, err := AllocateQuota(ranked, major, len(unrankable), s.policy)
	if err != nil {
		if errors.Is(err, ErrQuotaNotConfigured) {
			// Fail closed: a misconfigured major grants nobody eligibility.
			if clearErr := s.studentRepo.ClearEligibility(ctx, major.ID); clearErr != nil {
				err = errors.Join(err, clearErr)
			}
		}
		return nil, &MajorRecalcError{MajorID: major.ID, MajorCode: major.Code, Err: err}
	}

	// 4. Build the full replacement rows. Unverified and unrankable students
	// get their rank and eligibility cleared, never stale leftovers.
	rows := make([]model.DerivedScore, 0, len(students))
	changed := false
	for _, st := range students {
		row := model.DerivedScore{
			StudentID:    st.ID,
			AverageScore: st.AverageScore,
			Rank:         st.Rank,
			IsEligible:   eligible[st.ID],
		}
		if !previous[st.ID].equals(row) {
			changed = true
		}
		rows = append(rows, row)
	}

	// 5. Abandon instead of committing over fresher data.
	endGen, err := s.gate.Generation(ctx, major.ID)
	if err != nil {
		return nil, &MajorRecalcError{MajorID: major.ID, MajorCode: major.Code, Err: err}
	}
	if endGen != startGen {
		return nil, &MajorRecalcError{MajorID: major.ID, MajorCode: major.Code, Err: ErrRecalcSuperseded}
	}

	if err := s.studentRepo.ReplaceDerived(ctx, rows); err != nil {
		return nil, &MajorRecalcError{MajorID: major.ID, MajorCode: major.Code, Err: err}
	}

	eligibleCount := 0
	for _, ok := range eligible {
		if ok {
			eligibleCount++
		}
	}

	report := &model.MajorRecalcReport{
		MajorID:    major.ID,
		MajorCode:  major.Code,
		QuotaCount: quotaCount,
		Ranked:     len(ranked),
		Eligible:   eligibleCount,
		Unrankable: unrankable,
		Changed:    changed,
		FinishedAt: time.Now().UTC(),
	}

	after, _ := json.Marshal(report)
	s.audit.Publish(ctx, model.AuditEvent{
		Actor:      "recalc_engine",
		Action:     model.AuditActionMajorRecalculated,
		EntityType: "major",
		EntityID:   major.Code,
		After:      after,
		At:         report.FinishedAt,
	})

	s.log.Info().
		Str("major", major.Code).
		Int("ranked", len(ranked)).
		Int("eligible", eligibleCount).
		Int("quota", quotaCount).
		Bool("changed", changed).
		Msg("Major recalculated")

	return report, nil
}
