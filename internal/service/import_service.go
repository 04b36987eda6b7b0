package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/repository"
)

// ImportSummary reports the outcome of one bulk ingestion run, including the
// per-major recalculation reports triggered by it.
type ImportSummary struct {
	StudentsCreated int                        `json:"students_created"`
	StudentsUpdated int                        `json:"students_updated"`
	GradesUpserted  int                        `json:"grades_upserted"`
	SkippedRows     []string                   `json:"skipped_rows,omitempty"`
	Reports         []*model.MajorRecalcReport `json:"reports,omitempty"`
	RecalcErrors    []string                   `json:"recalc_errors,omitempty"`
}

// ImportService ingests validated student/grade rows handed over by the
// import collaborator. File parsing happens upstream; this service only
// persists rows, invalidates averages and synchronously recalculates every
// affected major.
type ImportService struct {
	studentRepo repository.StudentRepository
	gradeRepo   repository.GradeRepository
	majorRepo   repository.MajorRepository
	recalc      *RecalcService
	gate        RecalcGate
	log         zerolog.Logger
}

func NewImportService(
	studentRepo repository.StudentRepository,
	gradeRepo repository.GradeRepository,
	majorRepo repository.MajorRepository,
	recalc *RecalcService,
	gate RecalcGate,
	log zerolog.Logger,
) *ImportService {
	return &ImportService{
		studentRepo: studentRepo,
		gradeRepo:   gradeRepo,
		majorRepo:   majorRepo,
		recalc:      recalc,
		gate:        gate,
		log:         log.With().Str("component", "import_service").Logger(),
	}
}

// ImportRows upserts students and grades, marks every touched student stale
// and re-runs the pipeline for each affected major before returning. Rows
// referencing an unknown major are skipped and reported, not fatal.
func (s *ImportService) ImportRows(ctx context.Context, rows []model.ImportStudentRow) (*ImportSummary, error) {
	summary := &ImportSummary{}
	majorsByCode := make(map[string]*model.Major)
	affectedMajors := make(map[int]bool)
	var staleIDs []int

	for _, row := range rows {
		major, ok := majorsByCode[row.MajorCode]
		if !ok {
			loaded, err := s.majorRepo.GetByCode(ctx, row.MajorCode)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					summary.SkippedRows = append(summary.SkippedRows,
						fmt.Sprintf("nisn %s: unknown major code %q", row.NISN, row.MajorCode))
					continue
				}
				return nil, err
			}
			major = loaded
			majorsByCode[row.MajorCode] = major
		}

		birthDate, err := time.Parse("2006-01-02", row.BirthDate)
		if err != nil {
			summary.SkippedRows = append(summary.SkippedRows,
				fmt.Sprintf("nisn %s: invalid birth date %q", row.NISN, row.BirthDate))
			continue
		}

		student, err := s.studentRepo.GetByNISN(ctx, row.NISN)
		switch {
		case err == nil:
			student.Name = row.Name
			student.MajorID = major.ID
			student.BirthDate = birthDate
			if err := s.studentRepo.Update(ctx, student); err != nil {
				return nil, err
			}
			summary.StudentsUpdated++
		case errors.Is(err, pgx.ErrNoRows):
			student = &model.Student{
				NISN:      row.NISN,
				Name:      row.Name,
				MajorID:   major.ID,
				BirthDate: birthDate,
				Status:    model.DataStatusUnverified,
			}
			if err := s.studentRepo.Create(ctx, student); err != nil {
				return nil, err
			}
			summary.StudentsCreated++
		default:
			return nil, err
		}

		for _, g := range row.Grades {
			grade := &model.Grade{
				StudentID: student.ID,
				Semester:  g.Semester,
				Subject:   g.Subject,
				Value:     g.Value,
			}
			if err := s.gradeRepo.Upsert(ctx, grade); err != nil {
				return nil, err
			}
			summary.GradesUpserted++
		}

		staleIDs = append(staleIDs, student.ID)
		affectedMajors[major.ID] = true
	}

	if err := s.studentRepo.MarkStale(ctx, staleIDs); err != nil {
		return nil, err
	}

	// Import completion triggers the pipeline synchronously, per major.
	// A major failing (e.g. no quota policy yet) is reported, not fatal:
	// the stale flags survive and the next trigger repairs it.
	for majorID := range affectedMajors {
		s.gate.BumpGeneration(ctx, majorID)
		report, err := s.recalc.RecalcMajor(ctx, majorID)
		if err != nil {
			summary.RecalcErrors = append(summary.RecalcErrors, err.Error())
			continue
		}
		summary.Reports = append(summary.Reports, report)
	}

	s.log.Info().
		Int("created", summary.StudentsCreated).
		Int("updated", summary.StudentsUpdated).
		Int("grades", summary.GradesUpserted).
		Int("skipped", len(summary.SkippedRows)).
		Msg("Import finished")

	return summary, nil
}
