package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/config"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/repository"
)

const reportCacheTTL = 30 * time.Second

// EligibilityReport is the reporting/export view of one major's persisted
// derived state. It reads committed fields only — a caller wanting
// guaranteed-fresh data triggers a recalculation first.
type EligibilityReport struct {
	Major       *model.Major           `json:"major"`
	Rows        []EligibilityReportRow `json:"rows"`
	Unranked    []EligibilityReportRow `json:"unranked,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

type EligibilityReportRow struct {
	StudentID    int              `json:"student_id"`
	NISN         string           `json:"nisn"`
	Name         string           `json:"name"`
	Status       model.DataStatus `json:"data_status"`
	AverageScore *float64         `json:"average_score"`
	Rank         *int             `json:"rank"`
	IsEligible   bool             `json:"is_eligible"`
	ScoreStale   bool             `json:"score_stale"`
}

// ReportService serves the per-major eligibility report with a short Redis
// cache in front. Freshness is explicitly not guaranteed here.
type ReportService struct {
	studentRepo repository.StudentRepository
	majorRepo   repository.MajorRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

func NewReportService(
	studentRepo repository.StudentRepository,
	majorRepo repository.MajorRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		studentRepo: studentRepo,
		majorRepo:   majorRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "report_service").Logger(),
	}
}

func (s *ReportService) MajorEligibilityReport(ctx context.Context, majorID int) (*EligibilityReport, error) {
	cacheKey := config.CacheKey.MajorReportKey(majorID)
	if cached, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
		var report EligibilityReport
		if err := json.Unmarshal(cached, &report); err == nil {
			return &report, nil
		}
	}

	major, err := s.majorRepo.GetByID(ctx, majorID)
	if err != nil {
		return nil, err
	}
	students, err := s.studentRepo.ListByMajor(ctx, majorID)
	if err != nil {
		return nil, err
	}

	report := &EligibilityReport{Major: major, GeneratedAt: time.Now().UTC()}
	for _, st := range students {
		row := EligibilityReportRow{
			StudentID:    st.ID,
			NISN:         st.NISN,
			Name:         st.Name,
			Status:       st.Status,
			AverageScore: st.AverageScore,
			Rank:         st.Rank,
			IsEligible:   st.IsEligible,
			ScoreStale:   st.ScoreStale,
		}
		if st.Rank != nil {
			report.Rows = append(report.Rows, row)
		} else {
			report.Unranked = append(report.Unranked, row)
		}
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		return *report.Rows[i].Rank < *report.Rows[j].Rank
	})

	if raw, err := json.Marshal(report); err == nil {
		if err := s.rdb.Set(ctx, cacheKey, raw, reportCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Int("major_id", majorID).Msg("Failed to cache eligibility report")
		}
	}

	return report, nil
}
