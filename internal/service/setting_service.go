package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/repository"
)

// WeightSource provides the versioned semester weight vector. The
// orchestrator loads it once per invocation and never re-reads mid-run.
type WeightSource interface {
	SemesterWeights(ctx context.Context) (*model.WeightConfig, error)
}

type SettingService struct {
	settingRepo repository.SettingRepository
	log         zerolog.Logger
}

func NewSettingService(settingRepo repository.SettingRepository, log zerolog.Logger) *SettingService {
	return &SettingService{
		settingRepo: settingRepo,
		log:         log.With().Str("component", "setting_service").Logger(),
	}
}

// SemesterWeights returns the stored weight vector. When none has ever been
// configured, every semester weighs 1 (a plain arithmetic mean of semester
// means).
func (s *SettingService) SemesterWeights(ctx context.Context) (*model.WeightConfig, error) {
	setting, err := s.settingRepo.GetByKey(ctx, model.SettingKeySemesterWeights)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.WeightConfig{Version: 0, Weights: map[int]float64{}}, nil
		}
		return nil, err
	}

	var cfg model.WeightConfig
	if err := json.Unmarshal([]byte(setting.Value), &cfg); err != nil {
		return nil, fmt.Errorf("parse semester weights: %w", err)
	}
	return &cfg, nil
}

// UpdateWeights replaces the weight vector and bumps its version. Saving
// does not recalculate by itself — a weight change must be paired with an
// explicit recalculation trigger.
func (s *SettingService) UpdateWeights(ctx context.Context, weights map[int]float64) (*model.WeightConfig, error) {
	current, err := s.SemesterWeights(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &model.WeightConfig{
		Version: current.Version + 1,
		Weights: weights,
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.settingRepo.Upsert(ctx, model.SettingKeySemesterWeights, string(raw)); err != nil {
		return nil, err
	}

	s.log.Info().Int("version", cfg.Version).Msg("Semester weights updated")
	return cfg, nil
}
