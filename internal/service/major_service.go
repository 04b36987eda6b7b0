package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/repository"
)

var (
	// ErrMajorNotFound means the referenced major does not exist.
	ErrMajorNotFound = errors.New("major not found")
	// ErrMajorCodeTaken means another major already uses the requested code.
	ErrMajorCodeTaken = errors.New("major code already exists")
)

type MajorService interface {
	GetAllMajors(ctx context.Context) ([]*model.Major, error)
	GetMajor(ctx context.Context, id int) (*model.Major, error)
	CreateMajor(ctx context.Context, req model.CreateMajorRequest) (*model.Major, error)
	UpdateMajor(ctx context.Context, id int, req model.UpdateMajorRequest) (*model.Major, error)
	DeleteMajor(ctx context.Context, id int) error
}

type majorService struct {
	majorRepo repository.MajorRepository
}

func NewMajorService(majorRepo repository.MajorRepository) MajorService {
	return &majorService{majorRepo: majorRepo}
}

func (s *majorService) GetAllMajors(ctx context.Context) ([]*model.Major, error) {
	return s.majorRepo.GetAll(ctx)
}

func (s *majorService) GetMajor(ctx context.Context, id int) (*model.Major, error) {
	return s.majorRepo.GetByID(ctx, id)
}

func (s *majorService) CreateMajor(ctx context.Context, req model.CreateMajorRequest) (*model.Major, error) {
	existing, err := s.majorRepo.GetByCode(ctx, req.Code)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMajorCodeTaken
	}

	major := &model.Major{
		Code:               req.Code,
		LongName:           req.LongName,
		QuotaPercentage:    req.QuotaPercentage,
		QuotaCountOverride: req.QuotaCountOverride,
		MinAverage:         req.MinAverage,
	}
	if err := s.majorRepo.Create(ctx, major); err != nil {
		return nil, err
	}
	return major, nil
}

// UpdateMajor replaces the major's identity and quota policy. A policy
// change does not re-rank by itself; the admin pairs it with an explicit
// recalculation trigger.
func (s *majorService) UpdateMajor(ctx context.Context, id int, req model.UpdateMajorRequest) (*model.Major, error) {
	major, err := s.majorRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMajorNotFound
		}
		return nil, err
	}

	if req.Code != major.Code {
		existing, err := s.majorRepo.GetByCode(ctx, req.Code)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, ErrMajorCodeTaken
		}
	}

	major.Code = req.Code
	major.LongName = req.LongName
	major.QuotaPercentage = req.QuotaPercentage
	major.QuotaCountOverride = req.QuotaCountOverride
	major.MinAverage = req.MinAverage

	if err := s.majorRepo.Update(ctx, major); err != nil {
		return nil, err
	}
	return major, nil
}

func (s *majorService) DeleteMajor(ctx context.Context, id int) error {
	if _, err := s.majorRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMajorNotFound
		}
		return err
	}
	return s.majorRepo.Delete(ctx, id)
}
