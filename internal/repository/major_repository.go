package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/snbp-backend/internal/model"
)

const majorColumns = `id, code, long_name, quota_percentage, quota_count_override, min_average, created_at, updated_at`

type MajorRepository interface {
	GetAll(ctx context.Context) ([]*model.Major, error)
	GetByID(ctx context.Context, id int) (*model.Major, error)
	GetByCode(ctx context.Context, code string) (*model.Major, error)
	Create(ctx context.Context, major *model.Major) error
	Update(ctx context.Context, major *model.Major) error
	Delete(ctx context.Context, id int) error
}

type majorRepository struct {
	db *pgxpool.Pool
}

func NewMajorRepository(db *pgxpool.Pool) MajorRepository {
	return &majorRepository{db: db}
}

func scanMajor(row interface{ Scan(...any) error }) (*model.Major, error) {
	m := &model.Major{}
	err := row.Scan(&m.ID, &m.Code, &m.LongName, &m.QuotaPercentage,
		&m.QuotaCountOverride, &m.MinAverage, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *majorRepository) GetAll(ctx context.Context) ([]*model.Major, error) {
	rows, err := r.db.Query(ctx, `SELECT `+majorColumns+` FROM majors ORDER BY long_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var majors []*model.Major
	for rows.Next() {
		m, err := scanMajor(rows)
		if err != nil {
			return nil, err
		}
		majors = append(majors, m)
	}
	return majors, rows.Err()
}

func (r *majorRepository) GetByID(ctx context.Context, id int) (*model.Major, error) {
	return scanMajor(r.db.QueryRow(ctx, `SELECT `+majorColumns+` FROM majors WHERE id = $1`, id))
}

func (r *majorRepository) GetByCode(ctx context.Context, code string) (*model.Major, error) {
	return scanMajor(r.db.QueryRow(ctx, `SELECT `+majorColumns+` FROM majors WHERE code = $1`, code))
}

func (r *majorRepository) Create(ctx context.Context, major *model.Major) error {
	query := `
		INSERT INTO majors (code, long_name, quota_percentage, quota_count_override, min_average)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, major.Code, major.LongName,
		major.QuotaPercentage, major.QuotaCountOverride, major.MinAverage,
	).Scan(&major.ID, &major.CreatedAt, &major.UpdatedAt)
}

func (r *majorRepository) Update(ctx context.Context, major *model.Major) error {
	query := `
		UPDATE majors
		SET code = $1, long_name = $2, quota_percentage = $3, quota_count_override = $4,
		    min_average = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING updated_at
	`
	return r.db.QueryRow(ctx, query, major.Code, major.LongName,
		major.QuotaPercentage, major.QuotaCountOverride, major.MinAverage, major.ID,
	).Scan(&major.UpdatedAt)
}

func (r *majorRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM majors WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
