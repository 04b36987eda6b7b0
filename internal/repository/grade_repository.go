package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/snbp-backend/internal/model"
)

// GradeRepository handles per-semester subject scores. Grades are
// append/update only: the (student, semester, subject) triple is unique and
// re-imports overwrite in place.
type GradeRepository interface {
	ListByStudent(ctx context.Context, studentID int) ([]model.Grade, error)
	Upsert(ctx context.Context, g *model.Grade) error
}

type gradeRepository struct {
	pool *pgxpool.Pool
}

func NewGradeRepository(pool *pgxpool.Pool) GradeRepository {
	return &gradeRepository{pool: pool}
}

func (r *gradeRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Grade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, semester, subject, value, created_at, updated_at
		 FROM grades WHERE student_id = $1 ORDER BY semester, subject`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grades []model.Grade
	for rows.Next() {
		var g model.Grade
		if err := rows.Scan(&g.ID, &g.StudentID, &g.Semester, &g.Subject, &g.Value, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

// Upsert writes a grade, overwriting the value when the subject was already
// graded in that semester (latest value wins). The caller is responsible for
// marking the owning student stale.
func (r *gradeRepository) Upsert(ctx context.Context, g *model.Grade) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO grades (student_id, semester, subject, value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (student_id, semester, subject)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP
		 RETURNING id, created_at, updated_at`,
		g.StudentID, g.Semester, g.Subject, g.Value,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
}
