package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/snbp-backend/internal/model"
)

var (
	// ErrAlreadyResolved is returned when approving or rejecting a rebuttal
	// that is no longer PENDING. Terminal states admit no transition.
	ErrAlreadyResolved = errors.New("rebuttal has already been resolved")
	// ErrGradeNotFound is returned when an approval targets a grade row that
	// does not exist; the whole approval rolls back.
	ErrGradeNotFound = errors.New("grade for rebuttal not found")
)

const rebuttalColumns = `id, student_id, semester, subject, claimed_value, evidence_ref, status, reviewer_note, reviewed_by, created_at, resolved_at`

// RebuttalRepository persists grade correction requests. Approve performs the
// grade rewrite and stale marking in the same transaction as the status
// change, so a crash can never leave a mutated grade without a stale flag.
type RebuttalRepository interface {
	Create(ctx context.Context, reb *model.Rebuttal) error
	GetByID(ctx context.Context, id string) (*model.Rebuttal, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Rebuttal, error)
	ListByStatus(ctx context.Context, status model.RebuttalStatus, limit, offset int) ([]model.Rebuttal, int, error)
	// Approve atomically marks the rebuttal APPROVED, rewrites the grade to
	// the claimed value and flags the student stale. Returns the resolved
	// rebuttal and the grade value it replaced.
	Approve(ctx context.Context, id, reviewerNote, reviewedBy string) (*model.Rebuttal, float64, error)
	// Reject marks the rebuttal REJECTED with no side effect on grades.
	Reject(ctx context.Context, id, reviewerNote, reviewedBy string) (*model.Rebuttal, error)
}

type rebuttalRepository struct {
	pool *pgxpool.Pool
}

func NewRebuttalRepository(pool *pgxpool.Pool) RebuttalRepository {
	return &rebuttalRepository{pool: pool}
}

func scanRebuttal(row interface{ Scan(...any) error }) (*model.Rebuttal, error) {
	reb := &model.Rebuttal{}
	err := row.Scan(&reb.ID, &reb.StudentID, &reb.Semester, &reb.Subject,
		&reb.ClaimedValue, &reb.EvidenceRef, &reb.Status, &reb.ReviewerNote,
		&reb.ReviewedBy, &reb.CreatedAt, &reb.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return reb, nil
}

func (r *rebuttalRepository) Create(ctx context.Context, reb *model.Rebuttal) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO rebuttals (id, student_id, semester, subject, claimed_value, evidence_ref, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		reb.ID, reb.StudentID, reb.Semester, reb.Subject, reb.ClaimedValue, reb.EvidenceRef, reb.Status,
	).Scan(&reb.CreatedAt)
}

func (r *rebuttalRepository) GetByID(ctx context.Context, id string) (*model.Rebuttal, error) {
	return scanRebuttal(r.pool.QueryRow(ctx,
		`SELECT `+rebuttalColumns+` FROM rebuttals WHERE id = $1`, id))
}

func (r *rebuttalRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Rebuttal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+rebuttalColumns+` FROM rebuttals WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rebuttals []model.Rebuttal
	for rows.Next() {
		reb, err := scanRebuttal(rows)
		if err != nil {
			return nil, err
		}
		rebuttals = append(rebuttals, *reb)
	}
	return rebuttals, rows.Err()
}

func (r *rebuttalRepository) ListByStatus(ctx context.Context, status model.RebuttalStatus, limit, offset int) ([]model.Rebuttal, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rebuttals WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+rebuttalColumns+` FROM rebuttals WHERE status = $1
		 ORDER BY created_at ASC LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rebuttals []model.Rebuttal
	for rows.Next() {
		reb, err := scanRebuttal(rows)
		if err != nil {
			return nil, 0, err
		}
		rebuttals = append(rebuttals, *reb)
	}
	return rebuttals, total, rows.Err()
}

func (r *rebuttalRepository) Approve(ctx context.Context, id, reviewerNote, reviewedBy string) (*model.Rebuttal, float64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	// The status guard doubles as the concurrency check: a second approval
	// of the same rebuttal matches zero rows.
	reb, err := scanRebuttal(tx.QueryRow(ctx,
		`UPDATE rebuttals
		 SET status = 'APPROVED', reviewer_note = $2, reviewed_by = $3, resolved_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND status = 'PENDING'
		 RETURNING `+rebuttalColumns, id, reviewerNote, reviewedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, r.resolveConflict(ctx, id)
		}
		return nil, 0, err
	}

	var oldValue float64
	err = tx.QueryRow(ctx,
		`SELECT value FROM grades
		 WHERE student_id = $1 AND semester = $2 AND subject = $3
		 FOR UPDATE`,
		reb.StudentID, reb.Semester, reb.Subject,
	).Scan(&oldValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrGradeNotFound
		}
		return nil, 0, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE grades SET value = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE student_id = $2 AND semester = $3 AND subject = $4`,
		reb.ClaimedValue, reb.StudentID, reb.Semester, reb.Subject); err != nil {
		return nil, 0, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE students SET score_stale = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		reb.StudentID); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return reb, oldValue, nil
}

func (r *rebuttalRepository) Reject(ctx context.Context, id, reviewerNote, reviewedBy string) (*model.Rebuttal, error) {
	reb, err := scanRebuttal(r.pool.QueryRow(ctx,
		`UPDATE rebuttals
		 SET status = 'REJECTED', reviewer_note = $2, reviewed_by = $3, resolved_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND status = 'PENDING'
		 RETURNING `+rebuttalColumns, id, reviewerNote, reviewedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.resolveConflict(ctx, id)
		}
		return nil, err
	}
	return reb, nil
}

// resolveConflict distinguishes "no such rebuttal" from "already terminal"
// after a guarded update matched zero rows.
func (r *rebuttalRepository) resolveConflict(ctx context.Context, id string) error {
	var status model.RebuttalStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM rebuttals WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return err // pgx.ErrNoRows → not found
	}
	return ErrAlreadyResolved
}
