package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/snbp-backend/internal/model"
)

var ErrDuplicateNISN = errors.New("student with this NISN already exists")

const studentColumns = `id, nisn, name, major_id, birth_date, data_status, average_score, "rank", is_eligible, score_stale, created_at, updated_at`

// StudentRepository handles student data access, including the engine's
// bulk commit of derived fields.
type StudentRepository interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
	GetByNISN(ctx context.Context, nisn string) (*model.Student, error)
	ListByMajor(ctx context.Context, majorID int) ([]*model.Student, error)
	ListPaginated(ctx context.Context, majorID *int, limit, offset int) ([]model.Student, int, error)
	Create(ctx context.Context, s *model.Student) error
	Update(ctx context.Context, s *model.Student) error
	UpdateStatus(ctx context.Context, id int, status model.DataStatus) error
	MarkStale(ctx context.Context, ids []int) error
	ReplaceDerived(ctx context.Context, rows []model.DerivedScore) error
	ClearEligibility(ctx context.Context, majorID int) error
	Delete(ctx context.Context, id int) error
}

type studentRepository struct {
	pool *pgxpool.Pool
}

func NewStudentRepository(pool *pgxpool.Pool) StudentRepository {
	return &studentRepository{pool: pool}
}

func scanStudent(row interface{ Scan(...any) error }) (*model.Student, error) {
	s := &model.Student{}
	err := row.Scan(&s.ID, &s.NISN, &s.Name, &s.MajorID, &s.BirthDate, &s.Status,
		&s.AverageScore, &s.Rank, &s.IsEligible, &s.ScoreStale, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *studentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
}

func (r *studentRepository) GetByNISN(ctx context.Context, nisn string) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE nisn = $1`, nisn))
}

// ListByMajor returns every student of a major ordered by creation time then
// NISN, matching the ranking tie-break order so a snapshot read is already
// deterministic.
func (r *studentRepository) ListByMajor(ctx context.Context, majorID int) ([]*model.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students WHERE major_id = $1 ORDER BY created_at, nisn`, majorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []*model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// ListPaginated retrieves students with pagination and optional major filter.
func (r *studentRepository) ListPaginated(ctx context.Context, majorID *int, limit, offset int) ([]model.Student, int, error) {
	countQuery := `SELECT COUNT(*) FROM students`
	var countArgs []interface{}
	if majorID != nil {
		countQuery += ` WHERE major_id = $1`
		countArgs = append(countArgs, *majorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + studentColumns + ` FROM students`
	var args []interface{}
	argIdx := 1

	if majorID != nil {
		query += ` WHERE major_id = $1`
		args = append(args, *majorID)
		argIdx++
	}

	query += ` ORDER BY name LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		students = append(students, *s)
	}
	return students, total, rows.Err()
}

func (r *studentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (nisn, name, major_id, birth_date, data_status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		s.NISN, s.Name, s.MajorID, s.BirthDate, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNISN
		}
		return err
	}
	return nil
}

// Update modifies a student's identity fields. Derived fields are only ever
// written through ReplaceDerived.
func (r *studentRepository) Update(ctx context.Context, s *model.Student) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET nisn = $1, name = $2, major_id = $3, birth_date = $4, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5`,
		s.NISN, s.Name, s.MajorID, s.BirthDate, s.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNISN
		}
		return err
	}
	return nil
}

func (r *studentRepository) UpdateStatus(ctx context.Context, id int, status model.DataStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET data_status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id,
	)
	return err
}

// MarkStale flags the given students' averages as out of date.
func (r *studentRepository) MarkStale(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET score_stale = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = ANY($1)`, ids)
	return err
}

// ReplaceDerived commits one recalculation run: a single bulk UPDATE via
// UNNEST that swaps in every student's new average, rank and eligibility and
// clears the stale flag. One statement, so the commit is atomic — a failure
// leaves all prior derived state intact.
func (r *studentRepository) ReplaceDerived(ctx context.Context, rows []model.DerivedScore) error {
	if len(rows) == 0 {
		return nil
	}

	n := len(rows)
	ids := make([]int, 0, n)
	averages := make([]*float64, 0, n)
	ranks := make([]*int, 0, n)
	eligibles := make([]bool, 0, n)

	for _, d := range rows {
		ids = append(ids, d.StudentID)
		averages = append(averages, d.AverageScore)
		ranks = append(ranks, d.Rank)
		eligibles = append(eligibles, d.IsEligible)
	}

	query := `
		UPDATE students AS s
		SET average_score = t.average_score,
		    "rank" = t.rank,
		    is_eligible = t.is_eligible,
		    score_stale = FALSE,
		    updated_at = CURRENT_TIMESTAMP
		FROM (
			SELECT
				u.id,
				u.average_score,
				u.rank,
				u.is_eligible
			FROM UNNEST(
				$1::int[],
				$2::float8[],
				$3::int[],
				$4::bool[]
			) AS u (id, average_score, rank, is_eligible)
		) AS t
		WHERE s.id = t.id
	`

	_, err := r.pool.Exec(ctx, query, ids, averages, ranks, eligibles)
	return err
}

// ClearEligibility fails a major closed: no student stays eligible when the
// quota policy is missing.
func (r *studentRepository) ClearEligibility(ctx context.Context, majorID int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET is_eligible = FALSE, "rank" = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE major_id = $1`, majorID)
	return err
}

func (r *studentRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	return err
}
