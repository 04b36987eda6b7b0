package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/snbp-backend/internal/config"
	"github.com/stemsi/snbp-backend/internal/model"
)

// ─── In-memory fakes ───────────────────────────────────────────────────────

type fakeStudentRepo struct {
	students       map[int]*model.Student
	replacedRows   []model.DerivedScore
	replaceCalls   int
	clearedMajorID int
}

func newFakeStudentRepo(students ...*model.Student) *fakeStudentRepo {
	m := make(map[int]*model.Student, len(students))
	for _, s := range students {
		m[s.ID] = s
	}
	return &fakeStudentRepo{students: m, clearedMajorID: -1}
}

func (r *fakeStudentRepo) GetByID(_ context.Context, id int) (*model.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, assert.AnError
	}
	copied := *s
	return &copied, nil
}

func (r *fakeStudentRepo) GetByNISN(_ context.Context, nisn string) (*model.Student, error) {
	for _, s := range r.students {
		if s.NISN == nisn {
			copied := *s
			return &copied, nil
		}
	}
	return nil, assert.AnError
}

func (r *fakeStudentRepo) ListByMajor(_ context.Context, majorID int) ([]*model.Student, error) {
	var out []*model.Student
	for _, s := range r.students {
		if s.MajorID == majorID {
			copied := *s
			out = append(out, &copied)
		}
	}
	// Mirror the repository's created_at, nisn ordering.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			a, b := out[i], out[j]
			if b.CreatedAt.Before(a.CreatedAt) || (b.CreatedAt.Equal(a.CreatedAt) && b.NISN < a.NISN) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *fakeStudentRepo) ListPaginated(context.Context, *int, int, int) ([]model.Student, int, error) {
	return nil, 0, nil
}
func (r *fakeStudentRepo) Create(context.Context, *model.Student) error { return nil }
func (r *fakeStudentRepo) Update(context.Context, *model.Student) error { return nil }
func (r *fakeStudentRepo) UpdateStatus(_ context.Context, id int, status model.DataStatus) error {
	if s, ok := r.students[id]; ok {
		s.Status = status
	}
	return nil
}

func (r *fakeStudentRepo) MarkStale(_ context.Context, ids []int) error {
	for _, id := range ids {
		if s, ok := r.students[id]; ok {
			s.ScoreStale = true
		}
	}
	return nil
}

func (r *fakeStudentRepo) ReplaceDerived(_ context.Context, rows []model.DerivedScore) error {
	r.replaceCalls++
	r.replacedRows = rows
	for _, row := range rows {
		if s, ok := r.students[row.StudentID]; ok {
			s.AverageScore = row.AverageScore
			s.Rank = row.Rank
			s.IsEligible = row.IsEligible
			s.ScoreStale = false
		}
	}
	return nil
}

func (r *fakeStudentRepo) ClearEligibility(_ context.Context, majorID int) error {
	r.clearedMajorID = majorID
	for _, s := range r.students {
		if s.MajorID == majorID {
			s.IsEligible = false
			s.Rank = nil
		}
	}
	return nil
}

func (r *fakeStudentRepo) Delete(context.Context, int) error { return nil }

type fakeGradeRepo struct {
	grades map[int][]model.Grade
}

func (r *fakeGradeRepo) ListByStudent(_ context.Context, studentID int) ([]model.Grade, error) {
	return r.grades[studentID], nil
}
func (r *fakeGradeRepo) Upsert(context.Context, *model.Grade) error { return nil }

type fakeMajorRepo struct {
	majors map[int]*model.Major
}

func (r *fakeMajorRepo) GetAll(context.Context) ([]*model.Major, error) {
	var out []*model.Major
	for _, m := range r.majors {
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMajorRepo) GetByID(_ context.Context, id int) (*model.Major, error) {
	m, ok := r.majors[id]
	if !ok {
		return nil, assert.AnError
	}
	return m, nil
}

func (r *fakeMajorRepo) GetByCode(_ context.Context, code string) (*model.Major, error) {
	for _, m := range r.majors {
		if m.Code == code {
			return m, nil
		}
	}
	return nil, assert.AnError
}

func (r *fakeMajorRepo) Create(context.Context, *model.Major) error { return nil }
func (r *fakeMajorRepo) Update(context.Context, *model.Major) error { return nil }
func (r *fakeMajorRepo) Delete(context.Context, int) error          { return nil }

type fakeWeights struct {
	cfg *model.WeightConfig
}

func (w *fakeWeights) SemesterWeights(context.Context) (*model.WeightConfig, error) {
	return w.cfg, nil
}

// fakeGate tracks lock state and generations in memory. bumpAfterSnapshot
// simulates a grade mutation landing between snapshot and commit.
type fakeGate struct {
	locked            map[int]bool
	generation        int64
	generationReads   int
	bumpAfterSnapshot bool
	denyLock          bool
	bumpedMajors      []int
}

func newFakeGate() *fakeGate {
	return &fakeGate{locked: map[int]bool{}}
}

func (g *fakeGate) Lock(_ context.Context, majorID int) (string, error) {
	if g.denyLock || g.locked[majorID] {
		return "", ErrRecalcInProgress
	}
	g.locked[majorID] = true
	return "token", nil
}

func (g *fakeGate) Unlock(_ context.Context, majorID int, _ string) {
	g.locked[majorID] = false
}

func (g *fakeGate) Generation(context.Context, int) (int64, error) {
	g.generationReads++
	if g.bumpAfterSnapshot && g.generationReads > 1 {
		return g.generation + 1, nil
	}
	return g.generation, nil
}

func (g *fakeGate) BumpGeneration(_ context.Context, majorID int) {
	g.generation++
	g.bumpedMajors = append(g.bumpedMajors, majorID)
}

type fakeAudit struct {
	events []model.AuditEvent
}

func (a *fakeAudit) Publish(_ context.Context, event model.AuditEvent) {
	a.events = append(a.events, event)
}

// ─── Fixtures ──────────────────────────────────────────────────────────────

func gradesAveraging(studentID int, avg float64) []model.Grade {
	return []model.Grade{
		{StudentID: studentID, Semester: 1, Subject: "Matematika", Value: avg},
		{StudentID: studentID, Semester: 2, Subject: "Matematika", Value: avg},
	}
}

type engineFixture struct {
	svc      *RecalcService
	students *fakeStudentRepo
	grades   *fakeGradeRepo
	majors   *fakeMajorRepo
	gate     *fakeGate
	audit    *fakeAudit
}

func newEngineFixture(t *testing.T, major *model.Major, students []*model.Student, grades map[int][]model.Grade) *engineFixture {
	t.Helper()
	f := &engineFixture{
		students: newFakeStudentRepo(students...),
		grades:   &fakeGradeRepo{grades: grades},
		majors:   &fakeMajorRepo{majors: map[int]*model.Major{major.ID: major}},
		gate:     newFakeGate(),
		audit:    &fakeAudit{},
	}
	f.svc = NewRecalcService(
		f.students, f.grades, f.majors,
		&fakeWeights{cfg: &model.WeightConfig{Weights: map[int]float64{}}},
		f.gate, f.audit,
		QuotaPolicy{Rounding: config.RoundingFloor},
		zerolog.Nop(),
	)
	return f
}

func verifiedStudent(id int, nisn string, majorID int, createdAt time.Time) *model.Student {
	return &model.Student{
		ID: id, NISN: nisn, MajorID: majorID,
		Status:     model.DataStatusVerified,
		ScoreStale: true,
		CreatedAt:  createdAt,
	}
}

// ─── Tests ─────────────────────────────────────────────────────────────────

func TestRecalcMajor_RanksAndAllocates(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(floatPtr(50), nil, floatPtr(75))

	students := []*model.Student{
		verifiedStudent(1, "001", 1, base),
		verifiedStudent(2, "002", 1, base),
		verifiedStudent(3, "003", 1, base),
		verifiedStudent(4, "004", 1, base),
	}
	grades := map[int][]model.Grade{
		1: gradesAveraging(1, 90),
		2: gradesAveraging(2, 80),
		3: gradesAveraging(3, 70),
		4: gradesAveraging(4, 60),
	}
	f := newEngineFixture(t, major, students, grades)

	report, err := f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, report.QuotaCount)
	assert.Equal(t, 4, report.Ranked)
	assert.Equal(t, 2, report.Eligible)
	assert.Empty(t, report.Unrankable)
	assert.True(t, report.Changed)

	assert.True(t, f.students.students[1].IsEligible)
	assert.True(t, f.students.students[2].IsEligible)
	assert.False(t, f.students.students[3].IsEligible)
	assert.False(t, f.students.students[4].IsEligible)
	require.NotNil(t, f.students.students[1].Rank)
	assert.Equal(t, 1, *f.students.students[1].Rank)

	// The commit clears every stale flag it covered.
	for _, s := range f.students.students {
		assert.False(t, s.ScoreStale)
	}

	require.Len(t, f.audit.events, 1)
	assert.Equal(t, model.AuditActionMajorRecalculated, f.audit.events[0].Action)
	assert.Len(t, f.students.replacedRows, 4, "commit covers the whole cohort")
}

// A grade correction on a low-ranked student can displace a previously
// eligible peer: eligibility is recomputed wholesale, never sticky.
func TestRecalcMajor_CorrectionDisplacesPreviouslyEligible(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(nil, intPtr(1), nil)

	students := []*model.Student{
		verifiedStudent(1, "001", 1, base),
		verifiedStudent(2, "002", 1, base),
	}
	grades := map[int][]model.Grade{
		1: gradesAveraging(1, 85),
		2: gradesAveraging(2, 70),
	}
	f := newEngineFixture(t, major, students, grades)

	_, err := f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, f.students.students[1].IsEligible)
	assert.False(t, f.students.students[2].IsEligible)

	// Approved rebuttal rewrites student 2's grades upward and marks stale.
	f.grades.grades[2] = gradesAveraging(2, 95)
	require.NoError(t, f.students.MarkStale(context.Background(), []int{2}))

	report, err := f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, report.Changed)
	assert.False(t, f.students.students[1].IsEligible, "displaced by the corrected score")
	assert.True(t, f.students.students[2].IsEligible)
	assert.Equal(t, 1, *f.students.students[2].Rank)
	assert.Equal(t, 2, *f.students.students[1].Rank)
}

// With a 50% quota over four students averaging 90/80/70/60, correcting the
// third student's grades to 95 pushes the old rank 1 down to rank 2 (still
// within quota, still eligible) and pushes the old rank 2 past the boundary.
// Exactly one student gains eligibility and exactly one loses it.
func TestRecalcMajor_CorrectionShiftsQuotaBoundary(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(floatPtr(50), nil, nil)

	students := []*model.Student{
		verifiedStudent(1, "001", 1, base),
		verifiedStudent(2, "002", 1, base),
		verifiedStudent(3, "003", 1, base),
		verifiedStudent(4, "004", 1, base),
	}
	grades := map[int][]model.Grade{
		1: gradesAveraging(1, 90),
		2: gradesAveraging(2, 80),
		3: gradesAveraging(3, 70),
		4: gradesAveraging(4, 60),
	}
	f := newEngineFixture(t, major, students, grades)

	report, err := f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, report.QuotaCount)
	require.True(t, f.students.students[1].IsEligible)
	require.True(t, f.students.students[2].IsEligible)
	require.False(t, f.students.students[3].IsEligible)

	before := map[int]bool{}
	for id, st := range f.students.students {
		before[id] = st.IsEligible
	}

	// Approved rebuttal: the 70-average student is corrected to 95.
	f.grades.grades[3] = gradesAveraging(3, 95)
	require.NoError(t, f.students.MarkStale(context.Background(), []int{3}))

	report, err = f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, report.Changed)
	assert.Equal(t, 2, report.QuotaCount)

	assert.Equal(t, 1, *f.students.students[3].Rank)
	assert.True(t, f.students.students[3].IsEligible)
	assert.Equal(t, 2, *f.students.students[1].Rank)
	assert.True(t, f.students.students[1].IsEligible, "old rank 1 slides to rank 2 but stays within quota")
	assert.Equal(t, 3, *f.students.students[2].Rank)
	assert.False(t, f.students.students[2].IsEligible, "old rank 2 is pushed past the boundary")
	assert.Equal(t, 4, *f.students.students[4].Rank)
	assert.False(t, f.students.students[4].IsEligible)

	gained, lost := 0, 0
	for id, st := range f.students.students {
		switch {
		case st.IsEligible && !before[id]:
			gained++
		case !st.IsEligible && before[id]:
			lost++
		}
	}
	assert.Equal(t, 1, gained)
	assert.Equal(t, 1, lost)
}

func TestRecalcMajor_NoOpReportsUnchanged(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(nil, intPtr(1), nil)

	students := []*model.Student{verifiedStudent(1, "001", 1, base)}
	grades := map[int][]model.Grade{1: gradesAveraging(1, 85)}
	f := newEngineFixture(t, major, students, grades)

	first, err := f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, first.Changed)

	second, err := f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	require.NotNil(t, f.students.students[1].Rank)
	assert.Equal(t, 1, *f.students.students[1].Rank)
}

func TestRecalcMajor_UnverifiedExcludedFromRanking(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(nil, intPtr(5), nil)

	unverified := verifiedStudent(2, "002", 1, base)
	unverified.Status = model.DataStatusUnverified

	students := []*model.Student{verifiedStudent(1, "001", 1, base), unverified}
	grades := map[int][]model.Grade{
		1: gradesAveraging(1, 80),
		2: gradesAveraging(2, 99),
	}
	f := newEngineFixture(t, major, students, grades)

	report, err := f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Ranked)
	assert.True(t, f.students.students[1].IsEligible)
	assert.False(t, f.students.students[2].IsEligible)
	assert.Nil(t, f.students.students[2].Rank)
}

func TestRecalcMajor_MissingGradesReportedUnrankable(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(nil, intPtr(5), nil)

	students := []*model.Student{
		verifiedStudent(1, "001", 1, base),
		verifiedStudent(2, "002", 1, base),
	}
	grades := map[int][]model.Grade{1: gradesAveraging(1, 80)}
	f := newEngineFixture(t, major, students, grades)

	report, err := f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Ranked)
	require.Len(t, report.Unrankable, 1)
	assert.Equal(t, 2, report.Unrankable[0].StudentID)
	assert.Equal(t, ReasonNoAverage, report.Unrankable[0].Reason)
	assert.Nil(t, f.students.students[2].AverageScore)
	assert.False(t, f.students.students[2].IsEligible)
}

func TestRecalcMajor_QuotaNotConfiguredFailsClosed(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(nil, nil, nil)

	seeded := verifiedStudent(1, "001", 1, base)
	seeded.IsEligible = true
	students := []*model.Student{seeded}
	grades := map[int][]model.Grade{1: gradesAveraging(1, 80)}
	f := newEngineFixture(t, major, students, grades)

	_, err := f.svc.RecalcMajor(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaNotConfigured)

	var mErr *MajorRecalcError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, "RPL", mErr.MajorCode)

	assert.Equal(t, 1, f.students.clearedMajorID)
	assert.False(t, f.students.students[1].IsEligible)
	assert.Zero(t, f.students.replaceCalls)
}

func TestRecalcMajor_SupersededAbandonsCommit(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(nil, intPtr(1), nil)

	students := []*model.Student{verifiedStudent(1, "001", 1, base)}
	grades := map[int][]model.Grade{1: gradesAveraging(1, 80)}
	f := newEngineFixture(t, major, students, grades)
	f.gate.bumpAfterSnapshot = true

	_, err := f.svc.RecalcMajor(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecalcSuperseded)
	assert.Zero(t, f.students.replaceCalls, "superseded run must not commit")
	assert.False(t, f.gate.locked[1], "lock released after abandon")
}

func TestRecalcMajor_LockContention(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(nil, intPtr(1), nil)

	students := []*model.Student{verifiedStudent(1, "001", 1, base)}
	f := newEngineFixture(t, major, students, map[int][]model.Grade{1: gradesAveraging(1, 80)})
	f.gate.denyLock = true

	_, err := f.svc.RecalcMajor(context.Background(), 1)
	assert.ErrorIs(t, err, ErrRecalcInProgress)
	assert.Zero(t, f.students.replaceCalls)
}

func TestRecalcStudent_EscalatesToMajor(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(nil, intPtr(1), nil)

	students := []*model.Student{
		verifiedStudent(1, "001", 1, base),
		verifiedStudent(2, "002", 1, base),
	}
	grades := map[int][]model.Grade{
		1: gradesAveraging(1, 90),
		2: gradesAveraging(2, 80),
	}
	f := newEngineFixture(t, major, students, grades)

	report, err := f.svc.RecalcStudent(context.Background(), 2)
	require.NoError(t, err)

	// The single-student trigger re-ranks the whole cohort.
	assert.Equal(t, 2, report.Ranked)
	require.NotNil(t, f.students.students[1].Rank)
	require.NotNil(t, f.students.students[2].Rank)
}

func TestRecalc_DispatchesOnScope(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(nil, intPtr(1), nil)
	students := []*model.Student{verifiedStudent(1, "001", 1, base)}
	f := newEngineFixture(t, major, students, map[int][]model.Grade{1: gradesAveraging(1, 80)})

	reports, err := f.svc.Recalc(context.Background(), model.RecalcRequest{Scope: model.ScopeAll})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "RPL", reports[0].MajorCode)

	_, err = f.svc.Recalc(context.Background(), model.RecalcRequest{Scope: "BOGUS"})
	assert.Error(t, err)
}
