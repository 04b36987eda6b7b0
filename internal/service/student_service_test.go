package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/snbp-backend/internal/model"
)

type fakeRecalcQueue struct {
	jobs []model.RecalcJob
}

func (q *fakeRecalcQueue) EnqueueRecalc(_ context.Context, job model.RecalcJob) {
	q.jobs = append(q.jobs, job)
}

func TestSetStatus_InvalidatesMajor(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	st := verifiedStudent(1, "001", 7, base)

	repo := newFakeStudentRepo(st)
	gate := newFakeGate()
	queue := &fakeRecalcQueue{}
	svc := NewStudentService(repo, gate, queue)

	updated, err := svc.SetStatus(context.Background(), 1, model.DataStatusUnverified)
	require.NoError(t, err)
	assert.Equal(t, model.DataStatusUnverified, updated.Status)

	assert.Equal(t, []int{7}, gate.bumpedMajors)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, model.ScopeMajor, queue.jobs[0].Scope)
	assert.Equal(t, 7, queue.jobs[0].MajorID)
}

func TestSetStatus_SameStatusIsNoOp(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	st := verifiedStudent(1, "001", 7, base)

	repo := newFakeStudentRepo(st)
	gate := newFakeGate()
	queue := &fakeRecalcQueue{}
	svc := NewStudentService(repo, gate, queue)

	_, err := svc.SetStatus(context.Background(), 1, model.DataStatusVerified)
	require.NoError(t, err)

	assert.Empty(t, gate.bumpedMajors)
	assert.Empty(t, queue.jobs)
}

// An eligible student who is un-verified must not keep is_eligible standing:
// the status change enqueues a major-scope run, and that run strips the
// derived fields even though the student's average is neither stale nor
// missing.
func TestSetStatus_UnverifyStripsEligibilityOnNextRun(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	major := majorWithQuota(nil, intPtr(2), nil)

	students := []*model.Student{
		verifiedStudent(1, "001", 1, base),
		verifiedStudent(2, "002", 1, base),
	}
	grades := map[int][]model.Grade{
		1: gradesAveraging(1, 90),
		2: gradesAveraging(2, 80),
	}
	f := newEngineFixture(t, major, students, grades)
	studentSvc := NewStudentService(f.students, f.gate, &fakeRecalcQueue{})

	_, err := f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, f.students.students[1].IsEligible)
	require.False(t, f.students.students[1].ScoreStale)

	_, err = studentSvc.SetStatus(context.Background(), 1, model.DataStatusUnverified)
	require.NoError(t, err)
	assert.Contains(t, f.gate.bumpedMajors, 1)

	// The worker drains the enqueued job as a major run.
	report, err := f.svc.RecalcMajor(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, report.Changed)
	assert.False(t, f.students.students[1].IsEligible)
	assert.Nil(t, f.students.students[1].Rank)
	assert.True(t, f.students.students[2].IsEligible)
	assert.Equal(t, 1, *f.students.students[2].Rank)
}

func TestUpsertGradeInvalidatesStudent(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	st := verifiedStudent(3, "003", 5, base)
	st.ScoreStale = false

	repo := newFakeStudentRepo(st)
	gate := newFakeGate()
	queue := &fakeRecalcQueue{}
	svc := NewGradeService(&fakeGradeRepo{grades: map[int][]model.Grade{}}, repo, gate, queue, zerolog.Nop())

	_, err := svc.Upsert(context.Background(), 3, model.UpsertGradeRequest{
		Semester: 1, Subject: "Matematika", Value: 88,
	})
	require.NoError(t, err)

	assert.True(t, repo.students[3].ScoreStale)
	assert.Equal(t, []int{5}, gate.bumpedMajors)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, model.ScopeStudent, queue.jobs[0].Scope)
	assert.Equal(t, 3, queue.jobs[0].StudentID)
}
