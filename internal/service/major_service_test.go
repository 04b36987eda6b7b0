package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/snbp-backend/internal/model"
)

// stubMajorRepo reports missing rows the way the pgx repository does, so the
// service's sentinel mapping is exercised.
type stubMajorRepo struct {
	majors map[int]*model.Major
}

func (r *stubMajorRepo) GetAll(context.Context) ([]*model.Major, error) { return nil, nil }

func (r *stubMajorRepo) GetByID(_ context.Context, id int) (*model.Major, error) {
	if m, ok := r.majors[id]; ok {
		return m, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *stubMajorRepo) GetByCode(_ context.Context, code string) (*model.Major, error) {
	for _, m := range r.majors {
		if m.Code == code {
			return m, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubMajorRepo) Create(_ context.Context, m *model.Major) error {
	m.ID = len(r.majors) + 1
	r.majors[m.ID] = m
	return nil
}

func (r *stubMajorRepo) Update(context.Context, *model.Major) error { return nil }
func (r *stubMajorRepo) Delete(_ context.Context, id int) error {
	delete(r.majors, id)
	return nil
}

func TestCreateMajor_DuplicateCode(t *testing.T) {
	repo := &stubMajorRepo{majors: map[int]*model.Major{
		1: {ID: 1, Code: "RPL", LongName: "Rekayasa Perangkat Lunak"},
	}}
	svc := NewMajorService(repo)

	_, err := svc.CreateMajor(context.Background(), model.CreateMajorRequest{
		Code: "RPL", LongName: "Duplikat",
	})
	assert.ErrorIs(t, err, ErrMajorCodeTaken)

	created, err := svc.CreateMajor(context.Background(), model.CreateMajorRequest{
		Code: "TKJ", LongName: "Teknik Komputer dan Jaringan",
	})
	require.NoError(t, err)
	assert.Equal(t, "TKJ", created.Code)
}

func TestUpdateMajor_SentinelErrors(t *testing.T) {
	repo := &stubMajorRepo{majors: map[int]*model.Major{
		1: {ID: 1, Code: "RPL", LongName: "Rekayasa Perangkat Lunak"},
		2: {ID: 2, Code: "TKJ", LongName: "Teknik Komputer dan Jaringan"},
	}}
	svc := NewMajorService(repo)

	_, err := svc.UpdateMajor(context.Background(), 99, model.UpdateMajorRequest{
		Code: "MM", LongName: "Multimedia",
	})
	assert.ErrorIs(t, err, ErrMajorNotFound)

	_, err = svc.UpdateMajor(context.Background(), 1, model.UpdateMajorRequest{
		Code: "TKJ", LongName: "Tabrakan Kode",
	})
	assert.ErrorIs(t, err, ErrMajorCodeTaken)

	// Keeping its own code is never a collision.
	updated, err := svc.UpdateMajor(context.Background(), 1, model.UpdateMajorRequest{
		Code: "RPL", LongName: "Rekayasa Perangkat Lunak XII",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rekayasa Perangkat Lunak XII", updated.LongName)
}

func TestDeleteMajor_NotFound(t *testing.T) {
	svc := NewMajorService(&stubMajorRepo{majors: map[int]*model.Major{}})
	assert.ErrorIs(t, svc.DeleteMajor(context.Background(), 42), ErrMajorNotFound)
}
