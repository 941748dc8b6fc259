package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type incidentFixture struct {
	svc      IncidentService
	store    *memStorage
	resident *model.Resident
}

func newIncidentFixture(t *testing.T) *incidentFixture {
	t.Helper()
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.fr", model.RoleUser)
	copro := &model.Copropriete{Name: "Les Tilleuls", Address: "1 rue", UserID: owner.ID}
	require.NoError(t, db.Create(copro).Error)
	resident := &model.Resident{FirstName: "Marie", LastName: "Durand", Email: "marie@example.fr", CopropertyID: copro.ID}
	require.NoError(t, db.Create(resident).Error)

	store := newMemStorage()
	svc := NewIncidentService(repository.NewIncidentRepository(db), repository.NewResidentRepository(db), store)
	svc.(*incidentService).now = func() time.Time { return time.UnixMilli(1700000000000) }
	return &incidentFixture{svc: svc, store: store, resident: resident}
}

func (f *incidentFixture) input() IncidentInput {
	return IncidentInput{
		Title:       ptr("Fuite"),
		Description: ptr("Fuite d'eau au plafond"),
		Location:    ptr("Hall B"),
		ReportedBy:  ptr("Marie Durand"),
		ResidentID:  ptr(f.resident.ID),
	}
}

func TestIncidentCreateDefaults(t *testing.T) {
	f := newIncidentFixture(t)

	i, err := f.svc.Create(context.Background(), f.input(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.IncidentInProgress, i.Status)
	assert.Equal(t, "other", i.Type)
	assert.Equal(t, f.resident.CopropertyID, i.CoproprieteID)
	assert.Empty(t, i.Photos)
}

func TestIncidentCreateRequiredFields(t *testing.T) {
	f := newIncidentFixture(t)
	in := f.input()
	in.Location = ptr(" ")

	_, err := f.svc.Create(context.Background(), in, nil)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "location")

	in = f.input()
	in.ResidentID = ptr("missing")
	_, err = f.svc.Create(context.Background(), in, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	in = f.input()
	in.Type = ptr("fire")
	_, err = f.svc.Create(context.Background(), in, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestIncidentUrgentWithoutStatus(t *testing.T) {
	f := newIncidentFixture(t)
	in := f.input()
	in.Urgent = ptr(true)

	i, err := f.svc.Create(context.Background(), in, nil)
	require.NoError(t, err)
	assert.True(t, i.Urgent)
	assert.Equal(t, model.IncidentUrgent, i.Status)
}

func TestIncidentResolveRequiresResolver(t *testing.T) {
	f := newIncidentFixture(t)
	i, err := f.svc.Create(context.Background(), f.input(), nil)
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), i.ID, IncidentInput{Status: ptr(model.IncidentResolved)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	resolved, err := f.svc.Update(context.Background(), i.ID, IncidentInput{
		Status: ptr(model.IncidentResolved), ResolvedBy: ptr("Plombier"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.IncidentResolved, resolved.Status)

	got, err := f.svc.Get(context.Background(), i.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plombier", got.ResolvedBy)
}

func TestIncidentCreateWithPhoto(t *testing.T) {
	f := newIncidentFixture(t)
	photo := &Attachment{Name: "Dégât des eaux.JPG", Size: 4, ContentType: "image/jpeg", Reader: strings.NewReader("jpeg")}

	i, err := f.svc.Create(context.Background(), f.input(), photo)
	require.NoError(t, err)
	require.Len(t, i.Photos, 1)
	assert.Equal(t, "/uploads/incident/1700000000000-Degat-des-eaux.jpg", i.Photos[0])
	assert.True(t, f.store.has("incident/1700000000000-Degat-des-eaux.jpg"))
}

func TestIncidentListsAndDelete(t *testing.T) {
	f := newIncidentFixture(t)
	ctx := context.Background()
	i, err := f.svc.Create(ctx, f.input(), nil)
	require.NoError(t, err)

	byResident, err := f.svc.ListByResident(ctx, f.resident.ID)
	require.NoError(t, err)
	assert.Len(t, byResident, 1)

	byCopro, err := f.svc.ListByCopropriete(ctx, f.resident.CopropertyID)
	require.NoError(t, err)
	assert.Len(t, byCopro, 1)

	require.NoError(t, f.svc.Delete(ctx, i.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, i.ID), apperr.ErrNotFound)
}
