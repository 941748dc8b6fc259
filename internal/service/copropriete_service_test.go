package service

import (
	"context"
	"testing"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoproprieteLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCoproprieteService(repository.NewCoproprieteRepository(db))
	owner := createUser(t, db, "owner@example.fr", model.RoleUser)
	other := createUser(t, db, "other@example.fr", model.RoleUser)

	_, err := svc.Create(ctx, owner.ID, CoproprieteInput{Address: "1 rue"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Create(ctx, owner.ID, CoproprieteInput{Name: "Les Tilleuls", Address: "1 rue", Units: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	c, err := svc.Create(ctx, owner.ID, CoproprieteInput{Name: " Les Tilleuls ", Address: "1 rue", Units: 12})
	require.NoError(t, err)
	assert.Equal(t, "Les Tilleuls", c.Name)

	list, err := svc.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = svc.List(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Get(ctx, other.ID, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Update(ctx, other.ID, c.ID, CoproprieteInput{Name: "x", Address: "y"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, other.ID, c.ID), apperr.ErrNotFound)

	updated, err := svc.Update(ctx, owner.ID, c.ID, CoproprieteInput{Name: "Les Tilleuls", Address: "2 rue", Units: 14})
	require.NoError(t, err)
	assert.Equal(t, 14, updated.Units)

	require.NoError(t, svc.Delete(ctx, owner.ID, c.ID))
	_, err = svc.Get(ctx, owner.ID, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
