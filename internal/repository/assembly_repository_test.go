package repository

import (
	"context"
	"testing"
	"time"

	"copro-smart-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAssemblyChildrenAndCascade(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssemblyRepository(db)
	ctx := context.Background()

	a := &model.Assembly{Date: time.Now(), Type: "ordinary", Status: "upcoming", CoproprietyID: "c-1"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.CreateAgendaItem(ctx, &model.AgendaItem{AssemblyID: a.ID, Order: 2, Title: "Budget"}))
	require.NoError(t, repo.CreateAgendaItem(ctx, &model.AgendaItem{AssemblyID: a.ID, Order: 1, Title: "Ouverture"}))
	require.NoError(t, repo.CreateAttendee(ctx, &model.Attendee{AssemblyID: a.ID, Name: "M. Durand", Role: "owner", Present: true}))
	require.NoError(t, repo.CreateDecision(ctx, &model.Decision{
		AssemblyID: a.ID, Title: "Budget", Result: model.DecisionApproved, VotesFor: 3,
		Voters: []model.Voter{{AttendeeID: "att-1", Vote: "for"}},
	}))

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.Agenda, 2)
	assert.Equal(t, "Ouverture", got.Agenda[0].Title)
	assert.Equal(t, "pending", got.Agenda[0].Status)
	require.Len(t, got.Decisions, 1)
	assert.Len(t, got.Decisions[0].Voters, 1)
	assert.Len(t, got.Attendees, 1)

	require.NoError(t, repo.Delete(ctx, a.ID))
	var left int64
	require.NoError(t, db.Model(&model.Voter{}).Count(&left).Error)
	assert.Zero(t, left)
	require.NoError(t, db.Model(&model.AgendaItem{}).Count(&left).Error)
	assert.Zero(t, left)
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), gorm.ErrRecordNotFound)
}

func TestAssembliesByCoproprieteNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssemblyRepository(db)
	ctx := context.Background()
	older := &model.Assembly{Date: time.Now().AddDate(-1, 0, 0), Type: "ordinary", Status: "completed", CoproprietyID: "c-1"}
	newer := &model.Assembly{Date: time.Now(), Type: "extraordinary", Status: "upcoming", CoproprietyID: "c-1"}
	other := &model.Assembly{Date: time.Now(), Type: "ordinary", Status: "upcoming", CoproprietyID: "c-2"}
	for _, a := range []*model.Assembly{older, newer, other} {
		require.NoError(t, repo.Create(ctx, a))
	}

	list, err := repo.FindByCopropriete(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
}

func TestDeleteAgendaItemScopedToAssembly(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssemblyRepository(db)
	ctx := context.Background()
	item := &model.AgendaItem{AssemblyID: "a-1", Title: "Budget"}
	require.NoError(t, repo.CreateAgendaItem(ctx, item))

	assert.ErrorIs(t, repo.DeleteAgendaItem(ctx, "a-2", item.ID), gorm.ErrRecordNotFound)
	assert.NoError(t, repo.DeleteAgendaItem(ctx, "a-1", item.ID))
}
