package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/config"
	"copro-smart-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSummarizer struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingSummarizer) Enqueue(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return true
}

func (r *recordingSummarizer) Stop() {}

func (r *recordingSummarizer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func TestConversationCreateSeedsGreeting(t *testing.T) {
	svc := NewConversationService(newMemConversationRepo(), nil, config.ChatConfig{})

	conv, err := svc.Create(context.Background(), "u-1", " Charges ", "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Charges", conv.Title)

	got, err := svc.Get(context.Background(), "u-1", conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, model.RoleAssistantMessage, got.Messages[0].Role)
	assert.Equal(t, defaultGreeting, got.Messages[0].Content)
	assert.Equal(t, 1, got.Messages[0].SequenceNumber)
}

func TestConversationCreateValidation(t *testing.T) {
	svc := NewConversationService(newMemConversationRepo(), nil, config.ChatConfig{})

	_, err := svc.Create(context.Background(), "u-1", "", "c-1")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(context.Background(), "u-1", "Title", "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestConversationOwnership(t *testing.T) {
	ctx := context.Background()
	svc := NewConversationService(newMemConversationRepo(), nil, config.ChatConfig{})
	conv, err := svc.Create(ctx, "owner", "Title", "c-1")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "intruder", conv.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	title := "Hijacked"
	_, err = svc.Update(ctx, "intruder", conv.ID, ConversationUpdate{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "intruder", conv.ID), apperr.ErrNotFound)

	// an empty user id is an internal lookup
	_, err = svc.Get(ctx, "", conv.ID)
	assert.NoError(t, err)
}

func TestConversationUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewConversationService(newMemConversationRepo(), nil, config.ChatConfig{})
	conv, err := svc.Create(ctx, "u-1", "Title", "c-1")
	require.NoError(t, err)

	_, err = svc.Update(ctx, "u-1", conv.ID, ConversationUpdate{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	blank := " "
	_, err = svc.Update(ctx, "u-1", conv.ID, ConversationUpdate{Title: &blank})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	title, copro := "Travaux", "c-2"
	updated, err := svc.Update(ctx, "u-1", conv.ID, ConversationUpdate{Title: &title, CoproprietyID: &copro})
	require.NoError(t, err)
	assert.Equal(t, "Travaux", updated.Title)
	assert.Equal(t, "c-2", updated.CoproprietyID)
}

func TestConversationDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewConversationService(newMemConversationRepo(), nil, config.ChatConfig{})
	conv, err := svc.Create(ctx, "u-1", "Title", "c-1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u-1", conv.ID))
	_, err = svc.Get(ctx, "u-1", conv.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConversationListRecent(t *testing.T) {
	ctx := context.Background()
	svc := NewConversationService(newMemConversationRepo(), nil, config.ChatConfig{})
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, "u-1", fmt.Sprintf("t%d", i), "c-1")
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "u-2", "other", "c-1")
	require.NoError(t, err)

	mine, err := svc.ListRecent(ctx, "u-1", 10)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	all, err := svc.ListRecent(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAppendMessagesTriggersSummaryAtThreshold(t *testing.T) {
	ctx := context.Background()
	rec := &recordingSummarizer{}
	svc := NewConversationService(newMemConversationRepo(), rec, config.ChatConfig{SummaryThreshold: 4})
	conv, err := svc.Create(ctx, "u-1", "Title", "c-1")
	require.NoError(t, err)

	// greeting is 1, this pair is 2 and 3
	require.NoError(t, svc.AppendMessages(ctx, conv.ID,
		&model.Message{Role: model.RoleUserMessage, Content: "q1"},
		&model.Message{Role: model.RoleAssistantMessage, Content: "a1"}))
	assert.Equal(t, 0, rec.count())

	// 4 and 5
	require.NoError(t, svc.AppendMessages(ctx, conv.ID,
		&model.Message{Role: model.RoleUserMessage, Content: "q2"},
		&model.Message{Role: model.RoleAssistantMessage, Content: "a2"}))
	assert.Equal(t, 1, rec.count())
}

func TestAppendMessagesConcurrentSequences(t *testing.T) {
	ctx := context.Background()
	repo := newMemConversationRepo()
	svc := NewConversationService(repo, nil, config.ChatConfig{})
	conv, err := svc.Create(ctx, "u-1", "Title", "c-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, svc.AppendMessages(ctx, conv.ID,
				&model.Message{Role: model.RoleUserMessage, Content: fmt.Sprintf("q%d", i)}))
		}(i)
	}
	wg.Wait()

	msgs, err := svc.RecentMessages(ctx, conv.ID, 100)
	require.NoError(t, err)
	require.Len(t, msgs, 21)
	for i, m := range msgs {
		assert.Equal(t, i+1, m.SequenceNumber)
	}
}

func TestAppendMessagesUnknownConversation(t *testing.T) {
	svc := NewConversationService(newMemConversationRepo(), nil, config.ChatConfig{})
	err := svc.AppendMessages(context.Background(), "missing", &model.Message{Content: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
