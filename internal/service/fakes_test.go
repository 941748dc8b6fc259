package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"copro-smart-go/internal/model"
	"copro-smart-go/pkg/llm"
	"copro-smart-go/pkg/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memConversationRepo keeps conversations and messages in memory.
type memConversationRepo struct {
	mu       sync.Mutex
	convs    map[string]*model.Conversation
	messages map[string][]model.Message
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{convs: map[string]*model.Conversation{}, messages: map[string][]model.Message{}}
}

func (r *memConversationRepo) CreateWithSeed(_ context.Context, conv *model.Conversation, seed *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv.ID = uuid.NewString()
	conv.CreatedAt, conv.UpdatedAt = time.Now(), time.Now()
	seed.ID = uuid.NewString()
	seed.ConversationID = conv.ID
	seed.SequenceNumber = 1
	cp := *conv
	r.convs[conv.ID] = &cp
	r.messages[conv.ID] = []model.Message{*seed}
	conv.Messages = []model.Message{*seed}
	return nil
}

func (r *memConversationRepo) FindByID(_ context.Context, id string, withMessages bool) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	if withMessages {
		cp.Messages = append([]model.Message(nil), r.messages[id]...)
	}
	return &cp, nil
}

func (r *memConversationRepo) FindByUser(_ context.Context, userID string) ([]model.Conversation, error) {
	return r.FindRecent(context.Background(), userID, 1000)
}

func (r *memConversationRepo) FindRecent(_ context.Context, userID string, limit int) ([]model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Conversation
	for _, c := range r.convs {
		if userID == "" || c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memConversationRepo) Update(_ context.Context, id string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields["title"].(string); ok {
		c.Title = v
	}
	if v, ok := fields["copropriety_id"].(string); ok {
		c.CoproprietyID = v
	}
	return nil
}

func (r *memConversationRepo) UpdateSummary(_ context.Context, id, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Summary = summary
	return nil
}

func (r *memConversationRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.convs, id)
	delete(r.messages, id)
	return nil
}

func (r *memConversationRepo) AppendMessages(_ context.Context, conversationID string, msgs ...*model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[conversationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	next := len(r.messages[conversationID]) + 1
	for _, m := range msgs {
		m.ID = uuid.NewString()
		m.ConversationID = conversationID
		m.SequenceNumber = next
		next++
		r.messages[conversationID] = append(r.messages[conversationID], *m)
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (r *memConversationRepo) RecentMessages(_ context.Context, conversationID string, limit int) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.messages[conversationID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]model.Message(nil), all...), nil
}

func (r *memConversationRepo) CountMessages(_ context.Context, conversationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.messages[conversationID])), nil
}

func (r *memConversationRepo) summary(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[id]; ok {
		return c.Summary
	}
	return ""
}

// mockLLM is an llm.Client driven by functions.
type mockLLM struct {
	mu           sync.Mutex
	CompleteFunc func(ctx context.Context, msgs []llm.Message) (string, error)
	StreamFunc   func(ctx context.Context, msgs []llm.Message) (<-chan llm.Chunk, error)
	calls        [][]llm.Message
}

func (m *mockLLM) Complete(ctx context.Context, msgs []llm.Message, _ *llm.GenerationParams) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, msgs)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, msgs)
	}
	return "", nil
}

func (m *mockLLM) Stream(ctx context.Context, msgs []llm.Message, _ *llm.GenerationParams) (<-chan llm.Chunk, error) {
	m.mu.Lock()
	m.calls = append(m.calls, msgs)
	m.mu.Unlock()
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, msgs)
	}
	ch := make(chan llm.Chunk)
	close(ch)
	return ch, nil
}

func (m *mockLLM) lastCall() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// chunksOf returns a closed channel carrying the given chunks.
func chunksOf(chunks ...llm.Chunk) <-chan llm.Chunk {
	ch := make(chan llm.Chunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

type mockEmbedder struct {
	CreateEmbeddingFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.CreateEmbeddingFunc != nil {
		return m.CreateEmbeddingFunc(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type mockIndex struct {
	QueryFunc func(ctx context.Context, vector []float32, topK int, docIDs []string) ([]model.SearchHit, error)
	deleted   []string
	deleteErr error
}

func (m *mockIndex) Upsert(context.Context, []model.ChunkDocument) error { return nil }

func (m *mockIndex) Query(ctx context.Context, vector []float32, topK int, docIDs []string) ([]model.SearchHit, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, vector, topK, docIDs)
	}
	return nil, nil
}

func (m *mockIndex) DeleteByDocID(_ context.Context, docID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, docID)
	return nil
}

// memLocker mimics SETNX semantics.
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) TryLock(_ context.Context, name string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[name] {
		return false, nil
	}
	l.held[name] = true
	return true, nil
}

func (l *memLocker) Unlock(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

// memStorage is an in-memory storage.Storage.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return nil
}

func (s *memStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}
