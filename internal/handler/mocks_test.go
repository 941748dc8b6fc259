package handler

import (
	"context"

	"copro-smart-go/internal/model"
	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/token"
)

type mockAuthService struct {
	SignupFunc      func(ctx context.Context, in service.SignupInput) (*service.AuthResult, error)
	LoginFunc       func(ctx context.Context, email, password string) (*service.AuthResult, error)
	RefreshFunc     func(ctx context.Context, refreshToken string) (*service.AuthResult, error)
	LogoutFunc      func(ctx context.Context, refreshToken string, claims *token.CustomClaims) error
	GoogleLoginFunc func(ctx context.Context, in service.GoogleLoginInput) (*service.AuthResult, error)
}

func (m *mockAuthService) Signup(ctx context.Context, in service.SignupInput) (*service.AuthResult, error) {
	return m.SignupFunc(ctx, in)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*service.AuthResult, error) {
	return m.LoginFunc(ctx, email, password)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*service.AuthResult, error) {
	return m.RefreshFunc(ctx, refreshToken)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string, claims *token.CustomClaims) error {
	return m.LogoutFunc(ctx, refreshToken, claims)
}

func (m *mockAuthService) GoogleLogin(ctx context.Context, in service.GoogleLoginInput) (*service.AuthResult, error) {
	return m.GoogleLoginFunc(ctx, in)
}

func (m *mockAuthService) CleanupTokens(context.Context) (int64, error) { return 0, nil }

type mockConversationService struct {
	CreateFunc func(ctx context.Context, userID, title, coproprietyID string) (*model.Conversation, error)
	GetFunc    func(ctx context.Context, userID, id string) (*model.Conversation, error)
	DeleteFunc func(ctx context.Context, userID, id string) error
	RecentFunc func(ctx context.Context, userID string, limit int) ([]model.Conversation, error)
}

func (m *mockConversationService) Create(ctx context.Context, userID, title, coproprietyID string) (*model.Conversation, error) {
	return m.CreateFunc(ctx, userID, title, coproprietyID)
}

func (m *mockConversationService) Get(ctx context.Context, userID, id string) (*model.Conversation, error) {
	return m.GetFunc(ctx, userID, id)
}

func (m *mockConversationService) ListForUser(context.Context, string) ([]model.Conversation, error) {
	return []model.Conversation{}, nil
}

func (m *mockConversationService) ListRecent(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	return m.RecentFunc(ctx, userID, limit)
}

func (m *mockConversationService) Update(context.Context, string, string, service.ConversationUpdate) (*model.Conversation, error) {
	return nil, nil
}

func (m *mockConversationService) Delete(ctx context.Context, userID, id string) error {
	return m.DeleteFunc(ctx, userID, id)
}

func (m *mockConversationService) AppendMessages(context.Context, string, ...*model.Message) error {
	return nil
}

func (m *mockConversationService) RecentMessages(context.Context, string, int) ([]model.Message, error) {
	return nil, nil
}

type mockChatService struct {
	AskFunc         func(ctx context.Context, req service.AskRequest) (*service.AskResult, error)
	StartStreamFunc func(ctx context.Context, req service.AskRequest) (*service.AnswerStream, error)
}

func (m *mockChatService) Ask(ctx context.Context, req service.AskRequest) (*service.AskResult, error) {
	return m.AskFunc(ctx, req)
}

func (m *mockChatService) StartStream(ctx context.Context, req service.AskRequest) (*service.AnswerStream, error) {
	return m.StartStreamFunc(ctx, req)
}

type mockUploadService struct {
	UploadFunc func(ctx context.Context, req service.UploadRequest) (*service.UploadResult, error)
}

func (m *mockUploadService) Upload(ctx context.Context, req service.UploadRequest) (*service.UploadResult, error) {
	return m.UploadFunc(ctx, req)
}

type mockFileService struct {
	OpenFunc   func(ctx context.Context, userID, docID string) (*service.FileContent, error)
	DeleteFunc func(ctx context.Context, userID, docID string) error
}

func (m *mockFileService) List(context.Context, string) ([]model.Metadata, error) {
	return []model.Metadata{}, nil
}

func (m *mockFileService) Metadata(context.Context, string, string) (*model.Metadata, error) {
	return nil, nil
}

func (m *mockFileService) Open(ctx context.Context, userID, docID string) (*service.FileContent, error) {
	return m.OpenFunc(ctx, userID, docID)
}

func (m *mockFileService) Delete(ctx context.Context, userID, docID string) error {
	return m.DeleteFunc(ctx, userID, docID)
}

type mockIncidentService struct {
	CreateFunc func(ctx context.Context, in service.IncidentInput, photo *service.Attachment) (*model.Incident, error)
	GetFunc    func(ctx context.Context, id string) (*model.Incident, error)
}

func (m *mockIncidentService) List(context.Context) ([]model.Incident, error) {
	return []model.Incident{}, nil
}

func (m *mockIncidentService) ListByCopropriete(context.Context, string) ([]model.Incident, error) {
	return []model.Incident{}, nil
}

func (m *mockIncidentService) ListByResident(context.Context, string) ([]model.Incident, error) {
	return []model.Incident{}, nil
}

func (m *mockIncidentService) Get(ctx context.Context, id string) (*model.Incident, error) {
	return m.GetFunc(ctx, id)
}

func (m *mockIncidentService) Create(ctx context.Context, in service.IncidentInput, photo *service.Attachment) (*model.Incident, error) {
	return m.CreateFunc(ctx, in, photo)
}

func (m *mockIncidentService) Update(context.Context, string, service.IncidentInput) (*model.Incident, error) {
	return nil, nil
}

func (m *mockIncidentService) Delete(context.Context, string) error { return nil }
