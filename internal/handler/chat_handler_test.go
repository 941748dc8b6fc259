package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"copro-smart-go/internal/model"
	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/llm"
	"copro-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserService struct{}

func (stubUserService) List(context.Context) ([]model.User, error) { return nil, nil }

func (stubUserService) Get(_ context.Context, id string) (*model.User, error) {
	return &model.User{ID: id, Email: "marie@example.fr", Role: model.RoleUser}, nil
}

func (stubUserService) GetByEmail(context.Context, string) (*model.User, error) { return nil, nil }

func (stubUserService) Update(context.Context, *model.User, string, service.UpdateUserInput) (*model.User, error) {
	return nil, nil
}

func (stubUserService) ChangePassword(context.Context, *model.User, string, string, string) error {
	return nil
}

func dialChat(t *testing.T, chat service.ChatService) (*websocket.Conn, *ChatHandler) {
	t.Helper()
	jwtManager := token.NewJWTManager("secret", 15, 7)
	h := NewChatHandler(chat, stubUserService{}, jwtManager)
	h.stopToken = stopTokenPrefix + "test"
	r := gin.New()
	r.GET("/chat/:token", h.Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	access, err := jwtManager.GenerateToken("u-1", "marie@example.fr", model.RoleUser)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/" + access
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, h
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestChatWebsocketStreamsChunks(t *testing.T) {
	finished := make(chan string, 1)
	chat := &mockChatService{
		StartStreamFunc: func(_ context.Context, req service.AskRequest) (*service.AnswerStream, error) {
			assert.Equal(t, "u-1", req.UserID)
			assert.Equal(t, "c-1", req.ConversationID)
			ch := make(chan llm.Chunk, 2)
			ch <- llm.Chunk{Content: "Bonjour "}
			ch <- llm.Chunk{Content: "Marie."}
			close(ch)
			return service.NewAnswerStream(ch, func(_ context.Context, answer string, _ error) (*service.AskResult, error) {
				finished <- answer
				return &service.AskResult{}, nil
			}), nil
		},
	}
	conn, _ := dialChat(t, chat)

	require.NoError(t, conn.WriteJSON(gin.H{"conversationId": "c-1", "content": "Bonjour"}))

	assert.Equal(t, "Bonjour ", readFrame(t, conn)["chunk"])
	assert.Equal(t, "Marie.", readFrame(t, conn)["chunk"])
	done := readFrame(t, conn)
	assert.Equal(t, "completion", done["type"])
	assert.Equal(t, "finished", done["status"])
	assert.Equal(t, "Bonjour Marie.", <-finished)
}

func TestChatWebsocketStopKeepsAnswerInFlightUntilPersisted(t *testing.T) {
	started := make(chan struct{})
	finishing := make(chan error, 1)
	release := make(chan struct{})
	chat := &mockChatService{
		StartStreamFunc: func(_ context.Context, _ service.AskRequest) (*service.AnswerStream, error) {
			close(started)
			return service.NewAnswerStream(make(chan llm.Chunk), func(_ context.Context, _ string, streamErr error) (*service.AskResult, error) {
				finishing <- streamErr
				<-release
				return &service.AskResult{}, nil
			}), nil
		},
	}
	conn, h := dialChat(t, chat)

	require.NoError(t, conn.WriteJSON(gin.H{"conversationId": "c-1", "content": "Bonjour"}))
	<-started
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(h.stopToken)))
	assert.Equal(t, "stop", readFrame(t, conn)["type"])
	assert.ErrorIs(t, <-finishing, context.Canceled)

	// The previous answer is still being persisted.
	require.NoError(t, conn.WriteJSON(gin.H{"conversationId": "c-1", "content": "Encore"}))
	assert.Equal(t, "an answer is already in progress", readFrame(t, conn)["error"])

	close(release)
	assert.Equal(t, "completion", readFrame(t, conn)["type"])
}

func TestChatWebsocketRejectsMalformedQuestion(t *testing.T) {
	conn, _ := dialChat(t, &mockChatService{})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("just text")))
	assert.Equal(t, "conversationId and content are required", readFrame(t, conn)["error"])
}

func TestChatWebsocketRejectsBadToken(t *testing.T) {
	h := NewChatHandler(&mockChatService{}, stubUserService{}, token.NewJWTManager("secret", 15, 7))
	r := gin.New()
	r.GET("/chat/:token", h.Handle)

	w := doJSON(r, http.MethodGet, "/chat/not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStopTokenRotates(t *testing.T) {
	h := NewChatHandler(&mockChatService{}, stubUserService{}, token.NewJWTManager("secret", 15, 7))
	r := newRouter(testUser)
	r.GET("/chat/websocket-token", h.GetWebsocketStopToken)

	first := doJSON(r, http.MethodGet, "/chat/websocket-token", nil)
	second := doJSON(r, http.MethodGet, "/chat/websocket-token", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), stopTokenPrefix)
	assert.NotEqual(t, first.Body.String(), second.Body.String())

	assert.False(t, h.isStopCommand([]byte(`{"type":"stop","_internal_cmd_token":"WSS_STOP_CMD_guess"}`)))
	assert.True(t, h.isStopCommand([]byte(`{"type":"stop","_internal_cmd_token":"`+h.stopToken+`"}`)))
	assert.True(t, h.isStopCommand([]byte(h.stopToken)))
}
