package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/log"
	"copro-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const stopTokenPrefix = "WSS_STOP_CMD_"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatHandler streams answers over a WebSocket. Each text frame from the
// client is either a question or a stop command for the answer in flight.
type ChatHandler struct {
	chatService   service.ChatService
	userService   service.UserService
	jwtManager    *token.JWTManager
	stopToken     string
	stopTokenLock sync.Mutex
	// one *inflightAnswer per connection with an answer in flight
	cancels sync.Map
}

type inflightAnswer struct {
	cancel  context.CancelFunc
	stopped atomic.Bool
}

func NewChatHandler(chatService service.ChatService, userService service.UserService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// wsQuestion is a question frame.
type wsQuestion struct {
	ConversationID string   `json:"conversationId"`
	Content        string   `json:"content"`
	DocIDs         []string `json:"docIds"`
}

// wsControl is a control frame, {"type":"stop","_internal_cmd_token":"..."}.
type wsControl struct {
	Type  string `json:"type"`
	Token string `json:"_internal_cmd_token"`
}

// wsConn serialises writes; gorilla connections allow one writer at a time.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.WriteJSON(v); err != nil {
		log.Warnf("[ChatHandler] websocket write failed: %v", err)
	}
}

func (c *wsConn) sendEvent(kind, message string, extra gin.H) {
	now := time.Now()
	frame := gin.H{
		"type":      kind,
		"message":   message,
		"timestamp": now.UnixMilli(),
		"date":      now.Format("2006-01-02T15:04:05"),
	}
	for k, v := range extra {
		frame[k] = v
	}
	c.send(frame)
}

// GetWebsocketStopToken rotates and returns the token accepted by stop commands.
func (h *ChatHandler) GetWebsocketStopToken(c *gin.Context) {
	h.stopTokenLock.Lock()
	defer h.stopTokenLock.Unlock()
	// Single rotating token; a multi-instance deployment would keep it in Redis.
	h.stopToken = stopTokenPrefix + token.GenerateRandomString(16)
	success(c, http.StatusOK, "success", gin.H{"cmdToken": h.stopToken})
}

func (h *ChatHandler) validStopToken(tok string) bool {
	h.stopTokenLock.Lock()
	defer h.stopTokenLock.Unlock()
	return h.stopToken != "" && tok == h.stopToken
}

// Handle authenticates the path token, upgrades the connection and serves it.
func (h *ChatHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Param("token"))
	if err != nil {
		fail(c, apperr.Unauthorized("invalid token"))
		return
	}
	user, err := h.userService.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("[ChatHandler] websocket upgrade failed", err)
		return
	}
	conn := &wsConn{Conn: raw}
	defer conn.Close()
	key := sessionKey(raw)
	log.Infof("[ChatHandler] websocket opened for user %s", user.ID)

	var inflight sync.WaitGroup
	defer func() {
		h.stop(key)
		inflight.Wait()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("[ChatHandler] websocket read failed: %v", err)
			}
			return
		}

		if h.isStopCommand(message) {
			if h.stop(key) {
				conn.sendEvent("stop", "Response stopped", nil)
			}
			continue
		}

		var q wsQuestion
		if err := json.Unmarshal(message, &q); err != nil || q.ConversationID == "" || strings.TrimSpace(q.Content) == "" {
			conn.send(gin.H{"error": "conversationId and content are required"})
			continue
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		handle := &inflightAnswer{cancel: cancel}
		if _, busy := h.cancels.LoadOrStore(key, handle); busy {
			cancel()
			conn.send(gin.H{"error": "an answer is already in progress"})
			continue
		}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			defer func() {
				h.cancels.CompareAndDelete(key, handle)
				cancel()
			}()
			h.answer(ctx, conn, service.AskRequest{
				ConversationID: q.ConversationID,
				UserID:         user.ID,
				Question:       q.Content,
				DocIDs:         q.DocIDs,
			})
		}()
	}
}

func (h *ChatHandler) isStopCommand(message []byte) bool {
	if len(message) > 0 && message[0] == '{' {
		var ctrl wsControl
		if err := json.Unmarshal(message, &ctrl); err == nil && ctrl.Type == "stop" {
			return h.validStopToken(ctrl.Token)
		}
	}
	// bare token, kept for older clients
	return h.validStopToken(string(message))
}

// stop cancels the answer in flight on the connection, if any. The entry stays
// until the answer goroutine has persisted and returned.
func (h *ChatHandler) stop(key string) bool {
	v, ok := h.cancels.Load(key)
	if !ok {
		return false
	}
	a := v.(*inflightAnswer)
	if !a.stopped.CompareAndSwap(false, true) {
		return false
	}
	a.cancel()
	return true
}

func (h *ChatHandler) answer(ctx context.Context, conn *wsConn, req service.AskRequest) {
	stream, err := h.chatService.StartStream(ctx, req)
	if err != nil {
		conn.send(gin.H{"error": apperr.PublicMessage(err)})
		conn.sendEvent("completion", "Response completed", gin.H{"status": "finished"})
		return
	}

	var (
		full      strings.Builder
		streamErr error
	)
loop:
	for {
		select {
		case <-ctx.Done():
			streamErr = ctx.Err()
			break loop
		case chunk, open := <-stream.Chunks:
			if !open {
				break loop
			}
			if chunk.Err != nil {
				streamErr = chunk.Err
				break loop
			}
			full.WriteString(chunk.Content)
			conn.send(gin.H{"chunk": chunk.Content})
		}
	}

	_, err = stream.Finish(context.WithoutCancel(ctx), full.String(), streamErr)
	if err != nil && !errors.Is(streamErr, context.Canceled) {
		log.Errorf("[ChatHandler] answer failed, conversation=%s: %v", req.ConversationID, err)
		conn.send(gin.H{"error": "The assistant is temporarily unavailable, please retry"})
	}
	conn.sendEvent("completion", "Response completed", gin.H{"status": "finished"})
}

func sessionKey(conn *websocket.Conn) string {
	return fmt.Sprintf("%p", conn)
}
