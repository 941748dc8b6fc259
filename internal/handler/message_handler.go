package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// MessageHandler serves the question/answer endpoints.
type MessageHandler struct {
	chatService         service.ChatService
	conversationService service.ConversationService
	keepAlive           time.Duration
}

// NewMessageHandler creates a MessageHandler. keepAlive is the interval of
// comment frames on event streams; non-positive means 20s.
func NewMessageHandler(chatService service.ChatService, conversationService service.ConversationService, keepAlive time.Duration) *MessageHandler {
	if keepAlive <= 0 {
		keepAlive = 20 * time.Second
	}
	return &MessageHandler{
		chatService:         chatService,
		conversationService: conversationService,
		keepAlive:           keepAlive,
	}
}

// AskRequest is the body of POST /messages/ask and /messages/ask/stream.
type AskRequest struct {
	ConversationID string   `json:"conversationId" binding:"required"`
	Content        string   `json:"content" binding:"required"`
	DocIDs         []string `json:"docIds"`
}

func (h *MessageHandler) bindAsk(c *gin.Context) (service.AskRequest, bool) {
	user := requireUser(c)
	if user == nil {
		return service.AskRequest{}, false
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "conversationId and content are required")
		return service.AskRequest{}, false
	}
	return service.AskRequest{
		ConversationID: req.ConversationID,
		UserID:         user.ID,
		Question:       req.Content,
		DocIDs:         req.DocIDs,
	}, true
}

// Ask answers a question in one response.
func (h *MessageHandler) Ask(c *gin.Context) {
	req, ok := h.bindAsk(c)
	if !ok {
		return
	}
	res, err := h.chatService.Ask(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", res)
}

// AskStream answers a question as a text/event-stream. Fragments are held
// back until they end on a word or sentence boundary.
func (h *MessageHandler) AskStream(c *gin.Context) {
	req, ok := h.bindAsk(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	stream, err := h.chatService.StartStream(ctx, req)
	if err != nil {
		fail(c, err)
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	write := func(s string) {
		if _, err := w.WriteString(s); err != nil {
			log.Warnf("[MessageHandler] write to event stream failed: %v", err)
			return
		}
		w.Flush()
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	var (
		full      strings.Builder
		buf       strings.Builder
		streamErr error
	)
loop:
	for {
		select {
		case <-ctx.Done():
			streamErr = ctx.Err()
			break loop
		case <-ticker.C:
			write(":\n\n")
		case chunk, open := <-stream.Chunks:
			if !open {
				break loop
			}
			if chunk.Err != nil {
				streamErr = chunk.Err
				break loop
			}
			full.WriteString(chunk.Content)
			buf.WriteString(chunk.Content)
			if endsOnBoundary(buf.String()) {
				write(buf.String() + "\n\n")
				buf.Reset()
			}
		}
	}

	if streamErr == nil && buf.Len() > 0 {
		write("data: " + buf.String() + "\n\n")
	}

	// The request context may already be cancelled; persistence must still run.
	_, finishErr := stream.Finish(context.WithoutCancel(ctx), full.String(), streamErr)
	if finishErr == nil {
		return
	}
	if errors.Is(streamErr, context.Canceled) {
		log.Infof("[MessageHandler] client left conversation %s before the answer completed", req.ConversationID)
		return
	}
	message := apperr.PublicMessage(finishErr)
	if apperr.HTTPStatus(finishErr) >= http.StatusInternalServerError && gin.Mode() == gin.ReleaseMode {
		message = internalErrorMessage
	}
	write(fmt.Sprintf("event: error\ndata: %s\n\n", message))
}

// Conversation returns the conversation named by ?id= with its messages.
func (h *MessageHandler) Conversation(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	id := c.Query("id")
	if id == "" {
		badRequest(c, "id is required")
		return
	}
	conv, err := h.conversationService.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", conv)
}

func endsOnBoundary(s string) bool {
	return strings.HasSuffix(s, " ") || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "\n")
}
