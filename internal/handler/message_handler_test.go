package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/llm"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageRouter(chat service.ChatService) *gin.Engine {
	h := NewMessageHandler(chat, &mockConversationService{}, time.Minute)
	r := newRouter(testUser)
	r.POST("/messages/ask", h.Ask)
	r.POST("/messages/ask/stream", h.AskStream)
	return r
}

// streamOf returns a stream over chunks and records what Finish receives.
func streamOf(finishErr error, chunks ...llm.Chunk) (*service.AnswerStream, *finishCall) {
	ch := make(chan llm.Chunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	call := &finishCall{}
	return service.NewAnswerStream(ch, func(_ context.Context, answer string, streamErr error) (*service.AskResult, error) {
		call.called = true
		call.answer = answer
		call.streamErr = streamErr
		return &service.AskResult{}, finishErr
	}), call
}

type finishCall struct {
	called    bool
	answer    string
	streamErr error
}

func TestAsk(t *testing.T) {
	var got service.AskRequest
	chat := &mockChatService{
		AskFunc: func(_ context.Context, req service.AskRequest) (*service.AskResult, error) {
			got = req
			return &service.AskResult{
				UserMessage:      &model.Message{Role: model.RoleUserMessage, Content: req.Question, SequenceNumber: 2},
				AssistantMessage: &model.Message{Role: model.RoleAssistantMessage, Content: "Le syndic est joignable le lundi.", SequenceNumber: 3},
			}, nil
		},
	}
	w := doJSON(messageRouter(chat), http.MethodPost, "/messages/ask", gin.H{
		"conversationId": "c-1", "content": "Quand joindre le syndic ?", "docIds": []string{"d-1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.AskRequest{ConversationID: "c-1", UserID: "u-1", Question: "Quand joindre le syndic ?", DocIDs: []string{"d-1"}}, got)
	assert.Contains(t, w.Body.String(), "Le syndic est joignable le lundi.")
}

func TestAskUpstreamFailure(t *testing.T) {
	chat := &mockChatService{
		AskFunc: func(context.Context, service.AskRequest) (*service.AskResult, error) {
			return nil, apperr.Upstream("language model request failed", errors.New("503"))
		},
	}
	w := doJSON(messageRouter(chat), http.MethodPost, "/messages/ask", gin.H{"conversationId": "c-1", "content": "Bonjour"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAskRequiresContent(t *testing.T) {
	w := doJSON(messageRouter(&mockChatService{}), http.MethodPost, "/messages/ask", gin.H{"conversationId": "c-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskStreamBuffersOnBoundaries(t *testing.T) {
	stream, call := streamOf(nil,
		llm.Chunk{Content: "Bonjour "},
		llm.Chunk{Content: "le mon"},
		llm.Chunk{Content: "de."},
		llm.Chunk{Content: "Fin"},
	)
	chat := &mockChatService{
		StartStreamFunc: func(context.Context, service.AskRequest) (*service.AnswerStream, error) {
			return stream, nil
		},
	}
	w := doJSON(messageRouter(chat), http.MethodPost, "/messages/ask/stream", gin.H{"conversationId": "c-1", "content": "Bonjour"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "Bonjour \n\nle monde.\n\ndata: Fin\n\n", w.Body.String())
	assert.True(t, call.called)
	assert.Equal(t, "Bonjour le monde.Fin", call.answer)
	assert.NoError(t, call.streamErr)
}

func TestAskStreamError(t *testing.T) {
	boom := errors.New("connection reset")
	stream, call := streamOf(apperr.Upstream("language model stream failed", boom),
		llm.Chunk{Content: "Le conseil "},
		llm.Chunk{Content: "syn"},
		llm.Chunk{Err: boom},
	)
	chat := &mockChatService{
		StartStreamFunc: func(context.Context, service.AskRequest) (*service.AnswerStream, error) {
			return stream, nil
		},
	}
	w := doJSON(messageRouter(chat), http.MethodPost, "/messages/ask/stream", gin.H{"conversationId": "c-1", "content": "Bonjour"})

	assert.Equal(t, "Le conseil \n\nevent: error\ndata: language model stream failed\n\n", w.Body.String())
	assert.Equal(t, "Le conseil syn", call.answer)
	assert.ErrorIs(t, call.streamErr, boom)
}

func TestAskStreamOpenFailureUsesEnvelope(t *testing.T) {
	chat := &mockChatService{
		StartStreamFunc: func(context.Context, service.AskRequest) (*service.AnswerStream, error) {
			return nil, apperr.NotFound("conversation c-1 not found")
		},
	}
	w := doJSON(messageRouter(chat), http.MethodPost, "/messages/ask/stream", gin.H{"conversationId": "c-1", "content": "Bonjour"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "conversation c-1 not found", decode(t, w).Message)
}
