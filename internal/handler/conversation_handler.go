package handler

import (
	"net/http"
	"strconv"

	"copro-smart-go/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultRecentLimit = 10

// ConversationHandler serves /conversations.
type ConversationHandler struct {
	service service.ConversationService
}

func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// CreateConversationRequest is the body of POST /conversations.
type CreateConversationRequest struct {
	Title         string `json:"title"`
	CoproprietyID string `json:"copropriety_id"`
}

// List returns the caller's conversations, most recently updated first.
func (h *ConversationHandler) List(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	conversations, err := h.service.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", conversations)
}

// Recent returns at most ?limit= conversations of the caller.
func (h *ConversationHandler) Recent(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRecentLimit)))
	if err != nil || limit <= 0 {
		limit = defaultRecentLimit
	}
	conversations, err := h.service.ListRecent(c.Request.Context(), user.ID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", conversations)
}

func (h *ConversationHandler) Create(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	conv, err := h.service.Create(c.Request.Context(), user.ID, req.Title, req.CoproprietyID)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, "Conversation created successfully", conv)
}

// Details returns one conversation with its messages.
func (h *ConversationHandler) Details(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	conv, err := h.service.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", conv)
}

func (h *ConversationHandler) Update(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	var req service.ConversationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	conv, err := h.service.Update(c.Request.Context(), user.ID, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Conversation updated successfully", conv)
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Conversation deleted successfully", gin.H{"message": "Conversation deleted successfully"})
}
