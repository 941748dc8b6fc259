package handler

import (
	"net/http"

	"copro-smart-go/internal/service"

	"github.com/gin-gonic/gin"
)

// CoproprieteHandler serves /coproprietes. Every route is scoped to the
// caller's own coproprietes.
type CoproprieteHandler struct {
	service service.CoproprieteService
}

func NewCoproprieteHandler(service service.CoproprieteService) *CoproprieteHandler {
	return &CoproprieteHandler{service: service}
}

func (h *CoproprieteHandler) List(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	items, err := h.service.List(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", items)
}

func (h *CoproprieteHandler) Get(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	item, err := h.service.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", item)
}

func (h *CoproprieteHandler) Create(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	var req service.CoproprieteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	item, err := h.service.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, "Copropriete created successfully", item)
}

func (h *CoproprieteHandler) Update(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	var req service.CoproprieteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	item, err := h.service.Update(c.Request.Context(), user.ID, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Copropriete updated successfully", item)
}

func (h *CoproprieteHandler) Delete(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Copropriete deleted successfully", nil)
}
