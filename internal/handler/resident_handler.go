package handler

import (
	"net/http"

	"copro-smart-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ResidentHandler serves /residents.
type ResidentHandler struct {
	service service.ResidentService
}

func NewResidentHandler(service service.ResidentService) *ResidentHandler {
	return &ResidentHandler{service: service}
}

func (h *ResidentHandler) List(c *gin.Context) {
	residents, err := h.service.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", residents)
}

func (h *ResidentHandler) ListByCopropriete(c *gin.Context) {
	residents, err := h.service.ListByCopropriete(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", residents)
}

func (h *ResidentHandler) Get(c *gin.Context) {
	resident, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", resident)
}

func (h *ResidentHandler) Create(c *gin.Context) {
	var req service.ResidentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	resident, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, "Resident created successfully", resident)
}

func (h *ResidentHandler) Update(c *gin.Context) {
	var req service.ResidentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	resident, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Resident updated successfully", resident)
}

func (h *ResidentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Resident deleted successfully", nil)
}
