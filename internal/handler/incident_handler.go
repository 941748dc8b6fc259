package handler

import (
	"net/http"
	"strings"

	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// IncidentHandler serves /incidents.
type IncidentHandler struct {
	service service.IncidentService
}

func NewIncidentHandler(service service.IncidentService) *IncidentHandler {
	return &IncidentHandler{service: service}
}

func (h *IncidentHandler) List(c *gin.Context) {
	incidents, err := h.service.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", incidents)
}

func (h *IncidentHandler) ListByCopropriete(c *gin.Context) {
	incidents, err := h.service.ListByCopropriete(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", incidents)
}

func (h *IncidentHandler) ListByResident(c *gin.Context) {
	incidents, err := h.service.ListByResident(c.Request.Context(), c.Param("residentId"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", incidents)
}

func (h *IncidentHandler) Get(c *gin.Context) {
	incident, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", incident)
}

// Create accepts JSON, or a multipart form with an optional "file" photo.
func (h *IncidentHandler) Create(c *gin.Context) {
	var req service.IncidentInput
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}

	var photo *service.Attachment
	if strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm) {
		if header, err := c.FormFile("file"); err == nil {
			file, err := header.Open()
			if err != nil {
				log.Error("[IncidentHandler] open photo failed", err)
				badRequest(c, "could not read the uploaded photo")
				return
			}
			defer file.Close()
			photo = attachment(header, file)
		}
	}

	incident, err := h.service.Create(c.Request.Context(), req, photo)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, "Incident created successfully", incident)
}

func (h *IncidentHandler) Update(c *gin.Context) {
	var req service.IncidentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	incident, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Incident updated successfully", incident)
}

func (h *IncidentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Incident deleted successfully", nil)
}
