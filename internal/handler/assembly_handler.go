package handler

import (
	"net/http"

	"copro-smart-go/internal/model"
	"copro-smart-go/internal/service"

	"github.com/gin-gonic/gin"
)

// AssemblyHandler serves /assemblies and their agenda, decisions,
// attendees and documents.
type AssemblyHandler struct {
	service service.AssemblyService
}

func NewAssemblyHandler(service service.AssemblyService) *AssemblyHandler {
	return &AssemblyHandler{service: service}
}

func (h *AssemblyHandler) List(c *gin.Context) {
	assemblies, err := h.service.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", assemblies)
}

func (h *AssemblyHandler) ListByCopropriete(c *gin.Context) {
	assemblies, err := h.service.ListByCopropriete(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", assemblies)
}

func (h *AssemblyHandler) Get(c *gin.Context) {
	assembly, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", assembly)
}

func (h *AssemblyHandler) Create(c *gin.Context) {
	var req service.AssemblyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	assembly, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, "Assembly created successfully", assembly)
}

func (h *AssemblyHandler) Update(c *gin.Context) {
	var req service.AssemblyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	assembly, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Assembly updated successfully", assembly)
}

func (h *AssemblyHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Assembly deleted successfully", nil)
}

func (h *AssemblyHandler) AddAgendaItem(c *gin.Context) {
	var req service.AgendaItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	item, err := h.service.AddAgendaItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, "Agenda item added successfully", item)
}

func (h *AssemblyHandler) UpdateAgendaItem(c *gin.Context) {
	var req service.AgendaItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	item, err := h.service.UpdateAgendaItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Agenda item updated successfully", item)
}

func (h *AssemblyHandler) DeleteAgendaItem(c *gin.Context) {
	if err := h.service.DeleteAgendaItem(c.Request.Context(), c.Param("id"), c.Param("itemId")); err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Agenda item deleted successfully", nil)
}

// AddDecision records a decision; voters are optional.
func (h *AssemblyHandler) AddDecision(c *gin.Context) {
	var req model.Decision
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	decision, err := h.service.AddDecision(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, "Decision added successfully", decision)
}

func (h *AssemblyHandler) AddAttendee(c *gin.Context) {
	var req model.Attendee
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	attendee, err := h.service.AddAttendee(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, "Attendee added successfully", attendee)
}

func (h *AssemblyHandler) AddDocument(c *gin.Context) {
	var req model.AssemblyDocument
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	doc, err := h.service.AddDocument(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, "Document added successfully", doc)
}

// GenerateMinutes renders and stores the minutes of the assembly.
func (h *AssemblyHandler) GenerateMinutes(c *gin.Context) {
	assembly, err := h.service.GenerateMinutes(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Minutes generated successfully", assembly)
}

func (h *AssemblyHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", stats)
}
