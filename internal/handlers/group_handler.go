package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupHandler handles group-related HTTP requests
type GroupHandler struct {
	groupService services.GroupService
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groupService services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateGroupRequest is the body of POST /groups
type CreateGroupRequest struct {
	Name     string  `json:"name" binding:"required"`
	Capital  float64 `json:"capital" binding:"required,gt=0"`
	Term     int     `json:"term" binding:"required,gt=0"`
	Template string  `json:"template"`
}

// CreateGroup handles POST /groups
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	group, err := h.groupService.CreateGroup(c.Request.Context(), req.Name, req.Capital, req.Term)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

// CreateFromTemplate handles POST /groups/from-template/:name
func (h *GroupHandler) CreateFromTemplate(c *gin.Context) {
	group, err := h.groupService.CreateFromTemplate(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

// GetTemplates handles GET /groups/templates
func (h *GroupHandler) GetTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, h.groupService.Templates())
}

// GetGroup handles GET /groups/:id
func (h *GroupHandler) GetGroup(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	group, err := h.groupService.GetGroup(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// GetGroups handles GET /groups?status=
func (h *GroupHandler) GetGroups(c *gin.Context) {
	groups, err := h.groupService.GetGroups(c.Request.Context(), models.GroupStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// GetSchedule handles GET /groups/:id/schedule
func (h *GroupHandler) GetSchedule(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	schedule, err := h.groupService.Schedule(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// PreviewScheduleRequest is the body of POST /schedules/preview
type PreviewScheduleRequest struct {
	Capital float64 `json:"capital" binding:"required,gt=0"`
	Term    int     `json:"term" binding:"required,gt=0"`
}

// PreviewSchedule handles POST /schedules/preview
func (h *GroupHandler) PreviewSchedule(c *gin.Context) {
	var req PreviewScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	schedule, err := h.groupService.PreviewSchedule(req.Capital, req.Term)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}
