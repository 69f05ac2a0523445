package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupdreaming/rosca-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipHandler handles join/leave and member queries
type MembershipHandler struct {
	membershipService services.MembershipService
}

// NewMembershipHandler creates a new MembershipHandler
func NewMembershipHandler(membershipService services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// JoinRequest is the body of POST /groups/:id/members
type JoinRequest struct {
	MemberID string `json:"memberId" binding:"required"`
}

// Join handles POST /groups/:id/members
func (h *MembershipHandler) Join(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	member, err := h.membershipService.Join(c.Request.Context(), groupID, req.MemberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// Leave handles POST /groups/:id/members/:memberId/leave
func (h *MembershipHandler) Leave(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	statement, err := h.membershipService.Leave(c.Request.Context(), groupID, c.Param("memberId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}

// GetMember handles GET /groups/:id/members/:memberId
func (h *MembershipHandler) GetMember(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	member, err := h.membershipService.GetMember(c.Request.Context(), groupID, c.Param("memberId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// GetMembers handles GET /groups/:id/members
func (h *MembershipHandler) GetMembers(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	members, err := h.membershipService.GetMembers(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}
