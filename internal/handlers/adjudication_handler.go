package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdjudicationHandler handles bidding, period resolution and the award
// state machine
type AdjudicationHandler struct {
	adjudicationService services.AdjudicationService
}

// NewAdjudicationHandler creates a new AdjudicationHandler
func NewAdjudicationHandler(adjudicationService services.AdjudicationService) *AdjudicationHandler {
	return &AdjudicationHandler{adjudicationService: adjudicationService}
}

// SubmitBidRequest is the body of POST /groups/:id/bids
type SubmitBidRequest struct {
	MemberID            string         `json:"memberId" binding:"required"`
	InstallmentsOffered int            `json:"installmentsOffered" binding:"required,gt=0"`
	Mode                models.BidMode `json:"mode"`
}

// SubmitBid handles POST /groups/:id/bids
func (h *AdjudicationHandler) SubmitBid(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	var req SubmitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bid, err := h.adjudicationService.SubmitBid(c.Request.Context(), groupID, req.MemberID, req.InstallmentsOffered, req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// GetMinimumBid handles GET /groups/:id/bids/minimum
func (h *AdjudicationHandler) GetMinimumBid(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	minBid, err := h.adjudicationService.MinimumBid(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"minimumBid": minBid})
}

// ResolvePeriodRequest is the body of POST /groups/:id/resolve
type ResolvePeriodRequest struct {
	Period int `json:"period" binding:"required,gt=0"`
}

// ResolvePeriod handles POST /groups/:id/resolve (admin)
func (h *AdjudicationHandler) ResolvePeriod(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	var req ResolvePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	awards, err := h.adjudicationService.ResolvePeriod(c.Request.Context(), groupID, req.Period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, awards)
}

// AcceptAward handles POST /groups/:id/awards/:memberId/accept
func (h *AdjudicationHandler) AcceptAward(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	if err := h.adjudicationService.AcceptAward(c.Request.Context(), groupID, c.Param("memberId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

// ApproveAward handles POST /groups/:id/awards/:memberId/approve (admin)
func (h *AdjudicationHandler) ApproveAward(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	if err := h.adjudicationService.ApproveAward(c.Request.Context(), groupID, c.Param("memberId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

// ExpireStaleAwards handles POST /awards/expire (admin)
func (h *AdjudicationHandler) ExpireStaleAwards(c *gin.Context) {
	forfeited, err := h.adjudicationService.ExpireStaleAwards(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forfeited": forfeited})
}

// GetAwards handles GET /groups/:id/awards
func (h *AdjudicationHandler) GetAwards(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	awards, err := h.adjudicationService.GetAwards(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, awards)
}
