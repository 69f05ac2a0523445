package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupdreaming/rosca-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuctionHandler handles secondary-market HTTP requests
type AuctionHandler struct {
	auctionService services.AuctionService
	reserveService services.ReserveFundService
}

// NewAuctionHandler creates a new AuctionHandler
func NewAuctionHandler(auctionService services.AuctionService, reserveService services.ReserveFundService) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService, reserveService: reserveService}
}

// QuoteListing handles GET /groups/:id/members/:memberId/listing-quote
func (h *AuctionHandler) QuoteListing(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	quote, err := h.auctionService.QuoteListing(c.Request.Context(), groupID, c.Param("memberId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// ListForSale handles POST /groups/:id/members/:memberId/list
func (h *AuctionHandler) ListForSale(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	listing, err := h.auctionService.ListForSale(c.Request.Context(), groupID, c.Param("memberId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// GetOpenListings handles GET /auctions
func (h *AuctionHandler) GetOpenListings(c *gin.Context) {
	listings, err := h.auctionService.GetOpenListings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

// PlaceBidRequest is the body of POST /auctions/:id/bids
type PlaceBidRequest struct {
	BuyerID string  `json:"buyerId" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
}

// PlaceBid handles POST /auctions/:id/bids
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	listing, err := h.auctionService.PlaceBid(c.Request.Context(), listingID, req.BuyerID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// CloseBidding handles POST /auctions/:id/close (admin)
func (h *AuctionHandler) CloseBidding(c *gin.Context) {
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	listing, err := h.auctionService.CloseBidding(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Settle handles POST /auctions/:id/settle (admin)
func (h *AuctionHandler) Settle(c *gin.Context) {
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	statement, err := h.auctionService.Settle(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}

// RecordBuyerDefault handles POST /auctions/:id/buyer-default (admin)
func (h *AuctionHandler) RecordBuyerDefault(c *gin.Context) {
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	listing, err := h.auctionService.RecordBuyerDefault(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// AbsorbInstallmentRequest is the body of POST /auctions/:id/absorb-installment
type AbsorbInstallmentRequest struct {
	InstallmentNumber int `json:"installmentNumber" binding:"required,gt=0"`
}

// AbsorbInstallment handles POST /auctions/:id/absorb-installment (admin)
func (h *AuctionHandler) AbsorbInstallment(c *gin.Context) {
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	var req AbsorbInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.auctionService.AbsorbInstallment(c.Request.Context(), listingID, req.InstallmentNumber); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "absorbed"})
}

// GetReserveFund handles GET /groups/:id/reserve-fund
func (h *AuctionHandler) GetReserveFund(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	balance, err := h.reserveService.Balance(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	entries, err := h.reserveService.Entries(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance, "entries": entries})
}
