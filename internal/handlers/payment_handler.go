package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentHandler receives PaymentConfirmed events from the payment
// collaborator
type PaymentHandler struct {
	paymentService services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// RecordPayment handles POST /payments. Redelivered events return 200
// without side effects.
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var event models.PaymentConfirmed
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.paymentService.RecordPayment(c.Request.Context(), event); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// GetReceipt handles GET /groups/:id/members/:memberId/receipts/:installment
func (h *PaymentHandler) GetReceipt(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	installment, err := strconv.Atoi(c.Param("installment"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid installment number"})
		return
	}
	receipt, err := h.paymentService.Receipt(c.Request.Context(), groupID, c.Param("memberId"), installment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// GetPayments handles GET /groups/:id/members/:memberId/payments
func (h *PaymentHandler) GetPayments(c *gin.Context) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	payments, err := h.paymentService.GetPayments(c.Request.Context(), groupID, c.Param("memberId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
