package handlers

import (
	"net/http"
	"strconv"

	"github.com/debdutta777/noobwriter-sub000/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// Admin-only handlers. Role enforcement happens in middleware.RequireAdmin;
// these assume an authenticated admin.

// GetPendingExchanges lists pending exchange requests with requester info
// for manual payment processing.
func (h *Handler) GetPendingExchanges(c *gin.Context) {
	pending, err := h.Withdrawals.ListPendingExchanges(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// GetPendingPayouts lists pending payout requests.
func (h *Handler) GetPendingPayouts(c *gin.Context) {
	pending, err := h.Withdrawals.ListPendingPayouts(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// ConfirmExchangeRequest carries the admin's record of the manual payment.
type ConfirmExchangeRequest struct {
	PaymentNote string `json:"payment_note"`
	PaymentRef  string `json:"payment_ref"`
}

// ConfirmExchange settles a pending exchange after the INR was paid out.
func (h *Handler) ConfirmExchange(c *gin.Context) {
	adminID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || txID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	var req ConfirmExchangeRequest
	_ = c.ShouldBindJSON(&req)

	coins, err := h.Withdrawals.ConfirmExchange(c.Request.Context(), adminID, txID, req.PaymentNote, req.PaymentRef)
	if err != nil {
		middleware.SettlementFailures.WithLabelValues("exchange_confirm", "rejected").Inc()
		serviceError(c, err)
		return
	}

	middleware.Settlements.WithLabelValues("exchange_confirm").Inc()
	c.JSON(http.StatusOK, gin.H{"coins_deducted": coins})
}

// RejectExchangeRequest carries the rejection reason shown to the user.
type RejectExchangeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectExchange releases the reservation and records the reason.
func (h *Handler) RejectExchange(c *gin.Context) {
	adminID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || txID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	var req RejectExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	if err := h.Withdrawals.RejectExchange(c.Request.Context(), adminID, txID, req.Reason); err != nil {
		serviceError(c, err)
		return
	}

	middleware.Settlements.WithLabelValues("exchange_reject").Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ConfirmPayout settles a pending payout.
func (h *Handler) ConfirmPayout(c *gin.Context) {
	adminID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || txID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	coins, err := h.Withdrawals.ConfirmPayout(c.Request.Context(), adminID, txID)
	if err != nil {
		middleware.SettlementFailures.WithLabelValues("payout_confirm", "rejected").Inc()
		serviceError(c, err)
		return
	}

	middleware.Settlements.WithLabelValues("payout_confirm").Inc()
	c.JSON(http.StatusOK, gin.H{"coins_deducted": coins})
}

// GetStats returns the platform coin economy snapshot.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.Admin.GetStats(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CreditPurchaseRequest records a gateway-confirmed coin purchase.
type CreditPurchaseRequest struct {
	UserID  int64   `json:"user_id" binding:"required"`
	Coins   int64   `json:"coins" binding:"required,min=1"`
	INRPaid float64 `json:"inr_paid" binding:"required"`
	Gateway string  `json:"gateway"`
	OrderID string  `json:"order_id" binding:"required"`
}

// CreditPurchase credits coins after gateway verification (which happens
// upstream of this service).
func (h *Handler) CreditPurchase(c *gin.Context) {
	var req CreditPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	newBalance, err := h.Admin.CreditPurchase(c.Request.Context(), req.UserID, req.Coins, req.INRPaid, req.Gateway, req.OrderID)
	if err != nil {
		serviceError(c, err)
		return
	}

	middleware.Settlements.WithLabelValues("purchase").Inc()
	c.JSON(http.StatusOK, gin.H{"new_balance": newBalance})
}
