package handlers

import (
	"net/http"
	"strconv"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"
	"github.com/debdutta777/noobwriter-sub000/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// RequestPayoutRequest is the self-service payout payload.
type RequestPayoutRequest struct {
	CoinAmount int64              `json:"coin_amount" binding:"required"`
	Bank       domain.BankDetails `json:"bank"`
}

// RequestPayout reserves coins for a coins->INR payout.
func (h *Handler) RequestPayout(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req RequestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	receipt, err := h.Withdrawals.RequestPayout(c.Request.Context(), userID, req.CoinAmount, req.Bank)
	if err != nil {
		middleware.SettlementFailures.WithLabelValues("payout_request", "rejected").Inc()
		serviceError(c, err)
		return
	}

	middleware.Settlements.WithLabelValues("payout_request").Inc()
	c.JSON(http.StatusOK, gin.H{
		"payout_id":  receipt.TransactionID,
		"reference":  receipt.Reference,
		"inr_amount": receipt.INRAmount,
	})
}

// CancelPayout releases a pending payout back to the spendable balance.
func (h *Handler) CancelPayout(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || txID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout id"})
		return
	}

	released, err := h.Withdrawals.CancelPayout(c.Request.Context(), userID, txID)
	if err != nil {
		serviceError(c, err)
		return
	}

	middleware.Settlements.WithLabelValues("payout_cancel").Inc()
	c.JSON(http.StatusOK, gin.H{"refund_amount": released})
}

// GetPayoutInfo returns the payout terms for display.
func (h *Handler) GetPayoutInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"payout": h.Withdrawals.PayoutTerms()})
}

// GetPayouts returns the caller's payout history.
func (h *Handler) GetPayouts(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	payouts, err := h.Withdrawals.ListPayouts(c.Request.Context(), userID, limit)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}
