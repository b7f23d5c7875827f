package handlers

import (
	"net/http"
	"strconv"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"
	"github.com/debdutta777/noobwriter-sub000/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// RequestExchangeRequest is the high-value exchange payload.
type RequestExchangeRequest struct {
	CoinAmount int64              `json:"coin_amount" binding:"required"`
	Bank       domain.BankDetails `json:"bank" binding:"required"`
}

// RequestExchange reserves coins for an admin-mediated coins->INR
// conversion.
func (h *Handler) RequestExchange(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req RequestExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	receipt, err := h.Withdrawals.RequestExchange(c.Request.Context(), userID, req.CoinAmount, req.Bank)
	if err != nil {
		middleware.SettlementFailures.WithLabelValues("exchange_request", "rejected").Inc()
		serviceError(c, err)
		return
	}

	middleware.Settlements.WithLabelValues("exchange_request").Inc()
	c.JSON(http.StatusOK, gin.H{
		"transaction_id": receipt.TransactionID,
		"reference":      receipt.Reference,
		"inr_amount":     receipt.INRAmount,
	})
}

// CancelExchange releases a pending exchange (self-service).
func (h *Handler) CancelExchange(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || txID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exchange id"})
		return
	}

	if _, err := h.Withdrawals.CancelExchange(c.Request.Context(), userID, txID); err != nil {
		serviceError(c, err)
		return
	}

	middleware.Settlements.WithLabelValues("exchange_cancel").Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetExchanges returns the caller's exchange history.
func (h *Handler) GetExchanges(c *gin.Context) {
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

	exchanges, err := h.Withdrawals.ListExchanges(c.Request.Context(), userID, limit)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exchanges": exchanges,
		"terms":     h.Withdrawals.ExchangeTerms(),
	})
}
