package handlers

import (
	"net/http"
	"strconv"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"

	"github.com/gin-gonic/gin"
)

// GetWallet returns the caller's wallet, creating it lazily with the welcome
// balance on first touch.
func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	w, err := h.WalletRepo.Ensure(c.Request.Context(), userID, h.Cfg.WelcomeCoins)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":    w,
		"spendable": w.Spendable(),
	})
}

// GetTransactions returns the caller's ledger history, optionally filtered
// by type.
func (h *Handler) GetTransactions(c *gin.Context) {
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

	ctx := c.Request.Context()
	var (
		txs interface{}
		err error
	)
	if t := c.Query("type"); t != "" {
		txs, err = h.TxRepo.GetByUserIDAndType(ctx, userID, domain.TransactionType(t), limit)
	} else {
		txs, err = h.TxRepo.GetByUserID(ctx, userID, limit)
	}
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
