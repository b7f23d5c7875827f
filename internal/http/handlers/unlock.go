package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/debdutta777/noobwriter-sub000/internal/http/middleware"
	"github.com/debdutta777/noobwriter-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// UnlockChapter grants premium access to the chapter after a one-time coin
// charge. The chapter's own coin_price is authoritative; the endpoint takes
// no amount from the client.
func (h *Handler) UnlockChapter(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	chapterID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || chapterID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chapter id"})
		return
	}

	resp, err := h.Unlocks.UnlockPremiumChapter(c.Request.Context(), userID, chapterID)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientBalance) {
			middleware.SettlementFailures.WithLabelValues("unlock", "insufficient_balance").Inc()
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":    "insufficient balance",
				"required": resp.Required,
			})
			return
		}
		middleware.SettlementFailures.WithLabelValues("unlock", "other").Inc()
		serviceError(c, err)
		return
	}

	if !resp.AlreadyUnlocked {
		middleware.Settlements.WithLabelValues("unlock").Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"unlocked":         true,
		"already_unlocked": resp.AlreadyUnlocked,
		"new_balance":      resp.NewBalance,
	})
}

// MyUnlocks lists the caller's unlocked chapters.
func (h *Handler) MyUnlocks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	unlocks, err := h.Unlocks.ListUnlocks(c.Request.Context(), userID, limit)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unlocks": unlocks})
}
