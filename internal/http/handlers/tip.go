package handlers

import (
	"errors"
	"net/http"

	"github.com/debdutta777/noobwriter-sub000/internal/http/middleware"
	"github.com/debdutta777/noobwriter-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// SendTipRequest is the tip payload. SeriesID/ChapterID give the tip its
// context in the reader UI; both optional.
type SendTipRequest struct {
	RecipientID int64 `json:"recipient_id" binding:"required"`
	Amount      int64 `json:"amount" binding:"required"`
	SeriesID    int64 `json:"series_id"`
	ChapterID   int64 `json:"chapter_id"`
}

// SendTip transfers coins from the caller to an author.
func (h *Handler) SendTip(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req SendTipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.Tips.SendTip(c.Request.Context(), userID, req.RecipientID, req.Amount, req.SeriesID, req.ChapterID)
	if err != nil {
		if errors.Is(err, service.ErrRateLimited) {
			middleware.SettlementFailures.WithLabelValues("tip", "rate_limited").Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many tips, please wait a minute",
				"retry_after": int(h.Tips.RetryWindow().Seconds()),
			})
			return
		}
		if errors.Is(err, service.ErrInsufficientBalance) {
			middleware.SettlementFailures.WithLabelValues("tip", "insufficient_balance").Inc()
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":    "insufficient balance",
				"required": req.Amount,
			})
			return
		}
		middleware.SettlementFailures.WithLabelValues("tip", "other").Inc()
		serviceError(c, err)
		return
	}

	middleware.Settlements.WithLabelValues("tip").Inc()
	c.JSON(http.StatusOK, gin.H{
		"new_balance":  result.SenderBalance,
		"author_share": result.AuthorShare,
	})
}
