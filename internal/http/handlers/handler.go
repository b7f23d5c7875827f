package handlers

import (
	"errors"
	"net/http"

	"github.com/debdutta777/noobwriter-sub000/internal/config"
	"github.com/debdutta777/noobwriter-sub000/internal/logger"
	"github.com/debdutta777/noobwriter-sub000/internal/repository"
	"github.com/debdutta777/noobwriter-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler wires the settlement services behind the HTTP surface.
type Handler struct {
	DB  *pgxpool.Pool
	Cfg *config.Config

	WalletRepo *repository.WalletRepository
	TxRepo     *repository.TransactionRepository

	Ledger      *service.LedgerService
	Tips        *service.TipService
	Unlocks     *service.UnlockService
	Withdrawals *service.WithdrawalService
	Admin       *service.AdminService
}

func NewHandler(db *pgxpool.Pool, cfg *config.Config) *Handler {
	ledger := service.NewLedgerService(db, cfg.AuthorSharePercent)
	return &Handler{
		DB:          db,
		Cfg:         cfg,
		WalletRepo:  repository.NewWalletRepository(db),
		TxRepo:      repository.NewTransactionRepository(db),
		Ledger:      ledger,
		Tips:        service.NewTipService(db, ledger, cfg),
		Unlocks:     service.NewUnlockService(db, ledger),
		Withdrawals: service.NewWithdrawalService(db, ledger, cfg),
		Admin:       service.NewAdminService(db, ledger),
	}
}

// getUserID extracts the authenticated user id set by the JWT middleware.
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// serviceError translates a settlement error into a user-safe response.
// Storage errors are logged in full and surfaced as a generic failure.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
	case errors.Is(err, service.ErrSelfTip):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot tip yourself"})
	case errors.Is(err, service.ErrAmountOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount out of range"})
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
	case errors.Is(err, service.ErrBelowMinimum):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount below minimum"})
	case errors.Is(err, service.ErrNotDivisible):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a multiple of the exchange block"})
	case errors.Is(err, service.ErrBankDetailsRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bank details required"})
	case errors.Is(err, service.ErrChapterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
	case errors.Is(err, service.ErrNotPremium):
		c.JSON(http.StatusBadRequest, gin.H{"error": "chapter is not premium"})
	case errors.Is(err, service.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
	case errors.Is(err, service.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
	case errors.Is(err, service.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "request is no longer pending"})
	case errors.Is(err, service.ErrDuplicatePurchase):
		c.JSON(http.StatusConflict, gin.H{"error": "purchase already credited"})
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	default:
		logger.Error("settlement request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
	}
}
