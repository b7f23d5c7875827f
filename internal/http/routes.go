package http

import (
	"os"
	"strconv"
	"time"

	"github.com/debdutta777/noobwriter-sub000/internal/config"
	"github.com/debdutta777/noobwriter-sub000/internal/http/handlers"
	"github.com/debdutta777/noobwriter-sub000/internal/http/middleware"
	"github.com/debdutta777/noobwriter-sub000/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, version string) {
	h := handlers.NewHandler(db, cfg)
	healthHandler := handlers.NewHealthHandler(db, version)

	// Wallet-update fanout; the ledger pushes every balance change here.
	hub := ws.NewHub()
	h.Ledger.SetNotifier(hub)

	// read limits from env, with safe defaults
	apiRateLimit := 60
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateLimit = n
		}
	}
	apiRateWindow := time.Minute
	if v := os.Getenv("API_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateWindow = time.Duration(n) * time.Second
		}
	}

	// Per-user cap on balance-changing calls, on top of the domain tip
	// limiter. Generous; it only catches runaway clients.
	spendRateLimit := 30
	if v := os.Getenv("SPEND_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			spendRateLimit = n
		}
	}
	spendRateWindow := time.Minute
	if v := os.Getenv("SPEND_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			spendRateWindow = time.Duration(n) * time.Second
		}
	}

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))
	registerAPIRoutes(v1, h, db, spendRateLimit, spendRateWindow)

	// WebSocket for live wallet updates
	r.GET("/ws", h.WS(hub))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, db *pgxpool.Pool, spendRateLimit int, spendRateWindow time.Duration) {
	// Dev-only token minting; 404s unless DEV_MODE is on
	api.POST("/auth/dev-token", h.DevToken)

	// Wallet & ledger
	api.GET("/wallet", middleware.JWT(), h.GetWallet)
	api.GET("/wallet/transactions", middleware.JWT(), h.GetTransactions)

	// Per-user limiter for everything that moves coins
	spendRL := middleware.SpendRateLimit(spendRateLimit, spendRateWindow)

	// Tips
	api.POST("/tips", middleware.JWT(), spendRL, h.SendTip)

	// Chapter unlocks
	api.POST("/chapters/:id/unlock", middleware.JWT(), spendRL, h.UnlockChapter)
	api.GET("/me/unlocks", middleware.JWT(), h.MyUnlocks)

	// Author payouts
	api.GET("/payouts/info", h.GetPayoutInfo)
	api.GET("/payouts", middleware.JWT(), h.GetPayouts)
	api.POST("/payouts", middleware.JWT(), spendRL, h.RequestPayout)
	api.POST("/payouts/:id/cancel", middleware.JWT(), h.CancelPayout)

	// Reader coin-to-INR exchanges
	api.GET("/exchanges", middleware.JWT(), h.GetExchanges)
	api.POST("/exchanges", middleware.JWT(), spendRL, h.RequestExchange)
	api.POST("/exchanges/:id/cancel", middleware.JWT(), h.CancelExchange)

	// Admin settlement desk
	admin := api.Group("/admin")
	admin.Use(middleware.JWT(), middleware.RequireAdmin(db))
	{
		admin.GET("/stats", h.GetStats)
		admin.GET("/payouts/pending", h.GetPendingPayouts)
		admin.POST("/payouts/:id/confirm", h.ConfirmPayout)
		admin.GET("/exchanges/pending", h.GetPendingExchanges)
		admin.POST("/exchanges/:id/confirm", h.ConfirmExchange)
		admin.POST("/exchanges/:id/reject", h.RejectExchange)
		admin.POST("/purchases/confirm", h.CreditPurchase)
	}
}
