package service

import (
	"context"
	"fmt"
	"time"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminService provides platform statistics and the purchase-crediting
// boundary for gateway-confirmed top-ups.
type AdminService struct {
	db     *pgxpool.Pool
	ledger *LedgerService
}

func NewAdminService(db *pgxpool.Pool, ledger *LedgerService) *AdminService {
	return &AdminService{db: db, ledger: ledger}
}

// Stats is the platform coin economy snapshot.
type Stats struct {
	TotalWallets     int64 `json:"total_wallets"`
	CirculatingCoins int64 `json:"circulating_coins"`
	ReservedCoins    int64 `json:"reserved_coins"`

	PendingPayouts      int64 `json:"pending_payouts"`
	PendingPayoutCoins  int64 `json:"pending_payout_coins"`
	PendingExchanges    int64 `json:"pending_exchanges"`
	PendingExchangeCoins int64 `json:"pending_exchange_coins"`

	TipsToday     int64 `json:"tips_today"`
	TipCoinsToday int64 `json:"tip_coins_today"`
	UnlocksToday  int64 `json:"unlocks_today"`

	CoinsPurchasedToday int64 `json:"coins_purchased_today"`
	CoinsPurchasedWeek  int64 `json:"coins_purchased_week"`
	CoinsPurchasedTotal int64 `json:"coins_purchased_total"`
	CoinsPaidOutTotal   int64 `json:"coins_paid_out_total"`
}

// GetStats returns platform statistics. Individual query failures zero the
// field rather than failing the whole snapshot.
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	today := time.Now().Truncate(24 * time.Hour)
	weekAgo := today.Add(-7 * 24 * time.Hour)

	_ = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&stats.TotalWallets)

	_ = s.db.QueryRow(ctx, `SELECT COALESCE(SUM(coin_balance), 0) FROM wallets`).Scan(&stats.CirculatingCoins)

	_ = s.db.QueryRow(ctx, `SELECT COALESCE(SUM(reserved_coins), 0) FROM wallets`).Scan(&stats.ReservedCoins)

	_ = s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(-coin_amount), 0)
		FROM transactions WHERE type = 'payout_request' AND payment_status = 'pending'
	`).Scan(&stats.PendingPayouts, &stats.PendingPayoutCoins)

	_ = s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(-coin_amount), 0)
		FROM transactions WHERE type = 'coin_exchange' AND payment_status = 'pending'
	`).Scan(&stats.PendingExchanges, &stats.PendingExchangeCoins)

	_ = s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(-coin_amount), 0)
		FROM transactions WHERE type = 'tip_sent' AND created_at >= $1
	`, today).Scan(&stats.TipsToday, &stats.TipCoinsToday)

	_ = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions WHERE type = 'unlock' AND created_at >= $1
	`, today).Scan(&stats.UnlocksToday)

	_ = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(coin_amount), 0)
		FROM transactions WHERE type = 'purchase' AND payment_status = 'completed' AND created_at >= $1
	`, today).Scan(&stats.CoinsPurchasedToday)

	_ = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(coin_amount), 0)
		FROM transactions WHERE type = 'purchase' AND payment_status = 'completed' AND created_at >= $1
	`, weekAgo).Scan(&stats.CoinsPurchasedWeek)

	_ = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(coin_amount), 0)
		FROM transactions WHERE type = 'purchase' AND payment_status = 'completed'
	`).Scan(&stats.CoinsPurchasedTotal)

	_ = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(-coin_amount), 0)
		FROM transactions
		WHERE type IN ('payout_request', 'coin_exchange') AND payment_status = 'completed'
	`).Scan(&stats.CoinsPaidOutTotal)

	return stats, nil
}

// CreditPurchase credits coins after the payment gateway confirmed a top-up.
// Verification of the gateway callback happens upstream; this only records
// the result. Idempotent on the gateway order id.
func (s *AdminService) CreditPurchase(ctx context.Context, userID, coins int64, inrPaid float64, gateway, orderID string) (int64, error) {
	if orderID == "" {
		return 0, ErrInvalidAmount
	}

	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE type = 'purchase' AND meta->>'gateway_order_id' = $1
		)
	`, orderID).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrDuplicatePurchase
	}

	return s.ledger.AddCoins(ctx, userID, coins,
		domain.TypePurchase, inrPaid,
		fmt.Sprintf("Coin purchase (%d coins)", coins),
		&domain.PurchaseDetails{
			Gateway:        gateway,
			GatewayOrderID: orderID,
			INRPaid:        inrPaid,
		},
	)
}
