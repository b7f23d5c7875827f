package service

import (
	"context"
	"time"

	"github.com/debdutta777/noobwriter-sub000/internal/config"
	"github.com/debdutta777/noobwriter-sub000/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TipService is the tipping workflow: validation, rate limiting, then the
// atomic ledger mutation.
type TipService struct {
	ledger  *LedgerService
	limiter *TipRateLimiter

	minAmount int64
	maxAmount int64
	window    time.Duration
}

func NewTipService(db *pgxpool.Pool, ledger *LedgerService, cfg *config.Config) *TipService {
	txRepo := repository.NewTransactionRepository(db)
	return &TipService{
		ledger:    ledger,
		limiter:   NewTipRateLimiter(txRepo, cfg.MaxTipsPerMinute, cfg.TipRateWindow),
		minAmount: cfg.MinTipAmount,
		maxAmount: cfg.MaxTipAmount,
		window:    cfg.TipRateWindow,
	}
}

func validateTipAmount(amount, min, max int64) error {
	if amount < min || amount > max {
		return ErrAmountOutOfRange
	}
	return nil
}

// SendTip transfers coins from a reader to an author. seriesID and chapterID
// are optional context (0 = none).
func (s *TipService) SendTip(ctx context.Context, senderID, recipientID, amount, seriesID, chapterID int64) (*TipResult, error) {
	if senderID == recipientID {
		return nil, ErrSelfTip
	}
	if err := validateTipAmount(amount, s.minAmount, s.maxAmount); err != nil {
		return nil, err
	}

	if allowed, _ := s.limiter.CheckOrAllow(ctx, senderID); !allowed {
		return nil, ErrRateLimited
	}

	return s.ledger.ProcessTip(ctx, senderID, recipientID, amount, seriesID, chapterID)
}

// RetryWindow is surfaced in rate-limit error responses.
func (s *TipService) RetryWindow() time.Duration {
	return s.window
}
