package service

import (
	"context"
	"time"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"
	"github.com/debdutta777/noobwriter-sub000/internal/logger"
)

// TipCounter counts a user's recent ledger entries of one type. Implemented
// by TransactionRepository.
type TipCounter interface {
	CountSince(ctx context.Context, userID int64, txType domain.TransactionType, since time.Time) (int, error)
}

// TipRateLimiter bounds tips per user per rolling window by counting recent
// tip_sent ledger rows.
//
// Policy: the limiter FAILS OPEN. If the count lookup errors, the tip is
// allowed rather than blocking legitimate users on a storage hiccup. The
// wallet sufficiency check still runs downstream, so failing open never
// over-spends.
type TipRateLimiter struct {
	counter TipCounter
	max     int
	window  time.Duration
}

func NewTipRateLimiter(counter TipCounter, max int, window time.Duration) *TipRateLimiter {
	return &TipRateLimiter{counter: counter, max: max, window: window}
}

// CheckOrAllow reports whether the user may send another tip now, and how
// long to wait when they may not.
func (l *TipRateLimiter) CheckOrAllow(ctx context.Context, userID int64) (allowed bool, retryAfter time.Duration) {
	since := time.Now().Add(-l.window)

	n, err := l.counter.CountSince(ctx, userID, domain.TypeTipSent, since)
	if err != nil {
		logger.Warn("tip rate limiter lookup failed, allowing", "user_id", userID, "error", err)
		return true, 0
	}

	if n >= l.max {
		return false, l.window
	}
	return true, 0
}
