package domain

import "time"

// Wallet holds the authoritative coin balance for one user.
//
// CoinBalance is the total owned; ReservedCoins is the slice of it held for
// pending payout/exchange requests. Only CoinBalance - ReservedCoins is
// spendable. Both fields are mutated exclusively inside ledger transactions.
type Wallet struct {
	UserID        int64     `db:"user_id" json:"user_id"`
	CoinBalance   int64     `db:"coin_balance" json:"coin_balance"`
	ReservedCoins int64     `db:"reserved_coins" json:"reserved_coins"`
	TotalEarned   int64     `db:"total_earned" json:"total_earned"`
	TotalSpent    int64     `db:"total_spent" json:"total_spent"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Spendable returns the balance available for tips, unlocks and new
// withdrawal requests.
func (w *Wallet) Spendable() int64 {
	return w.CoinBalance - w.ReservedCoins
}

// ChapterUnlock marks permanent premium access to one chapter.
type ChapterUnlock struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	ChapterID     int64     `db:"chapter_id" json:"chapter_id"`
	TransactionID int64     `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
