package domain

import "time"

// TransactionType enumerates the balance-affecting events the ledger records.
type TransactionType string

const (
	TypePurchase      TransactionType = "purchase"
	TypeUnlock        TransactionType = "unlock"
	TypeEarning       TransactionType = "earning"
	TypeTipSent       TransactionType = "tip_sent"
	TypeTipReceived   TransactionType = "tip_received"
	TypeRefund        TransactionType = "refund"
	TypePayoutRequest TransactionType = "payout_request"
	TypeCoinExchange  TransactionType = "coin_exchange"
)

// PaymentStatus is the lifecycle state of a ledger entry. Entries are
// append-only except for transitions out of StatusPending.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusCancelled PaymentStatus = "cancelled"
	StatusRejected  PaymentStatus = "rejected"
	StatusFailed    PaymentStatus = "failed"
	StatusRefunded  PaymentStatus = "refunded"
)

// Terminal reports whether a status admits no further transitions.
func (s PaymentStatus) Terminal() bool {
	return s != StatusPending
}

// Transaction is one immutable ledger entry. CoinAmount is the signed coin
// delta; Amount is the rupee value for purchase/payout/exchange entries.
//
// Invariant: for any user, the sum of CoinAmount over completed entries
// equals the wallet's CoinBalance.
type Transaction struct {
	ID            int64           `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"user_id"`
	Type          TransactionType `db:"type" json:"type"`
	Amount        float64         `db:"amount" json:"amount"`
	CoinAmount    int64           `db:"coin_amount" json:"coin_amount"`
	Description   string          `db:"description" json:"description"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	Reference     string          `db:"reference" json:"reference,omitempty"`
	Meta          TransactionMeta `db:"meta" json:"meta,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// WithdrawalKind reports whether the entry is a payout or exchange request,
// i.e. participates in the reservation lifecycle.
func (t *Transaction) WithdrawalKind() bool {
	return t.Type == TypePayoutRequest || t.Type == TypeCoinExchange
}
