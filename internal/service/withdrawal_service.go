package service

import (
	"context"
	"fmt"
	"time"

	"github.com/debdutta777/noobwriter-sub000/internal/config"
	"github.com/debdutta777/noobwriter-sub000/internal/domain"
	"github.com/debdutta777/noobwriter-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithdrawalTerms are the coin->INR conversion terms for one withdrawal
// kind. Coins convert in whole blocks; BlockINR is the rupee value of one
// block.
type WithdrawalTerms struct {
	MinCoins   int64   `json:"min_coins"`
	BlockCoins int64   `json:"block_coins"`
	BlockINR   float64 `json:"block_inr"`
}

// INRFor converts a block-aligned coin amount to rupees.
func (t WithdrawalTerms) INRFor(coins int64) float64 {
	return float64(coins/t.BlockCoins) * t.BlockINR
}

func validateWithdrawalAmount(coins int64, t WithdrawalTerms) error {
	if coins < t.MinCoins {
		return ErrBelowMinimum
	}
	if coins%t.BlockCoins != 0 {
		return ErrNotDivisible
	}
	return nil
}

// WithdrawalService runs both coin->INR flows (self-service payout and
// admin-mediated exchange) over one reservation-based state machine:
// request reserves the coins, confirmation burns them, cancel/reject
// releases them. A pending request can never be spent against twice.
type WithdrawalService struct {
	ledger *LedgerService
	txRepo *repository.TransactionRepository

	payout   WithdrawalTerms
	exchange WithdrawalTerms
}

func NewWithdrawalService(db *pgxpool.Pool, ledger *LedgerService, cfg *config.Config) *WithdrawalService {
	return &WithdrawalService{
		ledger: ledger,
		txRepo: repository.NewTransactionRepository(db),
		payout: WithdrawalTerms{
			MinCoins:   cfg.PayoutMinCoins,
			BlockCoins: cfg.PayoutBlockCoins,
			BlockINR:   cfg.PayoutBlockINR,
		},
		exchange: WithdrawalTerms{
			MinCoins:   cfg.ExchangeMinCoins,
			BlockCoins: cfg.ExchangeBlockCoins,
			BlockINR:   cfg.ExchangeBlockINR,
		},
	}
}

// WithdrawalReceipt is returned when a request is accepted.
type WithdrawalReceipt struct {
	TransactionID int64   `json:"transaction_id"`
	Reference     string  `json:"reference"`
	CoinAmount    int64   `json:"coin_amount"`
	INRAmount     float64 `json:"inr_amount"`
}

// PayoutTerms returns the self-service payout terms for display.
func (s *WithdrawalService) PayoutTerms() WithdrawalTerms { return s.payout }

// ExchangeTerms returns the exchange terms for display.
func (s *WithdrawalService) ExchangeTerms() WithdrawalTerms { return s.exchange }

// RequestPayout reserves coins for a self-service payout and records the
// pending ledger entry.
func (s *WithdrawalService) RequestPayout(ctx context.Context, userID, coins int64, bank domain.BankDetails) (*WithdrawalReceipt, error) {
	if err := validateWithdrawalAmount(coins, s.payout); err != nil {
		return nil, err
	}

	inr := s.payout.INRFor(coins)
	ref := uuid.NewString()
	entry, err := s.ledger.ReserveCoins(ctx, userID, coins,
		domain.TypePayoutRequest, inr,
		fmt.Sprintf("Payout request: %d coins -> INR %.2f", coins, inr),
		ref,
		&domain.PayoutDetails{
			Blocks:    coins / s.payout.BlockCoins,
			INRAmount: inr,
			Bank:      bank,
		},
	)
	if err != nil {
		return nil, err
	}

	return &WithdrawalReceipt{
		TransactionID: entry.ID,
		Reference:     ref,
		CoinAmount:    coins,
		INRAmount:     inr,
	}, nil
}

// CancelPayout releases a pending payout's reservation. Only the requester
// can cancel, and only while pending. Returns the released coin amount.
func (s *WithdrawalService) CancelPayout(ctx context.Context, userID, txID int64) (int64, error) {
	if err := s.expectKind(ctx, txID, domain.TypePayoutRequest, userID); err != nil {
		return 0, err
	}
	return s.ledger.ReleaseReservation(ctx, txID, userID, domain.StatusCancelled, map[string]any{
		"cancelled_at": time.Now().UTC(),
	})
}

// ConfirmPayout settles a pending payout after the money has been sent.
// Admin-only (enforced at the route).
func (s *WithdrawalService) ConfirmPayout(ctx context.Context, adminID, txID int64) (int64, error) {
	if err := s.expectKind(ctx, txID, domain.TypePayoutRequest, 0); err != nil {
		return 0, err
	}
	coins, _, err := s.ledger.SettleReservation(ctx, txID, map[string]any{
		"confirmed_by": adminID,
		"processed_at": time.Now().UTC(),
	})
	return coins, err
}

// ListPayouts returns the user's payout history.
func (s *WithdrawalService) ListPayouts(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	return s.txRepo.GetByUserIDAndType(ctx, userID, domain.TypePayoutRequest, limit)
}

// RequestExchange reserves coins for an admin-mediated exchange. The coins
// stay in coin_balance but become unspendable until the admin confirms or
// rejects.
func (s *WithdrawalService) RequestExchange(ctx context.Context, userID, coins int64, bank domain.BankDetails) (*WithdrawalReceipt, error) {
	if err := validateWithdrawalAmount(coins, s.exchange); err != nil {
		return nil, err
	}
	if bank.AccountNumber == "" && bank.UPIID == "" {
		return nil, ErrBankDetailsRequired
	}

	inr := s.exchange.INRFor(coins)
	ref := uuid.NewString()
	entry, err := s.ledger.ReserveCoins(ctx, userID, coins,
		domain.TypeCoinExchange, inr,
		fmt.Sprintf("Coin exchange request: %d coins -> INR %.2f", coins, inr),
		ref,
		&domain.ExchangeDetails{
			Blocks:    coins / s.exchange.BlockCoins,
			INRAmount: inr,
			Bank:      bank,
		},
	)
	if err != nil {
		return nil, err
	}

	return &WithdrawalReceipt{
		TransactionID: entry.ID,
		Reference:     ref,
		CoinAmount:    coins,
		INRAmount:     inr,
	}, nil
}

// CancelExchange releases a pending exchange's reservation (self-service).
func (s *WithdrawalService) CancelExchange(ctx context.Context, userID, txID int64) (int64, error) {
	if err := s.expectKind(ctx, txID, domain.TypeCoinExchange, userID); err != nil {
		return 0, err
	}
	return s.ledger.ReleaseReservation(ctx, txID, userID, domain.StatusCancelled, map[string]any{
		"cancelled_at": time.Now().UTC(),
	})
}

// ConfirmExchange settles a pending exchange after the admin paid out the
// INR. The reservation burn and the status flip commit together; there is no
// deduct-then-compensate window.
func (s *WithdrawalService) ConfirmExchange(ctx context.Context, adminID, txID int64, paymentNote, paymentRef string) (int64, error) {
	if err := s.expectKind(ctx, txID, domain.TypeCoinExchange, 0); err != nil {
		return 0, err
	}
	coins, _, err := s.ledger.SettleReservation(ctx, txID, map[string]any{
		"confirmed_by": adminID,
		"payment_note": paymentNote,
		"payment_ref":  paymentRef,
		"processed_at": time.Now().UTC(),
	})
	return coins, err
}

// RejectExchange releases the reservation and marks the request rejected
// with the admin's reason.
func (s *WithdrawalService) RejectExchange(ctx context.Context, adminID, txID int64, reason string) error {
	if err := s.expectKind(ctx, txID, domain.TypeCoinExchange, 0); err != nil {
		return err
	}
	_, err := s.ledger.ReleaseReservation(ctx, txID, 0, domain.StatusRejected, map[string]any{
		"reject_reason": reason,
		"rejected_by":   adminID,
		"processed_at":  time.Now().UTC(),
	})
	return err
}

// ListExchanges returns the user's exchange history.
func (s *WithdrawalService) ListExchanges(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	return s.txRepo.GetByUserIDAndType(ctx, userID, domain.TypeCoinExchange, limit)
}

// ListPendingExchanges returns all pending exchange requests with requester
// info for the admin processing queue.
func (s *WithdrawalService) ListPendingExchanges(ctx context.Context) ([]repository.PendingRequest, error) {
	return s.txRepo.GetPendingByType(ctx, domain.TypeCoinExchange)
}

// ListPendingPayouts returns all pending payout requests for the admin
// processing queue.
func (s *WithdrawalService) ListPendingPayouts(ctx context.Context) ([]repository.PendingRequest, error) {
	return s.txRepo.GetPendingByType(ctx, domain.TypePayoutRequest)
}

// expectKind verifies the transaction exists, is of the expected withdrawal
// type and, when ownerID is non-zero, belongs to the owner. The pending
// check happens later under the row lock; this is only a type/ownership
// gate so a payout id cannot be driven through the exchange endpoints.
func (s *WithdrawalService) expectKind(ctx context.Context, txID int64, kind domain.TransactionType, ownerID int64) error {
	entry, err := s.txRepo.GetByID(ctx, txID)
	if err != nil {
		return err
	}
	if entry == nil || entry.Type != kind {
		return ErrTransactionNotFound
	}
	if ownerID != 0 && entry.UserID != ownerID {
		return ErrTransactionNotFound
	}
	return nil
}
