package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"
	"github.com/debdutta777/noobwriter-sub000/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WalletNotifier receives balance pushes after a settlement commits.
type WalletNotifier interface {
	WalletChanged(userID int64, balance, reserved int64)
}

// LedgerService implements the atomic mutation procedures. Every method is a
// single database transaction: wallet row locks, sufficiency check, balance
// update and ledger insert commit together or not at all. Concurrent calls
// against one wallet serialize on the row lock, so no two debits can pass the
// check against the same stale balance.
type LedgerService struct {
	db         *pgxpool.Pool
	txRepo     *repository.TransactionRepository
	unlockRepo *repository.UnlockRepository
	walletRepo *repository.WalletRepository

	// sharePercent is the author revenue share for tips and unlocks.
	sharePercent int64

	notifier WalletNotifier
}

func NewLedgerService(db *pgxpool.Pool, sharePercent int64) *LedgerService {
	return &LedgerService{
		db:           db,
		txRepo:       repository.NewTransactionRepository(db),
		unlockRepo:   repository.NewUnlockRepository(db),
		walletRepo:   repository.NewWalletRepository(db),
		sharePercent: sharePercent,
	}
}

// SetNotifier attaches an optional balance-push sink (the ws hub).
func (s *LedgerService) SetNotifier(n WalletNotifier) {
	s.notifier = n
}

type walletState struct {
	balance  int64
	reserved int64
}

func (w walletState) spendable() int64 { return w.balance - w.reserved }

// lockWallet takes the row lock and returns the balance under it.
func lockWallet(ctx context.Context, tx pgx.Tx, userID int64) (walletState, error) {
	var w walletState
	err := tx.QueryRow(ctx,
		`SELECT coin_balance, reserved_coins FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&w.balance, &w.reserved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return w, ErrWalletNotFound
		}
		return w, err
	}
	return w, nil
}

func (s *LedgerService) notify(userID int64, w walletState) {
	if s.notifier != nil {
		s.notifier.WalletChanged(userID, w.balance, w.reserved)
	}
}

// authorShare splits a gross coin amount into the author's cut and the
// platform margin.
func (s *LedgerService) authorShare(gross int64) (share, fee int64) {
	share = gross * s.sharePercent / 100
	return share, gross - share
}

// TipResult is returned to the tipping workflow.
type TipResult struct {
	SenderBalance int64 `json:"sender_balance"`
	AuthorShare   int64 `json:"author_share"`
	PlatformFee   int64 `json:"platform_fee"`
}

// ProcessTip debits the sender, credits the recipient their share and writes
// both ledger legs atomically.
func (s *LedgerService) ProcessTip(ctx context.Context, senderID, recipientID, amount, seriesID, chapterID int64) (*TipResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if senderID == recipientID {
		return nil, ErrSelfTip
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The recipient may never have opened their wallet page.
	if err := s.walletRepo.EnsureWithTx(ctx, tx, recipientID); err != nil {
		return nil, err
	}

	// Lock both wallets in id order to avoid deadlocks.
	firstID, secondID := senderID, recipientID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}
	first, err := lockWallet(ctx, tx, firstID)
	if err != nil {
		return nil, err
	}
	second, err := lockWallet(ctx, tx, secondID)
	if err != nil {
		return nil, err
	}

	sender := first
	if senderID == secondID {
		sender = second
	}
	if sender.spendable() < amount {
		return nil, ErrInsufficientBalance
	}

	share, fee := s.authorShare(amount)

	var senderAfter, recipientAfter walletState
	err = tx.QueryRow(ctx,
		`UPDATE wallets
		 SET coin_balance = coin_balance - $1, total_spent = total_spent + $1, updated_at = now()
		 WHERE user_id = $2
		 RETURNING coin_balance, reserved_coins`,
		amount, senderID,
	).Scan(&senderAfter.balance, &senderAfter.reserved)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx,
		`UPDATE wallets
		 SET coin_balance = coin_balance + $1, total_earned = total_earned + $1, updated_at = now()
		 WHERE user_id = $2
		 RETURNING coin_balance, reserved_coins`,
		share, recipientID,
	).Scan(&recipientAfter.balance, &recipientAfter.reserved)
	if err != nil {
		return nil, err
	}

	details := &domain.TipDetails{
		SenderID:    senderID,
		RecipientID: recipientID,
		SeriesID:    seriesID,
		ChapterID:   chapterID,
		PlatformFee: fee,
	}

	sentLeg := &domain.Transaction{
		UserID:      senderID,
		Type:        domain.TypeTipSent,
		CoinAmount:  -amount,
		Description: fmt.Sprintf("Tip to author #%d", recipientID),
		Meta:        details,
	}
	if err := s.txRepo.CreateWithTx(ctx, tx, sentLeg); err != nil {
		return nil, err
	}

	receivedLeg := &domain.Transaction{
		UserID:      recipientID,
		Type:        domain.TypeTipReceived,
		CoinAmount:  share,
		Description: fmt.Sprintf("Tip from reader #%d", senderID),
		Meta:        details,
	}
	if err := s.txRepo.CreateWithTx(ctx, tx, receivedLeg); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notify(senderID, senderAfter)
	s.notify(recipientID, recipientAfter)

	return &TipResult{
		SenderBalance: senderAfter.spendable(),
		AuthorShare:   share,
		PlatformFee:   fee,
	}, nil
}

// UnlockResult is returned to the chapter unlock workflow.
type UnlockResult struct {
	NewBalance  int64 `json:"new_balance"`
	AuthorShare int64 `json:"author_share"`
}

// UnlockChapter charges the chapter price, credits the author and inserts the
// unlock row in one transaction. A concurrent duplicate surfaces as
// ErrAlreadyUnlocked with no charge: the unique unlock row wins the race, the
// loser's transaction rolls back wholesale.
func (s *LedgerService) UnlockChapter(ctx context.Context, userID int64, ch *domain.Chapter) (*UnlockResult, error) {
	price := ch.CoinPrice
	if price <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.walletRepo.EnsureWithTx(ctx, tx, ch.AuthorID); err != nil {
		return nil, err
	}

	firstID, secondID := userID, ch.AuthorID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}
	first, err := lockWallet(ctx, tx, firstID)
	if err != nil {
		return nil, err
	}
	second := first
	if firstID != secondID {
		second, err = lockWallet(ctx, tx, secondID)
		if err != nil {
			return nil, err
		}
	}

	reader := first
	if userID == secondID {
		reader = second
	}
	if reader.spendable() < price {
		return nil, ErrInsufficientBalance
	}

	share, fee := s.authorShare(price)
	details := &domain.UnlockDetails{
		ChapterID:   ch.ID,
		AuthorID:    ch.AuthorID,
		Price:       price,
		PlatformFee: fee,
	}

	charge := &domain.Transaction{
		UserID:      userID,
		Type:        domain.TypeUnlock,
		CoinAmount:  -price,
		Description: fmt.Sprintf("Unlocked chapter %q", ch.Title),
		Meta:        details,
	}
	if err := s.txRepo.CreateWithTx(ctx, tx, charge); err != nil {
		return nil, err
	}

	inserted, err := s.unlockRepo.CreateWithTx(ctx, tx, &domain.ChapterUnlock{
		UserID:        userID,
		ChapterID:     ch.ID,
		TransactionID: charge.ID,
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrAlreadyUnlocked
	}

	var readerAfter walletState
	err = tx.QueryRow(ctx,
		`UPDATE wallets
		 SET coin_balance = coin_balance - $1, total_spent = total_spent + $1, updated_at = now()
		 WHERE user_id = $2
		 RETURNING coin_balance, reserved_coins`,
		price, userID,
	).Scan(&readerAfter.balance, &readerAfter.reserved)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallets
		 SET coin_balance = coin_balance + $1, total_earned = total_earned + $1, updated_at = now()
		 WHERE user_id = $2`,
		share, ch.AuthorID,
	)
	if err != nil {
		return nil, err
	}

	earning := &domain.Transaction{
		UserID:      ch.AuthorID,
		Type:        domain.TypeEarning,
		CoinAmount:  share,
		Description: fmt.Sprintf("Chapter unlock earning: %q", ch.Title),
		Meta:        details,
	}
	if err := s.txRepo.CreateWithTx(ctx, tx, earning); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notify(userID, readerAfter)

	return &UnlockResult{NewBalance: readerAfter.spendable(), AuthorShare: share}, nil
}

// AddCoins credits a wallet and records the ledger entry. Used by purchase
// crediting and refunds.
func (s *LedgerService) AddCoins(ctx context.Context, userID, coins int64, txType domain.TransactionType, amountINR float64, desc string, meta domain.TransactionMeta) (int64, error) {
	if coins <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.walletRepo.EnsureWithTx(ctx, tx, userID); err != nil {
		return 0, err
	}
	if _, err := lockWallet(ctx, tx, userID); err != nil {
		return 0, err
	}

	var after walletState
	err = tx.QueryRow(ctx,
		`UPDATE wallets
		 SET coin_balance = coin_balance + $1, updated_at = now()
		 WHERE user_id = $2
		 RETURNING coin_balance, reserved_coins`,
		coins, userID,
	).Scan(&after.balance, &after.reserved)
	if err != nil {
		return 0, err
	}

	entry := &domain.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amountINR,
		CoinAmount:  coins,
		Description: desc,
		Meta:        meta,
	}
	if err := s.txRepo.CreateWithTx(ctx, tx, entry); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	s.notify(userID, after)
	return after.spendable(), nil
}

// DeductCoins debits a wallet, failing rather than underflowing, and records
// the ledger entry.
func (s *LedgerService) DeductCoins(ctx context.Context, userID, coins int64, txType domain.TransactionType, amountINR float64, desc string, meta domain.TransactionMeta) (int64, error) {
	if coins <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if w.spendable() < coins {
		return 0, ErrInsufficientBalance
	}

	var after walletState
	err = tx.QueryRow(ctx,
		`UPDATE wallets
		 SET coin_balance = coin_balance - $1, updated_at = now()
		 WHERE user_id = $2
		 RETURNING coin_balance, reserved_coins`,
		coins, userID,
	).Scan(&after.balance, &after.reserved)
	if err != nil {
		return 0, err
	}

	entry := &domain.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amountINR,
		CoinAmount:  -coins,
		Description: desc,
		Meta:        meta,
	}
	if err := s.txRepo.CreateWithTx(ctx, tx, entry); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	s.notify(userID, after)
	return after.spendable(), nil
}

// ReserveCoins holds spendable coins for a pending withdrawal request and
// inserts the pending ledger entry. CoinBalance is untouched until the
// request settles, but the reserved slice can no longer be spent elsewhere.
func (s *LedgerService) ReserveCoins(ctx context.Context, userID, coins int64, txType domain.TransactionType, amountINR float64, desc, reference string, meta domain.TransactionMeta) (*domain.Transaction, error) {
	if coins <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if w.spendable() < coins {
		return nil, ErrInsufficientBalance
	}

	var after walletState
	err = tx.QueryRow(ctx,
		`UPDATE wallets
		 SET reserved_coins = reserved_coins + $1, updated_at = now()
		 WHERE user_id = $2
		 RETURNING coin_balance, reserved_coins`,
		coins, userID,
	).Scan(&after.balance, &after.reserved)
	if err != nil {
		return nil, err
	}

	entry := &domain.Transaction{
		UserID:        userID,
		Type:          txType,
		Amount:        amountINR,
		CoinAmount:    -coins,
		Description:   desc,
		PaymentStatus: domain.StatusPending,
		Reference:     reference,
		Meta:          meta,
	}
	if err := s.txRepo.CreateWithTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notify(userID, after)
	return entry, nil
}

// ReleaseReservation returns held coins to the spendable balance and moves
// the pending entry to a terminal non-completed status (cancelled or
// rejected). ownerID restricts the operation to the requester's own entries;
// pass 0 for admin paths.
func (s *LedgerService) ReleaseReservation(ctx context.Context, txID, ownerID int64, status domain.PaymentStatus, metaPatch map[string]any) (int64, error) {
	if status != domain.StatusCancelled && status != domain.StatusRejected {
		return 0, fmt.Errorf("release to %q: %w", status, ErrNotPending)
	}
	coins, _, err := s.finishReservation(ctx, txID, ownerID, status, metaPatch, false)
	return coins, err
}

// SettleReservation burns held coins and completes the pending entry. Used
// when an admin confirms a payout or exchange payment.
func (s *LedgerService) SettleReservation(ctx context.Context, txID int64, metaPatch map[string]any) (int64, int64, error) {
	return s.finishReservation(ctx, txID, 0, domain.StatusCompleted, metaPatch, true)
}

// finishReservation is the shared terminal transition: lock the entry, lock
// the wallet, undo or burn the reservation, flip the status. The status
// UPDATE is still guarded on pending so a raced transition loses cleanly.
func (s *LedgerService) finishReservation(ctx context.Context, txID, ownerID int64, status domain.PaymentStatus, metaPatch map[string]any, burn bool) (coins int64, userID int64, err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		txType    domain.TransactionType
		coinDelta int64
		current   domain.PaymentStatus
	)
	err = tx.QueryRow(ctx,
		`SELECT user_id, type, coin_amount, payment_status FROM transactions WHERE id = $1 FOR UPDATE`,
		txID,
	).Scan(&userID, &txType, &coinDelta, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrTransactionNotFound
		}
		return 0, 0, err
	}

	if ownerID != 0 && userID != ownerID {
		// Do not leak other users' transaction ids.
		return 0, 0, ErrTransactionNotFound
	}
	if txType != domain.TypePayoutRequest && txType != domain.TypeCoinExchange {
		return 0, 0, ErrTransactionNotFound
	}
	if current != domain.StatusPending {
		return 0, 0, ErrNotPending
	}

	coins = -coinDelta
	if coins <= 0 {
		return 0, 0, fmt.Errorf("reservation %d has non-negative coin delta %d", txID, coinDelta)
	}

	if _, err := lockWallet(ctx, tx, userID); err != nil {
		return 0, 0, err
	}

	var after walletState
	if burn {
		err = tx.QueryRow(ctx,
			`UPDATE wallets
			 SET coin_balance = coin_balance - $1, reserved_coins = reserved_coins - $1, updated_at = now()
			 WHERE user_id = $2 AND reserved_coins >= $1
			 RETURNING coin_balance, reserved_coins`,
			coins, userID,
		).Scan(&after.balance, &after.reserved)
	} else {
		err = tx.QueryRow(ctx,
			`UPDATE wallets
			 SET reserved_coins = reserved_coins - $1, updated_at = now()
			 WHERE user_id = $2 AND reserved_coins >= $1
			 RETURNING coin_balance, reserved_coins`,
			coins, userID,
		).Scan(&after.balance, &after.reserved)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, fmt.Errorf("wallet %d reservation underflow for transaction %d", userID, txID)
		}
		return 0, 0, err
	}

	patch := []byte("{}")
	if len(metaPatch) > 0 {
		if patch, err = json.Marshal(metaPatch); err != nil {
			return 0, 0, err
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE transactions
		 SET payment_status = $2, meta = meta || $3::jsonb
		 WHERE id = $1 AND payment_status = 'pending'`,
		txID, status, patch,
	)
	if err != nil {
		return 0, 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, 0, ErrNotPending
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}

	s.notify(userID, after)
	return coins, userID, nil
}
