package repository

import (
	"context"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: db}
}

const walletColumns = `user_id, coin_balance, reserved_coins, total_earned, total_spent, created_at, updated_at`

// GetByUserID retrieves a wallet. Returns nil when the user has none yet.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1
	`, userID)

	var w domain.Wallet
	if err := row.Scan(
		&w.UserID, &w.CoinBalance, &w.ReservedCoins, &w.TotalEarned, &w.TotalSpent, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &w, nil
}

// Ensure creates the wallet lazily with the welcome balance. Safe to call on
// every authenticated request; the insert is a no-op once the row exists.
// The welcome grant writes its own ledger entry so the balance stays equal
// to the sum of completed entries.
func (r *WalletRepository) Ensure(ctx context.Context, userID int64, welcomeCoins int64) (*domain.Wallet, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, coin_balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, welcomeCoins)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 1 && welcomeCoins > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO transactions (user_id, type, coin_amount, description)
			VALUES ($1, 'earning', $2, 'Welcome bonus')
		`, userID, welcomeCoins)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.GetByUserID(ctx, userID)
}

// EnsureWithTx is Ensure inside an existing transaction, with a zero starting
// balance. Used by the ledger so a credit can target a user who never opened
// their wallet page.
func (r *WalletRepository) EnsureWithTx(ctx context.Context, tx pgx.Tx, userID int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, coin_balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

// TotalCirculating sums coins over all wallets.
func (r *WalletRepository) TotalCirculating(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(coin_balance), 0) FROM wallets`).Scan(&total)
	return total, err
}

// TotalReserved sums coins currently held for pending withdrawal requests.
func (r *WalletRepository) TotalReserved(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(reserved_coins), 0) FROM wallets`).Scan(&total)
	return total, err
}
