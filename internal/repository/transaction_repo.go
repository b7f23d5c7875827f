package repository

import (
	"context"
	"time"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const txColumns = `id, user_id, type, amount, coin_amount, description, payment_status, reference, meta, created_at`

// CreateWithTx inserts a ledger entry inside an existing database
// transaction. All balance-affecting writes go through this so the entry and
// the wallet update commit together.
func (r *TransactionRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, tx *domain.Transaction) error {
	metaJSON, err := domain.EncodeMeta(tx.Meta)
	if err != nil {
		return err
	}
	if tx.PaymentStatus == "" {
		tx.PaymentStatus = domain.StatusCompleted
	}

	var ref any
	if tx.Reference != "" {
		ref = tx.Reference
	}

	return dbTx.QueryRow(ctx,
		`INSERT INTO transactions (user_id, type, amount, coin_amount, description, payment_status, reference, meta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		tx.UserID, tx.Type, tx.Amount, tx.CoinAmount, tx.Description, tx.PaymentStatus, ref, metaJSON,
	).Scan(&tx.ID, &tx.CreatedAt)
}

// GetByID retrieves one ledger entry. Returns nil when absent.
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, id)

	tx, err := scanTransaction(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return tx, err
}

// GetByUserID returns recent ledger entries for a user, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+txColumns+`
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetByUserIDAndType returns entries filtered by type.
func (r *TransactionRepository) GetByUserIDAndType(ctx context.Context, userID int64, txType domain.TransactionType, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+txColumns+`
		 FROM transactions
		 WHERE user_id = $1 AND type = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID, txType, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// CountSince counts a user's entries of one type created at or after the
// cutoff. Backs the tip rate limiter.
func (r *TransactionRepository) CountSince(ctx context.Context, userID int64, txType domain.TransactionType, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND type = $2 AND created_at >= $3`,
		userID, txType, since,
	).Scan(&n)
	return n, err
}

// PendingRequest is a pending withdrawal entry joined with the requester's
// profile, for the admin processing queue.
type PendingRequest struct {
	Transaction *domain.Transaction `json:"transaction"`
	Username    string              `json:"username"`
	Role        domain.Role         `json:"role"`
}

// GetPendingByType lists pending entries of one withdrawal type, oldest
// first, with requester info.
func (r *TransactionRepository) GetPendingByType(ctx context.Context, txType domain.TransactionType) ([]PendingRequest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.user_id, t.type, t.amount, t.coin_amount, t.description, t.payment_status, t.reference, t.meta, t.created_at,
		        p.username, p.role
		 FROM transactions t
		 JOIN profiles p ON p.id = t.user_id
		 WHERE t.type = $1 AND t.payment_status = 'pending'
		 ORDER BY t.created_at ASC`,
		txType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PendingRequest
	for rows.Next() {
		var (
			tx       domain.Transaction
			ref      *string
			metaJSON []byte
			username string
			role     domain.Role
		)
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &tx.CoinAmount, &tx.Description,
			&tx.PaymentStatus, &ref, &metaJSON, &tx.CreatedAt, &username, &role,
		); err != nil {
			return nil, err
		}
		if ref != nil {
			tx.Reference = *ref
		}
		if tx.Meta, err = domain.DecodeMeta(metaJSON); err != nil {
			return nil, err
		}
		result = append(result, PendingRequest{Transaction: &tx, Username: username, Role: role})
	}

	return result, rows.Err()
}

// SumCompletedCoins sums the signed coin deltas over a user's completed
// entries. Used by reconciliation checks against the wallet balance.
func (r *TransactionRepository) SumCompletedCoins(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(coin_amount), 0)
		 FROM transactions
		 WHERE user_id = $1 AND payment_status = 'completed'`,
		userID,
	).Scan(&sum)
	return sum, err
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx       domain.Transaction
		ref      *string
		metaJSON []byte
	)
	if err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &tx.CoinAmount, &tx.Description,
		&tx.PaymentStatus, &ref, &metaJSON, &tx.CreatedAt,
	); err != nil {
		return nil, err
	}
	if ref != nil {
		tx.Reference = *ref
	}
	var err error
	if tx.Meta, err = domain.DecodeMeta(metaJSON); err != nil {
		return nil, err
	}
	return &tx, nil
}

func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var result []*domain.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}

	return result, rows.Err()
}
