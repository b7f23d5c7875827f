package repository

import (
	"context"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UnlockRepository struct {
	db *pgxpool.Pool
}

func NewUnlockRepository(db *pgxpool.Pool) *UnlockRepository {
	return &UnlockRepository{db: db}
}

// Exists reports whether the user already unlocked the chapter.
func (r *UnlockRepository) Exists(ctx context.Context, userID, chapterID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM chapter_unlocks WHERE user_id = $1 AND chapter_id = $2)
	`, userID, chapterID).Scan(&exists)
	return exists, err
}

// CreateWithTx inserts the unlock row inside the charging transaction.
// Returns false without error when the row already exists, so a concurrent
// duplicate unlock rolls back instead of double charging.
func (r *UnlockRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, u *domain.ChapterUnlock) (bool, error) {
	row := dbTx.QueryRow(ctx, `
		INSERT INTO chapter_unlocks (user_id, chapter_id, transaction_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, chapter_id) DO NOTHING
		RETURNING id, created_at
	`, u.UserID, u.ChapterID, u.TransactionID)

	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListByUser returns the user's unlocked chapters, newest first.
func (r *UnlockRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.ChapterUnlock, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, chapter_id, COALESCE(transaction_id, 0), created_at
		FROM chapter_unlocks
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var unlocks []domain.ChapterUnlock
	for rows.Next() {
		var u domain.ChapterUnlock
		if err := rows.Scan(&u.ID, &u.UserID, &u.ChapterID, &u.TransactionID, &u.CreatedAt); err != nil {
			return nil, err
		}
		unlocks = append(unlocks, u)
	}

	return unlocks, rows.Err()
}
