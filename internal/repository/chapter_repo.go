package repository

import (
	"context"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChapterRepository struct {
	db *pgxpool.Pool
}

func NewChapterRepository(db *pgxpool.Pool) *ChapterRepository {
	return &ChapterRepository{db: db}
}

// GetByID retrieves a chapter. Returns nil when absent.
func (r *ChapterRepository) GetByID(ctx context.Context, id int64) (*domain.Chapter, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, series_id, author_id, title, is_premium, coin_price, created_at
		FROM chapters
		WHERE id = $1
	`, id)

	var ch domain.Chapter
	if err := row.Scan(&ch.ID, &ch.SeriesID, &ch.AuthorID, &ch.Title, &ch.IsPremium, &ch.CoinPrice, &ch.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &ch, nil
}

// Create inserts a chapter. The catalog proper lives in the main app; this
// exists for seeding and tests.
func (r *ChapterRepository) Create(ctx context.Context, ch *domain.Chapter) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO chapters (series_id, author_id, title, is_premium, coin_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, ch.SeriesID, ch.AuthorID, ch.Title, ch.IsPremium, ch.CoinPrice).Scan(&ch.ID, &ch.CreatedAt)
}
